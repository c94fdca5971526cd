package batch

import (
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidateCreate returns every violation in drafts. It reads nothing and
// writes nothing; an empty result means the batch may be persisted.
func ValidateCreate(drafts []ScheduleDraft) []string {
	errs := []string{}
	for i := range drafts {
		errs = append(errs, validateCreateRow(&drafts[i])...)
	}
	return errs
}

func validateCreateRow(d *ScheduleDraft) []string {
	var errs []string
	if d.VIN == "" {
		errs = append(errs, required(d.Row, "VIN"))
	}
	if d.Model == "" {
		errs = append(errs, required(d.Row, "Modelo"))
	}
	if d.ServiceTypeRaw == "" {
		errs = append(errs, required(d.Row, "Tipo de serviço"))
	} else if !d.ServiceTypeOK {
		errs = append(errs, invalid(d.Row, "Tipo de serviço", d.ServiceTypeRaw))
	}
	if d.ClientRaw == "" {
		errs = append(errs, required(d.Row, "Cliente"))
	} else if !d.Client.Found {
		errs = append(errs, notFound(d.Row, "Cliente", d.ClientRaw))
	}
	errs = append(errs, validateProduct(d)...)
	if d.StatusRaw != "" && !d.StatusOK {
		errs = append(errs, invalid(d.Row, "Status", d.StatusRaw))
	}
	return errs
}

// validateProduct requires a product for installations; for other service
// types a product is optional but, when given, must exist.
func validateProduct(d *ScheduleDraft) []string {
	installation := d.ServiceTypeOK && d.ServiceType == models.ServiceInstallation
	switch {
	case d.ProductRaw == "" && installation:
		return []string{required(d.Row, "Produto")}
	case d.ProductRaw != "" && !d.Product.Found:
		return []string{notFound(d.Row, "Produto", d.ProductRaw)}
	}
	return nil
}

// ValidateUpdate checks update rows: vin is the only required field and
// must already exist; every other supplied field must normalize or resolve.
func ValidateUpdate(drafts []ScheduleDraft, existing map[string]primitive.ObjectID) []string {
	errs := []string{}
	for i := range drafts {
		d := &drafts[i]
		if d.VIN == "" {
			errs = append(errs, required(d.Row, "VIN"))
		} else if _, ok := existing[d.VIN]; !ok {
			errs = append(errs, notFound(d.Row, "VIN", d.VIN))
		}
		errs = append(errs, validateSupplied(d)...)
	}
	return errs
}

// ValidatePatch checks a single update addressed by id, where vin is optional.
func ValidatePatch(d *ScheduleDraft) []string {
	errs := []string{}
	return append(errs, validateSupplied(d)...)
}

// validateSupplied checks only the fields a partial update supplied.
func validateSupplied(d *ScheduleDraft) []string {
	var errs []string
	if d.ServiceTypeRaw != "" && !d.ServiceTypeOK {
		errs = append(errs, invalid(d.Row, "Tipo de serviço", d.ServiceTypeRaw))
	}
	if d.StatusRaw != "" && !d.StatusOK {
		errs = append(errs, invalid(d.Row, "Status", d.StatusRaw))
	}
	if d.ClientRaw != "" && !d.Client.Found {
		errs = append(errs, notFound(d.Row, "Cliente", d.ClientRaw))
	}
	if d.ProductRaw != "" && !d.Product.Found {
		errs = append(errs, notFound(d.Row, "Produto", d.ProductRaw))
	}
	return errs
}

// ValidateServices applies the schedule creation rules to service rows.
func ValidateServices(drafts []ServiceDraft) []string {
	errs := []string{}
	for i := range drafts {
		errs = append(errs, validateCreateRow(&drafts[i].ScheduleDraft)...)
	}
	return errs
}
