package batch

import (
	"context"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/normalize"
	"github.com/ukydev/fieldops/internal/resolve"
)

// ScheduleDraft is one normalized input row, before validation.
type ScheduleDraft struct {
	Row int // 1-indexed, as the operator sees it

	VIN         string
	Plate       string
	Model       string
	Notes       string
	Provider    string
	OrderNumber string
	Location    models.Location

	ServiceTypeRaw string
	ServiceType    models.ServiceType
	ServiceTypeOK  bool

	StatusRaw string
	Status    models.Status
	StatusOK  bool

	ScheduledDate *time.Time

	ClientRaw  string
	Client     resolve.Result
	ProductRaw string
	Product    resolve.Result

	raw Row
}

// ServiceDraft is a ScheduleDraft plus the validation-specific columns.
type ServiceDraft struct {
	ScheduleDraft

	Date                 *time.Time
	DeviceID             string
	Technician           string
	InstallationLocation string
	ServiceAddress       string
	Odometer             float64
	BlockingEnabled      bool
	ProtocolNumber       string
	ValidationNotes      string
	SecondaryDevice      string
}

// DecodeSchedule normalizes row n (1-indexed). It never fails: values that do
// not normalize are kept raw and flagged for the validator.
func DecodeSchedule(row Row, n int) ScheduleDraft {
	row = Canonicalize(ScheduleColumns, row)
	return decodeSchedule(row, n)
}

func decodeSchedule(row Row, n int) ScheduleDraft {
	d := ScheduleDraft{
		Row:         n,
		VIN:         row.String("vin"),
		Plate:       row.String("plate"),
		Model:       row.String("model"),
		Notes:       row.String("notes"),
		Provider:    row.String("provider"),
		OrderNumber: row.String("orderNumber"),
		Location: models.Location{
			Address:          row.String("address"),
			City:             row.String("city"),
			State:            row.String("state"),
			ResponsibleName:  row.String("responsibleName"),
			ResponsiblePhone: row.String("responsiblePhone"),
		},
		ServiceTypeRaw: row.String("serviceType"),
		StatusRaw:      row.String("status"),
		ClientRaw:      row.String("client"),
		ProductRaw:     row.String("product"),
		raw:            row,
	}
	if d.ServiceTypeRaw != "" {
		d.ServiceType, d.ServiceTypeOK = normalize.ServiceType(d.ServiceTypeRaw)
	}
	if d.StatusRaw != "" {
		d.Status, d.StatusOK = normalize.Status(d.StatusRaw)
	}
	if t, ok := normalize.ParseDate(row["scheduledDate"]); ok {
		d.ScheduledDate = &t
	}
	return d
}

// DecodeService normalizes a service import row.
func DecodeService(row Row, n int) ServiceDraft {
	row = Canonicalize(ServiceColumns, row)
	d := ServiceDraft{
		ScheduleDraft:        decodeSchedule(row, n),
		DeviceID:             row.String("deviceId"),
		Technician:           row.String("technician"),
		InstallationLocation: row.String("installationLocation"),
		ServiceAddress:       row.String("serviceAddress"),
		BlockingEnabled:      row.Bool("blockingEnabled"),
		ProtocolNumber:       row.String("protocolNumber"),
		ValidationNotes:      row.String("validationNotes"),
		SecondaryDevice:      row.String("secondaryDevice"),
	}
	if km, ok := row.Float("odometer"); ok {
		d.Odometer = km
	}
	if t, ok := normalize.ParseDate(row["date"]); ok {
		d.Date = &t
	}
	return d
}

// caches holds the per-batch resolver caches, one per entity kind.
type caches struct {
	clients  *resolve.Cache
	products *resolve.Cache
}

func newCaches() caches {
	return caches{clients: resolve.NewCache(), products: resolve.NewCache()}
}

// resolveDraft fills the client and product ids of d.
func (im *Importer) resolveDraft(ctx context.Context, c caches, d *ScheduleDraft) error {
	var err error
	if d.ClientRaw != "" {
		if d.Client, err = im.clients.Resolve(ctx, c.clients, d.ClientRaw); err != nil {
			return err
		}
	}
	if d.ProductRaw != "" {
		if d.Product, err = im.products.Resolve(ctx, c.products, d.ProductRaw); err != nil {
			return err
		}
	}
	return nil
}
