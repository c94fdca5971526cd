package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/resolve"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxServiceRows bounds a single service import.
const MaxServiceRows = 500

// ScheduleStore is the persistence boundary for schedule batches.
type ScheduleStore interface {
	InsertSchedules(ctx context.Context, schedules []models.Schedule) (models.BulkResult, error)
	UpdateSchedules(ctx context.Context, updates []models.ScheduleUpdate) (models.BulkResult, error)
	// LatestIDsByVIN maps each known vin to its most recently created schedule.
	LatestIDsByVIN(ctx context.Context, vins []string) (map[string]primitive.ObjectID, error)
}

// ServiceStore is the persistence boundary for service batches.
type ServiceStore interface {
	InsertServices(ctx context.Context, services []models.Service) (models.BulkResult, error)
}

// Importer runs spreadsheet batches through normalization, resolution,
// validation and a single bulk write.
type Importer struct {
	schedules ScheduleStore
	services  ServiceStore
	clients   *resolve.Resolver
	products  *resolve.Resolver
	now       func() time.Time
}

// NewImporter wires an importer over the given stores and lookups.
func NewImporter(schedules ScheduleStore, services ServiceStore, clients, products resolve.Lookup) *Importer {
	return &Importer{
		schedules: schedules,
		services:  services,
		clients:   resolve.New(clients),
		products:  resolve.New(products),
		now:       time.Now,
	}
}

// CreateSchedules inserts every row as a new Schedule, or nothing at all if
// any row fails validation (*ValidationError). lines optionally gives the
// source line of each row for messages; nil numbers rows by position.
func (im *Importer) CreateSchedules(ctx context.Context, rows []Row, lines []int, createdBy string) (models.BulkResult, error) {
	if len(rows) == 0 {
		return models.BulkResult{}, ErrEmptyBatch
	}
	c := newCaches()
	drafts := make([]ScheduleDraft, len(rows))
	for i, row := range rows {
		drafts[i] = DecodeSchedule(row, lineAt(lines, i))
		if err := im.resolveDraft(ctx, c, &drafts[i]); err != nil {
			return models.BulkResult{}, err
		}
	}
	if errs := ValidateCreate(drafts); len(errs) > 0 {
		return models.BulkResult{}, &ValidationError{Messages: errs}
	}

	now := im.now()
	docs := make([]models.Schedule, len(drafts))
	for i := range drafts {
		docs[i] = drafts[i].schedule(createdBy, now)
	}
	res, err := im.schedules.InsertSchedules(ctx, docs)
	numberFailures(&res, lines)
	if err != nil {
		return res, fmt.Errorf("insert schedules: %w", err)
	}
	return res, nil
}

// UpdateSchedules applies each row to the schedule matched by vin. Only the
// fields present in a row are written.
func (im *Importer) UpdateSchedules(ctx context.Context, rows []Row, lines []int) (models.BulkResult, error) {
	if len(rows) == 0 {
		return models.BulkResult{}, ErrEmptyBatch
	}
	c := newCaches()
	drafts := make([]ScheduleDraft, len(rows))
	vins := make([]string, 0, len(rows))
	for i, row := range rows {
		drafts[i] = DecodeSchedule(row, lineAt(lines, i))
		if err := im.resolveDraft(ctx, c, &drafts[i]); err != nil {
			return models.BulkResult{}, err
		}
		if drafts[i].VIN != "" {
			vins = append(vins, drafts[i].VIN)
		}
	}

	existing, err := im.schedules.LatestIDsByVIN(ctx, vins)
	if err != nil {
		return models.BulkResult{}, fmt.Errorf("match vins: %w", err)
	}
	if errs := ValidateUpdate(drafts, existing); len(errs) > 0 {
		return models.BulkResult{}, &ValidationError{Messages: errs}
	}

	now := im.now()
	updates := make([]models.ScheduleUpdate, len(drafts))
	for i := range drafts {
		d := &drafts[i]
		updates[i] = models.ScheduleUpdate{Row: d.Row, ID: existing[d.VIN], VIN: d.VIN, Set: d.updateSet(now)}
	}
	res, err := im.schedules.UpdateSchedules(ctx, updates)
	numberFailures(&res, lines)
	if err != nil {
		return res, fmt.Errorf("update schedules: %w", err)
	}
	return res, nil
}

// UpdateSchedule applies row to the schedule with the given id. The vin is
// optional here and, when present, is rewritten like any other field.
func (im *Importer) UpdateSchedule(ctx context.Context, id primitive.ObjectID, row Row) (models.BulkResult, error) {
	d := DecodeSchedule(row, 1)
	if err := im.resolveDraft(ctx, newCaches(), &d); err != nil {
		return models.BulkResult{}, err
	}
	if errs := ValidatePatch(&d); len(errs) > 0 {
		return models.BulkResult{}, &ValidationError{Messages: errs}
	}
	set := d.updateSet(im.now())
	if d.VIN != "" {
		set["vin"] = d.VIN
	}
	res, err := im.schedules.UpdateSchedules(ctx, []models.ScheduleUpdate{{Row: 1, ID: id, VIN: d.VIN, Set: set}})
	numberFailures(&res, nil)
	if err != nil {
		return res, fmt.Errorf("update schedule: %w", err)
	}
	return res, nil
}

// ImportServices inserts historical service records straight from a sheet.
func (im *Importer) ImportServices(ctx context.Context, rows []Row, lines []int, importedBy string) (models.BulkResult, error) {
	if len(rows) == 0 {
		return models.BulkResult{}, ErrEmptyBatch
	}
	if len(rows) > MaxServiceRows {
		return models.BulkResult{}, fmt.Errorf("%w: máximo de %d, recebidos %d", ErrTooManyRows, MaxServiceRows, len(rows))
	}
	c := newCaches()
	drafts := make([]ServiceDraft, len(rows))
	for i, row := range rows {
		drafts[i] = DecodeService(row, lineAt(lines, i))
		if err := im.resolveDraft(ctx, c, &drafts[i].ScheduleDraft); err != nil {
			return models.BulkResult{}, err
		}
	}
	if errs := ValidateServices(drafts); len(errs) > 0 {
		return models.BulkResult{}, &ValidationError{Messages: errs}
	}

	now := im.now()
	docs := make([]models.Service, len(drafts))
	for i := range drafts {
		docs[i] = drafts[i].service(importedBy, now)
	}
	res, err := im.services.InsertServices(ctx, docs)
	numberFailures(&res, lines)
	if err != nil {
		return res, fmt.Errorf("insert services: %w", err)
	}
	return res, nil
}

// lineAt is the line row i is reported under: lines[i] when the caller
// knows where the row came from, its 1-indexed position otherwise.
func lineAt(lines []int, i int) int {
	if i < len(lines) && lines[i] > 0 {
		return lines[i]
	}
	return i + 1
}

// numberFailures tags store rejections with the line of their row.
func numberFailures(res *models.BulkResult, lines []int) {
	for k := range res.Failed {
		res.Failed[k].Line = lineAt(lines, res.Failed[k].Index)
	}
}

func (d *ScheduleDraft) schedule(createdBy string, now time.Time) models.Schedule {
	status := models.StatusCreated
	if d.StatusOK {
		status = d.Status
	}
	s := models.Schedule{
		Plate:         d.Plate,
		VIN:           d.VIN,
		Model:         d.Model,
		ScheduledDate: d.ScheduledDate,
		ServiceType:   d.ServiceType,
		Notes:         d.Notes,
		CreatedBy:     createdBy,
		Client:        d.Client.ID,
		Status:        status,
		Provider:      d.Provider,
		OrderNumber:   d.OrderNumber,
		Location:      d.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.Product.Found {
		id := d.Product.ID
		s.Product = &id
	}
	return s
}

func (d *ServiceDraft) service(importedBy string, now time.Time) models.Service {
	s := d.ScheduleDraft.schedule(importedBy, now)
	created := now
	if d.Date != nil {
		created = *d.Date
	}
	status := models.StatusCompleted
	if d.StatusOK {
		status = d.Status
	}
	return models.Service{
		Plate:                s.Plate,
		VIN:                  s.VIN,
		Model:                s.Model,
		ScheduledDate:        s.ScheduledDate,
		ServiceType:          s.ServiceType,
		Notes:                s.Notes,
		Product:              s.Product,
		Client:               s.Client,
		Status:               status,
		Provider:             s.Provider,
		OrderNumber:          s.OrderNumber,
		Location:             s.Location,
		DeviceID:             d.DeviceID,
		Technician:           d.Technician,
		InstallationLocation: d.InstallationLocation,
		ServiceAddress:       d.ServiceAddress,
		Odometer:             d.Odometer,
		BlockingEnabled:      d.BlockingEnabled,
		ProtocolNumber:       d.ProtocolNumber,
		ValidationNotes:      d.ValidationNotes,
		SecondaryDevice:      d.SecondaryDevice,
		ValidatedBy:          importedBy,
		ValidatedAt:          d.Date,
		Source:               models.SourceImport,
		CreatedAt:            created,
		UpdatedAt:            now,
	}
}

// updateSet builds the $set document for the fields the row supplied.
func (d *ScheduleDraft) updateSet(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	text := map[string]string{
		"plate":            "plate",
		"model":            "model",
		"notes":            "notes",
		"provider":         "provider",
		"orderNumber":      "order_number",
		"address":          "location.address",
		"city":             "location.city",
		"state":            "location.state",
		"responsibleName":  "location.responsible_name",
		"responsiblePhone": "location.responsible_phone",
	}
	for key, field := range text {
		if d.raw.Has(key) {
			set[field] = d.raw.String(key)
		}
	}
	if d.ServiceTypeOK {
		set["service_type"] = d.ServiceType
	}
	if d.StatusOK {
		set["status"] = d.Status
	}
	if d.ScheduledDate != nil {
		set["scheduled_date"] = *d.ScheduledDate
	}
	if d.Client.Found {
		set["client"] = d.Client.ID
	}
	if d.Product.Found {
		set["product"] = d.Product.ID
	}
	return set
}
