package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/events"
	"github.com/ukydev/fieldops/internal/export"
	"github.com/ukydev/fieldops/internal/metrics"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	opCreate = "create"
	opUpdate = "update"
)

// Importer runs batches through normalization, resolution and validation
// before writing them.
type Importer interface {
	CreateSchedules(ctx context.Context, rows []batch.Row, lines []int, createdBy string) (models.BulkResult, error)
	UpdateSchedules(ctx context.Context, rows []batch.Row, lines []int) (models.BulkResult, error)
	UpdateSchedule(ctx context.Context, id primitive.ObjectID, row batch.Row) (models.BulkResult, error)
	ImportServices(ctx context.Context, rows []batch.Row, lines []int, importedBy string) (models.BulkResult, error)
}

// batchEvent is the payload of bulk domain events.
type batchEvent struct {
	Count  int    `json:"count"`
	Failed int    `json:"failed"`
	By     string `json:"by"`
}

// ScheduleHandler serves schedules.
type ScheduleHandler struct {
	schedules db.ScheduleCollection
	importer  Importer
	events    events.Publisher
	maxUpload int64
}

func NewScheduleHandler(schedules db.ScheduleCollection, importer Importer, publisher events.Publisher, maxUpload int64) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, importer: importer, events: publisher, maxUpload: maxUpload}
}

// List supports ?status=&serviceType=&clientId=&vin=. Status and service
// type go through the same normalization as imported rows.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter db.ScheduleFilter
	if raw := q.Get("status"); raw != "" {
		if s, ok := normalize.Status(raw); ok {
			filter.Status = s
		} else {
			filter.Status = models.Status(raw)
		}
	}
	if raw := q.Get("serviceType"); raw != "" {
		if t, ok := normalize.ServiceType(raw); ok {
			filter.ServiceType = t
		} else {
			filter.ServiceType = models.ServiceType(raw)
		}
	}
	if raw := q.Get("clientId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "clientId inválido")
			return
		}
		filter.ClientID = &id
	}
	filter.VIN = q.Get("vin")

	schedules, err := h.schedules.FindSchedules(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.schedules.FindScheduleByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// Create runs a single schedule through the bulk create pipeline.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var row batch.Row
	if err := decodeJSON(r, &row); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	res, err := h.importer.CreateSchedules(r.Context(), []batch.Row{flattenLocation(row)}, nil, currentUser(r).Email)
	if err != nil {
		writeBatchError(w, r, err, "schedule", opCreate, 1)
		return
	}
	if res.Partial() || res.Count() == 0 {
		writeError(w, http.StatusInternalServerError, "Falha ao criar agendamento", failureMessages(res)...)
		return
	}
	schedule, err := h.schedules.FindScheduleByID(r.Context(), res.Succeeded[0])
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

// Update rewrites the fields present in the body; absent fields are kept.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.schedules.FindScheduleByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	var row batch.Row
	if err := decodeJSON(r, &row); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	res, err := h.importer.UpdateSchedule(r.Context(), existing.ID, flattenLocation(row))
	if err != nil {
		writeBatchError(w, r, err, "schedule", opUpdate, 1)
		return
	}
	if res.Partial() {
		writeError(w, http.StatusInternalServerError, "Falha ao atualizar agendamento", failureMessages(res)...)
		return
	}
	updated, err := h.schedules.FindScheduleByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// UpdateStatus accepts any spelling the normalizer recognizes.
func (h *ScheduleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	status, ok := normalize.Status(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Status %q inválido", req.Status))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.schedules.UpdateScheduleStatus(r.Context(), id, status); err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	schedule, err := h.schedules.FindScheduleByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.schedules.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scheduleBatch is the bulk body. Lines optionally carries the spreadsheet
// row of each schedule so messages point at the sheet, not the array.
type scheduleBatch struct {
	Schedules []batch.Row `json:"schedules"`
	Lines     []int       `json:"lines,omitempty"`
}

// validLines reports whether lines is absent or has one entry per row.
func validLines(w http.ResponseWriter, rows int, lines []int) bool {
	if len(lines) == 0 || len(lines) == rows {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("lines deve ter %d entrada(s), recebidas %d", rows, len(lines)))
	return false
}

// BulkCreate inserts every row or, when any row is invalid, none.
func (h *ScheduleHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req scheduleBatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if validLines(w, len(req.Schedules), req.Lines) {
		h.run(w, r, opCreate, req.Schedules, req.Lines)
	}
}

// BulkUpdate matches rows to schedules by vin.
func (h *ScheduleHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req scheduleBatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if validLines(w, len(req.Schedules), req.Lines) {
		h.run(w, r, opUpdate, req.Schedules, req.Lines)
	}
}

// Import reads the first sheet of the uploaded workbook. ?mode=update sends
// the rows to the bulk update instead of the bulk create.
func (h *ScheduleHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Arquivo não enviado")
		return
	}
	defer file.Close()

	rows, lines, err := export.ReadRows(file, batch.ScheduleColumns)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Planilha inválida: %v", err))
		return
	}
	middleware.Logger(r.Context()).WithFields(log.Fields{"rows": len(rows), "mode": r.URL.Query().Get("mode")}).Info("workbook read")

	op := opCreate
	if r.URL.Query().Get("mode") == "update" {
		op = opUpdate
	}
	h.run(w, r, op, rows, lines)
}

// Template returns an empty workbook with the import headers.
func (h *ScheduleHandler) Template(w http.ResponseWriter, r *http.Request) {
	setAttachment(w, "modelo_agendamentos.xlsx")
	if err := export.WriteTemplate(w, export.ScheduleSheet, batch.ScheduleColumns); err != nil {
		middleware.Logger(r.Context()).WithError(err).Error("failed to write import template")
	}
}

func (h *ScheduleHandler) run(w http.ResponseWriter, r *http.Request, op string, rows []batch.Row, lines []int) {
	for i := range rows {
		rows[i] = flattenLocation(rows[i])
	}
	user := currentUser(r)

	var (
		res   models.BulkResult
		err   error
		event string
		verb  string
	)
	switch op {
	case opUpdate:
		res, err = h.importer.UpdateSchedules(r.Context(), rows, lines)
		event, verb = events.SchedulesUpdated, "atualizado(s)"
	default:
		res, err = h.importer.CreateSchedules(r.Context(), rows, lines, user.Email)
		event, verb = events.SchedulesImported, "criado(s)"
	}
	if err != nil {
		writeBatchError(w, r, err, "schedule", op, len(rows))
		return
	}

	count := bulkCount(op, res)
	metrics.RecordBulk("schedule", op, count, len(rows)-count)
	middleware.Logger(r.Context()).WithFields(log.Fields{
		"op":        op,
		"rows":      len(rows),
		"succeeded": res.Count(),
		"failed":    len(res.Failed),
		"matched":   res.Matched,
		"modified":  res.Modified,
	}).Info("schedule batch written")
	if count > 0 {
		events.Notify(r.Context(), h.events, event, batchEvent{Count: count, Failed: len(rows) - count, By: user.Email})
	}
	writeBulkResult(w, res, op, verb)
}

// flattenLocation lifts the fields of a nested "location" object to the top
// level of row, where the decoder expects them.
func flattenLocation(row batch.Row) batch.Row {
	loc, ok := row["location"].(map[string]any)
	if !ok {
		return row
	}
	delete(row, "location")
	for k, v := range loc {
		if _, taken := row[k]; !taken {
			row[k] = v
		}
	}
	return row
}

func failureMessages(res models.BulkResult) []string {
	out := make([]string, 0, len(res.Failed))
	for _, f := range res.Failed {
		out = append(out, f.Reason)
	}
	return out
}
