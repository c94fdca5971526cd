package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/events"
	"github.com/ukydev/fieldops/internal/metrics"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceHandler serves completed services.
type ServiceHandler struct {
	services  db.ServiceCollection
	schedules db.ScheduleCollection
	importer  Importer
	events    events.Publisher
	now       func() time.Time
}

func NewServiceHandler(services db.ServiceCollection, schedules db.ScheduleCollection, importer Importer, publisher events.Publisher) *ServiceHandler {
	return &ServiceHandler{services: services, schedules: schedules, importer: importer, events: publisher, now: time.Now}
}

// List accepts ?clientId= to narrow to one client.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	var clientID *primitive.ObjectID
	if raw := r.URL.Query().Get("clientId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "clientId inválido")
			return
		}
		clientID = &id
	}
	services, err := h.services.FindServices(r.Context(), clientID)
	if err != nil {
		writeStoreError(w, r, err, "Serviço não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	service, err := h.services.FindServiceByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Serviço não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, service)
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.services.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, r, err, "Serviço não encontrado")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validationRequest struct {
	ScheduleID     string                `json:"scheduleId"`
	ValidationData models.ValidationData `json:"validationData"`
}

type validatedEvent struct {
	ScheduleID string `json:"scheduleId"`
	ServiceID  string `json:"serviceId"`
	VIN        string `json:"vin"`
	By         string `json:"by"`
}

// FromValidation records the validation of a schedule as a service and
// closes the schedule.
func (h *ServiceHandler) FromValidation(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ScheduleID == "" {
		writeError(w, http.StatusBadRequest, "scheduleId é obrigatório")
		return
	}

	schedule, err := h.schedules.FindScheduleByID(r.Context(), req.ScheduleID)
	if err != nil {
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	if schedule.Status == models.StatusCompleted {
		writeError(w, http.StatusConflict, "Agendamento já concluído")
		return
	}

	user := currentUser(r)
	service := models.NewServiceFromSchedule(*schedule, req.ValidationData, user.Email, h.now())
	if err := h.services.InsertService(r.Context(), &service); err != nil {
		writeStoreError(w, r, err, "Serviço não encontrado")
		return
	}
	logger := middleware.Logger(r.Context()).WithFields(log.Fields{
		"schedule_id": req.ScheduleID,
		"service_id":  service.ID.Hex(),
	})
	if err := h.schedules.UpdateScheduleStatus(r.Context(), req.ScheduleID, models.StatusCompleted); err != nil {
		logger.WithError(err).Error("service created but schedule not closed")
		writeStoreError(w, r, err, "Agendamento não encontrado")
		return
	}
	logger.Info("schedule validated")

	events.Notify(r.Context(), h.events, events.ScheduleValidated, validatedEvent{
		ScheduleID: req.ScheduleID,
		ServiceID:  service.ID.Hex(),
		VIN:        service.VIN,
		By:         user.Email,
	})
	writeJSON(w, http.StatusCreated, service)
}

// BulkImport inserts historical services, at most batch.MaxServiceRows per call.
func (h *ServiceHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Services []batch.Row `json:"services"`
		Lines    []int       `json:"lines,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validLines(w, len(req.Services), req.Lines) {
		return
	}
	for i := range req.Services {
		req.Services[i] = flattenLocation(req.Services[i])
	}

	user := currentUser(r)
	res, err := h.importer.ImportServices(r.Context(), req.Services, req.Lines, user.Email)
	if err != nil {
		writeBatchError(w, r, err, "service", opCreate, len(req.Services))
		return
	}

	metrics.RecordBulk("service", opCreate, res.Count(), len(res.Failed))
	middleware.Logger(r.Context()).WithFields(log.Fields{
		"rows":      len(req.Services),
		"succeeded": res.Count(),
		"failed":    len(res.Failed),
	}).Info("service batch written")
	if res.Count() > 0 {
		events.Notify(r.Context(), h.events, events.ServicesImported, batchEvent{Count: res.Count(), Failed: len(res.Failed), By: user.Email})
	}
	writeBulkResult(w, res, opCreate, "importado(s)")
}
