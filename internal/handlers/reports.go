package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/export"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportBuilder assembles the report bundle.
type ReportBuilder interface {
	Build(ctx context.Context, q reports.Query) (reports.Report, error)
}

// ReportHandler serves the dashboard report and the spreadsheet exports.
type ReportHandler struct {
	builder   ReportBuilder
	schedules db.ScheduleCollection
	services  db.ServiceCollection
	now       func() time.Time
}

func NewReportHandler(builder ReportBuilder, schedules db.ScheduleCollection, services db.ServiceCollection) *ReportHandler {
	return &ReportHandler{builder: builder, schedules: schedules, services: services, now: time.Now}
}

// Get accepts ?startDate=&endDate=&clientId=. An unusable clientId is
// ignored and flagged in the echoed filters.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.builder.Build(r.Context(), reports.Query{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		ClientID:  q.Get("clientId"),
	})
	if err != nil {
		writeStoreError(w, r, err, "Relatório não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Export streams every schedule or service as an xlsx attachment.
// ?type=schedules|services, schedules by default.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	// Large collections take longer than the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		middleware.Logger(r.Context()).WithError(err).Debug("write deadline not cleared")
	}

	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = "schedules"
	}

	var buf bytes.Buffer
	switch kind {
	case "schedules":
		items, err := h.schedules.FindSchedules(r.Context(), db.ScheduleFilter{})
		if err != nil {
			writeStoreError(w, r, err, "Agendamento não encontrado")
			return
		}
		if err := export.WriteSchedules(&buf, items); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "services":
		items, err := h.services.FindServices(r.Context(), nil)
		if err != nil {
			writeStoreError(w, r, err, "Serviço não encontrado")
			return
		}
		if err := export.WriteServices(&buf, items); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Tipo de exportação %q inválido", kind))
		return
	}

	setAttachment(w, export.Filename(kind, h.now()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		middleware.Logger(r.Context()).WithError(err).Warn("export interrupted")
	}
}

func setAttachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
