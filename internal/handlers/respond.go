package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/db"
	"github.com/ukydev/fieldops/internal/metrics"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
)

// maxDetails bounds the validation messages returned in one response.
const maxDetails = 10

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// BulkResponse is the body of every bulk write.
type BulkResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// writeStoreError answers 404 for missing documents and 500 otherwise.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	middleware.Logger(r.Context()).WithError(err).Error("store operation failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeBatchError maps importer errors: validation failures and bad batch
// sizes are the caller's fault, anything else is ours.
func writeBatchError(w http.ResponseWriter, r *http.Request, err error, entity, op string, rows int) {
	var verr *batch.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.RecordRejected(entity, op, rows, len(verr.Messages))
		middleware.Logger(r.Context()).WithFields(log.Fields{
			"entity": entity,
			"op":     op,
			"rows":   rows,
			"errors": len(verr.Messages),
		}).Info("batch rejected by validation")
		writeError(w, http.StatusBadRequest, "Erro de validação", verr.Truncated(maxDetails)...)
	case errors.Is(err, batch.ErrEmptyBatch), errors.Is(err, batch.ErrTooManyRows):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeStoreError(w, r, err, "Registro não encontrado")
	}
}

// bulkCount is what a bulk response reports as written: inserted documents
// for a create, modified documents for an update.
func bulkCount(op string, res models.BulkResult) int {
	if op == opUpdate {
		return int(res.Modified)
	}
	return res.Count()
}

// writeBulkResult answers 200 when every row was written and 207 otherwise.
// Update rows the store accepted but that matched no document, because the
// schedule was removed after the vin lookup, count as failed.
func writeBulkResult(w http.ResponseWriter, res models.BulkResult, op, verb string) {
	count := bulkCount(op, res)
	failed := len(res.Failed)
	errs := make([]string, 0, failed+1)
	for _, f := range res.Failed {
		line := f.Line
		if line == 0 {
			line = f.Index + 1
		}
		errs = append(errs, fmt.Sprintf("Linha %d (%s): %s", line, f.Input, f.Reason))
	}
	if op == opUpdate {
		if missing := res.Count() - int(res.Matched); missing > 0 {
			failed += missing
			errs = append(errs, fmt.Sprintf("%d registro(s) não encontrado(s) ao gravar", missing))
		}
	}

	if failed == 0 {
		writeJSON(w, http.StatusOK, BulkResponse{
			Success: true,
			Count:   count,
			Message: fmt.Sprintf("%d registro(s) %s com sucesso", count, verb),
		})
		return
	}
	if len(errs) > maxDetails {
		errs = errs[:maxDetails]
	}
	writeJSON(w, http.StatusMultiStatus, BulkResponse{
		Success: count > 0,
		Count:   count,
		Message: fmt.Sprintf("%d registro(s) %s, %d com erro", count, verb, failed),
		Errors:  errs,
	})
}

// currentUser is the caller's identity; Authenticate guarantees it on /api routes.
func currentUser(r *http.Request) *models.Claims {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return &models.Claims{}
	}
	return claims
}
