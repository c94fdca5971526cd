// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// BulkRowsTotal counts bulk rows by entity, op (create|update|import) and
	// result (ok|failed|rejected).
	BulkRowsTotal *prometheus.CounterVec

	// ValidationErrorsTotal counts row validation messages by entity.
	ValidationErrorsTotal *prometheus.CounterVec

	// LoginAttemptsTotal counts logins by result.
	LoginAttemptsTotal *prometheus.CounterVec

	once sync.Once
)

// InitMetrics registers the collectors with the default registry. Only the
// first call has an effect.
func InitMetrics(prefix string) {
	once.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		)

		BulkRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_bulk_rows_total",
				Help: "Rows processed by bulk endpoints",
			},
			[]string{"entity", "op", "result"},
		)

		ValidationErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_validation_errors_total",
				Help: "Row validation errors reported by bulk endpoints",
			},
			[]string{"entity"},
		)

		LoginAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		)
	})
}

// RecordBulk counts the rows of one bulk call.
func RecordBulk(entity, op string, ok, failed int) {
	if BulkRowsTotal == nil {
		return
	}
	BulkRowsTotal.WithLabelValues(entity, op, "ok").Add(float64(ok))
	BulkRowsTotal.WithLabelValues(entity, op, "failed").Add(float64(failed))
}

// RecordRejected counts a batch rejected by validation.
func RecordRejected(entity, op string, rows, messages int) {
	if BulkRowsTotal == nil {
		return
	}
	BulkRowsTotal.WithLabelValues(entity, op, "rejected").Add(float64(rows))
	ValidationErrorsTotal.WithLabelValues(entity).Add(float64(messages))
}

// RecordLogin counts one login attempt.
func RecordLogin(result string) {
	if LoginAttemptsTotal == nil {
		return
	}
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware observes every request. The path label is the chi route
// pattern so ids do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if HTTPRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(rec.status)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
