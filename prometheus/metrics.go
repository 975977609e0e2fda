package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   *prometheus.CounterVec
	LoginCounter        *prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Entity metrics
	EntityOperationsCounter *prometheus.CounterVec

	// Upload metrics
	UploadBytesCounter         *prometheus.CounterVec
	FileCleanupFailuresCounter prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg. When reg is also a
// Gatherer (like *prometheus.Registry) Handler serves it.
func NewMetrics(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		AuthAttemptsCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_auth_attempts_total",
				Help: "Total number of bearer token authentication attempts",
			},
		),
		AuthErrorsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_errors_total",
				Help: "Total number of authentication errors",
			},
			[]string{"type"}, // missing_token, invalid_token, expired_token, unknown_subject
		),
		LoginCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_login_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		DbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),
		EntityOperationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_entity_operations_total",
				Help: "Total number of entity operations",
			},
			[]string{"entity", "operation"},
		),
		UploadBytesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_upload_bytes_total",
				Help: "Total number of uploaded bytes stored",
			},
			[]string{"subfolder"},
		),
		FileCleanupFailuresCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_file_cleanup_failures_total",
				Help: "Total number of stale file deletions that failed",
			},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(collection, operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.DbOperationDuration.WithLabelValues(collection, operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthAttempt counts a bearer token check
func (m *Metrics) RecordAuthAttempt() {
	if m == nil {
		return
	}
	m.AuthAttemptsCounter.Inc()
}

// RecordAuthError records an authentication error by type
func (m *Metrics) RecordAuthError(errorType string) {
	if m == nil {
		return
	}
	m.AuthErrorsCounter.WithLabelValues(errorType).Inc()
}

// RecordLogin records a login attempt outcome
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginCounter.WithLabelValues(outcome).Inc()
}

// RecordEntityOperation increments the counter for entity operations
func (m *Metrics) RecordEntityOperation(entity, operation string) {
	if m == nil {
		return
	}
	m.EntityOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordUpload adds stored upload bytes
func (m *Metrics) RecordUpload(subfolder string, size int) {
	if m == nil {
		return
	}
	m.UploadBytesCounter.WithLabelValues(subfolder).Add(float64(size))
}

// RecordCleanupFailure counts a failed stale file deletion
func (m *Metrics) RecordCleanupFailure() {
	if m == nil {
		return
	}
	m.FileCleanupFailuresCounter.Inc()
}

// Middleware records HTTP request metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)

			m.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HttpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
