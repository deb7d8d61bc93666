package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portal"

var (
	// Purchase order lifecycle
	POOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "po_operations_total",
			Help:      "Total number of purchase order operations",
		},
		[]string{"operation", "result"}, // operation: create_legacy, create_relational, update, attach_pi, delete
	)

	// Compensating deletes after a failed commit
	StorageRollbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_rollbacks_total",
			Help:      "Total number of stored objects removed after a failed commit",
		},
		[]string{"result"},
	)

	AlertsCreatedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total number of alert rows created",
		},
		[]string{"alert_type"},
	)

	AlertEmailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_emails_total",
			Help:      "Total number of alert emails by outcome",
		},
		[]string{"result"}, // sent, failed, dropped
	)

	InvoiceNumbersCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_numbers_total",
			Help:      "Total number of invoice numbers issued",
		},
		[]string{"mode"},
	)

	SequenceCommitFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_sequence_commit_failures_total",
			Help:      "Total number of invoice counter increments that failed after the invoice was stored",
		},
	)

	AuthCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"method", "result"}, // method: firebase, admin_jwt
	)

	DBOperationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors",
		},
		[]string{"method", "path", "status"},
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Information about the portal service",
		},
		[]string{"version"},
	)
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry
func InitMetrics(version string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			POOperationCounter,
			StorageRollbackCounter,
			AlertsCreatedCounter,
			AlertEmailCounter,
			InvoiceNumbersCounter,
			SequenceCommitFailureCounter,
			AuthCounter,
			DBOperationHistogram,
			RequestDurationHistogram,
			APIRequestCounter,
			APIErrorCounter,
			InfoGauge,
		)
		InfoGauge.WithLabelValues(version).Set(1)
	})
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			method := c.Request().Method
			path := c.Path()

			APIRequestCounter.WithLabelValues(method, path).Inc()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			RequestDurationHistogram.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			if c.Response().Status >= 400 {
				APIErrorCounter.WithLabelValues(method, path, status).Inc()
			}
			return err
		}
	}
}

// HandlerFunc returns a HTTP handler for metrics endpoint
func HandlerFunc() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// TrackDBOperation returns a function that tracks database operation duration
func TrackDBOperation(operation string) func(time.Time) {
	return func(startTime time.Time) {
		DBOperationHistogram.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordPOOperation counts a purchase order operation outcome
func RecordPOOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	POOperationCounter.WithLabelValues(operation, result).Inc()
}

func RecordRollback(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StorageRollbackCounter.WithLabelValues(result).Inc()
}
