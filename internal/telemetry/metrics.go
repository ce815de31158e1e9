// Package telemetry provides the service's Prometheus metrics and logger setup.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the main router when METRICS_ENABLED is true:
//
//	GET http://<host>:<SERVER_PORT>/metrics
//
// # Metric Groups
//
//   - Lifecycle operation counters and latency histograms (create, update, delete, get, audit)
//   - Saga compensation counters, by operation and step
//   - Tenant collection documents copied during renames
//   - HTTP request counters and latency histograms (labelled by route pattern, not raw URL)
//
// # Label Cardinality
//
// HTTP metrics use the chi route pattern (such as /org/get) rather than the raw
// request URL. Organization names never appear in labels.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route pattern, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Lifecycle metrics.
//
// LifecycleOperationsTotal counts every lifecycle operation by outcome
// (success, validation, conflict, not_found, forbidden, storage_failure, failure).
//
// Example PromQL queries:
//   - Conflict rate on create:  rate(org_lifecycle_operations_total{operation="create",outcome="conflict"}[5m])
//   - Storage failures:         increase(org_lifecycle_operations_total{outcome="storage_failure"}[1h]) > 0
//
// SagaCompensationsTotal counts compensating steps. A non-zero failure count
// means a partial state was left behind and `orgctl audit` should be run.
var (
	LifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_lifecycle_operations_total",
			Help: "Total number of organization lifecycle operations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	LifecycleOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "org_lifecycle_operation_duration_seconds",
			Help:    "Duration of organization lifecycle operations, by operation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"operation"},
	)

	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_saga_compensations_total",
			Help: "Total number of compensating steps run after a failed lifecycle step, by operation, step, and outcome.",
		},
		[]string{"operation", "step", "outcome"},
	)
)

// TenantDocumentsCopiedTotal counts documents copied between tenant
// collections during renames.
var TenantDocumentsCopiedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "tenant_collection_documents_copied_total",
		Help: "Total number of tenant documents copied while migrating collections.",
	},
)

// LifecycleRecorder reports lifecycle outcomes to the metrics above.
type LifecycleRecorder struct{}

// ObserveOperation records one lifecycle operation.
func (LifecycleRecorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	LifecycleOperationsTotal.WithLabelValues(operation, outcome).Inc()
	LifecycleOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveCompensation records one compensating step.
func (LifecycleRecorder) ObserveCompensation(operation, step, outcome string) {
	SagaCompensationsTotal.WithLabelValues(operation, step, outcome).Inc()
}

// ObserveCopiedDocuments records a batch of copied tenant documents.
func ObserveCopiedDocuments(n int) {
	TenantDocumentsCopiedTotal.Add(float64(n))
}
