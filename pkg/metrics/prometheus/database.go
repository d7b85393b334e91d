package prometheus

import (
	"time"

	"github.com/plustik/kasten/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// databaseMetrics is the Prometheus implementation of metrics.DatabaseMetrics.
type databaseMetrics struct {
	backend           string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewDatabaseMetrics creates a Prometheus-backed DatabaseMetrics registered
// with the global registry.
//
// Parameters:
//   - backend: Store backend ("badger", "bolt"), used as a label
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewDatabaseMetrics(backend string) metrics.DatabaseMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopDatabaseMetrics()
	}
	return NewDatabaseMetricsWith(metrics.GetRegistry(), backend)
}

// NewDatabaseMetricsWith registers the database metrics with reg.
func NewDatabaseMetricsWith(reg prometheus.Registerer, backend string) metrics.DatabaseMetrics {
	return &databaseMetrics{
		backend: backend,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kasten_database_operations_total",
				Help: "Total number of database operations by backend, operation, and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "kasten_database_operation_duration_seconds",
				Help: "Duration of database operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"backend", "operation"},
		),
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kasten_database_cache_hits_total",
				Help: "Total number of database cache hits by backend and cache type",
			},
			[]string{"backend", "cache_type"},
		),
		cacheMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kasten_database_cache_misses_total",
				Help: "Total number of database cache misses by backend and cache type",
			},
			[]string{"backend", "cache_type"},
		),
	}
}

func (m *databaseMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(m.backend, operation, metrics.Status(err)).Inc()
	m.operationDuration.WithLabelValues(m.backend, operation).Observe(duration.Seconds())
}

func (m *databaseMetrics) RecordCacheHit(cacheType string) {
	m.cacheHits.WithLabelValues(m.backend, cacheType).Inc()
}

func (m *databaseMetrics) RecordCacheMiss(cacheType string) {
	m.cacheMisses.WithLabelValues(m.backend, cacheType).Inc()
}
