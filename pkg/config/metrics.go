package config

import (
	"github.com/plustik/kasten/internal/logger"
	"github.com/plustik/kasten/pkg/metrics"
	promMetrics "github.com/plustik/kasten/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// DatabaseMetrics is the collector for the database (never nil, uses noop if disabled)
	DatabaseMetrics metrics.DatabaseMetrics

	// Textfile is where Flush writes metrics ("" if disabled)
	Textfile string
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed metrics for the configured backend
//
// If metrics are disabled:
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			DatabaseMetrics: metrics.NewNoopDatabaseMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		DatabaseMetrics: promMetrics.NewDatabaseMetrics(cfg.Database.Type),
		Textfile:        cfg.Metrics.Textfile,
	}
}

// Flush writes the collected metrics to the textfile, if one is configured.
// Failures are logged, not returned, so they never fail a command.
func (r *MetricsResult) Flush() {
	if r.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(r.Textfile); err != nil {
		logger.Warn("could not write metrics to %s: %v", r.Textfile, err)
	}
}
