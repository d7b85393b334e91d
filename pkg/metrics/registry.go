// Package metrics provides optional Prometheus metrics for kasten components.
//
// All metrics are optional - if not initialized, components use no-op
// implementations with zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	dbMetrics := prometheus.NewDatabaseMetrics("badger")
//
//	// Flush a snapshot for node_exporter's textfile collector
//	metrics.WriteTextfile("/var/lib/node_exporter/kasten.prom")
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all kasten metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// It's safe to call multiple times - subsequent calls are ignored. If not
// called, GetRegistry returns nil and all metrics constructors return no-op
// implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes the current value of every registered metric to path
// in the Prometheus text format. The file is replaced atomically.
//
// Short-lived processes use this instead of an HTTP endpoint: node_exporter's
// textfile collector picks the file up on its next scrape.
func WriteTextfile(path string) error {
	if !IsEnabled() {
		return errors.New("metrics: registry not initialized")
	}
	return prometheus.WriteToTextfile(path, GetRegistry())
}
