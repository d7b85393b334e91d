package metrics

import "time"

// DatabaseMetrics provides observability for database operations.
//
// This interface is optional - if not provided to the database, operations
// proceed without metrics collection (zero overhead).
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewDatabaseMetrics("badger")
//	db, err := database.New(store, database.Options{Metrics: m})
//
//	// Without metrics (no-op)
//	db, err := database.New(store, database.Options{})
type DatabaseMetrics interface {
	// RecordOperation records a completed facade operation with its name,
	// duration, and outcome.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "InsertNewFile", "RemoveDir")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordCacheHit records a cache hit.
	//
	// Parameters:
	//   - cacheType: Type of cache (e.g., "group")
	RecordCacheHit(cacheType string)

	// RecordCacheMiss records a cache miss.
	RecordCacheMiss(cacheType string)
}

// NewNoopDatabaseMetrics returns a DatabaseMetrics that discards everything.
func NewNoopDatabaseMetrics() DatabaseMetrics {
	return noopDatabaseMetrics{}
}

// noopDatabaseMetrics is a no-op implementation of DatabaseMetrics with zero overhead.
type noopDatabaseMetrics struct{}

func (noopDatabaseMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (noopDatabaseMetrics) RecordCacheHit(cacheType string)                                     {}
func (noopDatabaseMetrics) RecordCacheMiss(cacheType string)                                    {}
