// Package database is the storage engine of kasten: the directory tree of
// every user, per-node group permissions, users, groups and sessions, all
// persisted as compact binary records in a transactional kv.Store.
//
// Database is the only handle the rest of the program sees. Each mutating
// method runs as one Update transaction spanning every collection it
// touches, so either all of its writes commit or none do. Read methods run in
// View transactions and may observe state that is slightly stale relative to
// a concurrently committing write.
//
// Missing entities are reported as *metadata.StoreError with a matching code
// (ErrNoSuchFile, ErrNoSuchDir, ErrNoSuchUser, ErrNoSuchTarget). Store-level
// failures, including kv.ErrConflict after exhausted retries, are wrapped and
// passed through.
package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/plustik/kasten/pkg/kv"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metrics"
)

// Clock supplies session timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Options configures a Database. The zero value is usable.
type Options struct {
	// Clock stamps new sessions (default: SystemClock)
	Clock Clock

	// IDSource draws candidate identifiers (default: RandomIDs)
	IDSource IDSource

	// Metrics records per-operation metrics (default: no-op)
	Metrics metrics.DatabaseMetrics

	// GroupCacheSize is the number of decoded groups kept in memory.
	// 0 disables the cache.
	GroupCacheSize int
}

// Database composes the tree, permission, user, group and session stores over
// one kv.Store. It is safe for concurrent use and holds no locks around store
// access.
type Database struct {
	store   kv.Store
	clock   Clock
	newID   IDSource
	metrics metrics.DatabaseMetrics
	groups  *groupCache
}

// New creates a Database on top of store. store must expose Collections().
func New(store kv.Store, opts Options) (*Database, error) {
	if store == nil {
		return nil, fmt.Errorf("database: nil store")
	}

	d := &Database{
		store:   store,
		clock:   opts.Clock,
		newID:   opts.IDSource,
		metrics: opts.Metrics,
	}
	if d.clock == nil {
		d.clock = SystemClock{}
	}
	if d.newID == nil {
		d.newID = RandomIDs
	}
	if d.metrics == nil {
		d.metrics = metrics.NewNoopDatabaseMetrics()
	}
	if opts.GroupCacheSize > 0 {
		cache, err := newGroupCache(opts.GroupCacheSize, d.metrics)
		if err != nil {
			return nil, err
		}
		d.groups = cache
	}

	return d, nil
}

// Close closes the underlying store.
func (d *Database) Close() error {
	return d.store.Close()
}

// view runs fn in a read-only transaction and records the outcome under op.
func (d *Database) view(op string, fn func(txn kv.Txn) error) error {
	start := time.Now()
	err := wrapStoreError(op, d.store.View(fn))
	d.metrics.RecordOperation(op, time.Since(start), err)
	return err
}

// update runs fn in a read-write transaction and records the outcome under op.
func (d *Database) update(op string, fn func(txn kv.Txn) error) error {
	start := time.Now()
	err := wrapStoreError(op, d.store.Update(fn))
	d.metrics.RecordOperation(op, time.Since(start), err)
	return err
}

// wrapStoreError adds the operation name to infrastructure errors. Domain
// errors are returned untouched.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := metadata.CodeOf(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// get reads key from c, reporting absence as ok=false.
func get(txn kv.Txn, c kv.Collection, key []byte) ([]byte, bool, error) {
	val, err := txn.Get(c, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
