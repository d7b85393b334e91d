// Package gc sweeps leftovers out of a kasten database.
//
// Two kinds of garbage accumulate over time:
//   - permission records whose node is gone, left behind when the second
//     transaction of a directory removal fails
//   - sessions older than the configured maximum age that nobody logged
//     out of
//
// The collector can run once on demand or periodically in the background.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plustik/kasten/internal/logger"
)

// Store is the part of the database the collector sweeps.
type Store interface {
	OrphanPermissions() ([]uint64, error)
	RemoveOrphanPermissions(ids []uint64) (int, error)
}

// SessionPruner removes expired sessions and reports how many it removed.
type SessionPruner interface {
	PruneSessions() (int, error)
}

// Collector removes orphaned permission records and expired sessions.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	store    Store
	sessions SessionPruner
	config   Config

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether Start runs the background loop
	Enabled bool

	// Interval is how often the background loop runs (default: 1h)
	Interval time.Duration

	// BatchSize is how many permission records are deleted per
	// transaction (default: 500)
	BatchSize int

	// DryRun reports what would be removed without removing it
	DryRun bool
}

// NewCollector creates a collector over store. sessions may be nil, in
// which case sessions are left alone.
//
// The collector is not started. Call Start for background collection or
// RunNow for a single pass.
func NewCollector(store Store, sessions SessionPruner, config Config) *Collector {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}

	return &Collector{
		store:    store,
		sessions: sessions,
		config:   config,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins background garbage collection. It is a no-op when the
// collector is disabled or already started.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)

	go c.worker()
}

// Stop signals the background loop and waits for the current pass to
// finish, or for ctx to expire. Stopping a collector that was never started
// returns at once; Stop may be called more than once.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping garbage collector...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one collection pass and blocks until it completes or ctx
// is cancelled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Debug("Running garbage collection (manual trigger)")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.Interval)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single pass:
//  1. list permission records without a node
//  2. delete them in batches, re-checking each ID inside the transaction
//  3. prune expired sessions
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	orphans, err := c.store.OrphanPermissions()
	if err != nil {
		return stats, fmt.Errorf("failed to list orphaned permissions: %w", err)
	}
	stats.OrphanedCount = uint64(len(orphans))

	if c.config.DryRun {
		for i, id := range orphans {
			if i == 10 {
				logger.Info("GC: ... and %d more", len(orphans)-10)
				break
			}
			logger.Info("GC: would remove permission record of node %d", id)
		}
		return stats, nil
	}

	for i := 0; i < len(orphans); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		end := min(i+c.config.BatchSize, len(orphans))
		removed, err := c.store.RemoveOrphanPermissions(orphans[i:end])
		if err != nil {
			logger.Warn("GC: batch delete failed: %v", err)
			stats.FailedCount += uint64(end - i)
			continue
		}
		stats.DeletedCount += uint64(removed)
	}

	if c.sessions != nil {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n, err := c.sessions.PruneSessions()
		if err != nil {
			return stats, fmt.Errorf("failed to prune sessions: %w", err)
		}
		stats.SessionsPruned = uint64(n)
	}

	return stats, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime      time.Time
	EndTime        time.Time
	OrphanedCount  uint64 // permission records without a node
	DeletedCount   uint64 // orphaned records removed
	FailedCount    uint64 // orphaned records in batches that failed
	SessionsPruned uint64
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("orphaned=%d deleted=%d failed=%d sessions_pruned=%d duration=%s",
		s.OrphanedCount, s.DeletedCount, s.FailedCount, s.SessionsPruned, s.Duration())
}
