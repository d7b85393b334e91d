package database

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/plustik/kasten/pkg/metadata"
	"github.com/plustik/kasten/pkg/metrics"
)

// groupCache keeps decoded groups by ID.
//
// Writers call invalidate after their transaction commits. A reader only
// fills the cache if no invalidation happened since it started reading, so
// a value read before a commit can't be cached after that commit's
// invalidation.
type groupCache struct {
	mu         sync.Mutex
	generation uint64
	entries    *lru.Cache[uint64, *metadata.Group]
	metrics    metrics.DatabaseMetrics
}

func newGroupCache(size int, m metrics.DatabaseMetrics) (*groupCache, error) {
	entries, err := lru.New[uint64, *metadata.Group](size)
	if err != nil {
		return nil, err
	}
	return &groupCache{entries: entries, metrics: m}, nil
}

// get returns a copy of the cached group and the generation to pass to put.
func (c *groupCache) get(id uint64) (*metadata.Group, uint64) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	if g, ok := c.entries.Get(id); ok {
		c.metrics.RecordCacheHit("group")
		return cloneGroup(g), gen
	}
	c.metrics.RecordCacheMiss("group")
	return nil, gen
}

// put caches g unless an invalidation happened after gen was taken.
func (c *groupCache) put(g *metadata.Group, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.entries.Add(g.ID, cloneGroup(g))
	}
}

func (c *groupCache) invalidate(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries.Remove(id)
}

func cloneGroup(g *metadata.Group) *metadata.Group {
	clone := *g
	clone.MemberIDs = append([]uint64(nil), g.MemberIDs...)
	clone.AdminIDs = append([]uint64(nil), g.AdminIDs...)
	return &clone
}
