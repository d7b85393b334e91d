// Package ratelimiter throttles repeated events per key.
package ratelimiter

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, e.g. per login name.
//
// Each bucket holds up to burst tokens and regains one token per interval.
// Buckets are kept in an LRU of bounded size; an evicted key starts over
// with a full bucket. A nil *Limiter allows everything.
//
// Thread safety:
// All methods are safe for concurrent use.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// New creates a Limiter.
//
// Parameters:
//   - interval: Time to regain one token. 0 disables limiting (returns nil).
//   - burst: Bucket capacity, at least 1
//   - keys: Maximum number of tracked keys
//   - now: Time source (nil uses time.Now)
func New(interval time.Duration, burst, keys int, now func() time.Time) (*Limiter, error) {
	if interval <= 0 {
		return nil, nil
	}
	if burst < 1 {
		burst = 1
	}
	if now == nil {
		now = time.Now
	}

	buckets, err := lru.New[string, *rate.Limiter](keys)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		limit:   rate.Every(interval),
		burst:   burst,
		now:     now,
		buckets: buckets,
	}, nil
}

// Allowed reports whether key has a token left, without consuming it.
func (l *Limiter) Allowed(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets.Get(key)
	if !ok {
		return true
	}
	return bucket.TokensAt(l.now()) >= 1
}

// Consume takes a token from key's bucket and reports whether one was
// available.
func (l *Limiter) Consume(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, bucket)
	}
	return bucket.AllowN(l.now(), 1)
}

// Reset forgets key, refilling its bucket.
func (l *Limiter) Reset(key string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets.Remove(key)
}
