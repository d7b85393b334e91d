package ratelimiter

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

// TestNew verifies limiter creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		burst    int
		keys     int
		wantNil  bool
		wantErr  bool
	}{
		{name: "standard", interval: time.Minute, burst: 5, keys: 100},
		{name: "zero burst", interval: time.Second, burst: 0, keys: 1},
		{name: "disabled", interval: 0, burst: 5, keys: 100, wantNil: true},
		{name: "no keys", interval: time.Minute, burst: 5, keys: 0, wantNil: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.interval, tt.burst, tt.keys, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (limiter == nil) != tt.wantNil {
				t.Fatalf("New() = %v, wantNil %v", limiter, tt.wantNil)
			}
		})
	}
}

// TestConsume verifies that each key gets its own bucket.
func TestConsume(t *testing.T) {
	clock := newClock()
	limiter, err := New(time.Minute, 3, 10, clock.Now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !limiter.Consume("alice") {
			t.Fatalf("attempt %d should be allowed (within burst)", i)
		}
	}
	if limiter.Consume("alice") {
		t.Fatal("attempt should be limited after burst exhausted")
	}
	if limiter.Allowed("alice") {
		t.Fatal("Allowed() should report the exhausted bucket")
	}

	if !limiter.Allowed("bob") || !limiter.Consume("bob") {
		t.Fatal("other keys should be unaffected")
	}

	// One token per minute
	clock.Advance(time.Minute)
	if !limiter.Allowed("alice") {
		t.Fatal("a token should be back after one interval")
	}
	if !limiter.Consume("alice") {
		t.Fatal("attempt should be allowed after replenishment")
	}
	if limiter.Consume("alice") {
		t.Fatal("only one token should have been regained")
	}
}

// TestAllowedDoesNotConsume verifies Allowed is a pure check.
func TestAllowedDoesNotConsume(t *testing.T) {
	limiter, err := New(time.Hour, 1, 10, newClock().Now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if !limiter.Allowed("alice") {
			t.Fatal("Allowed() must not consume tokens")
		}
	}
	if !limiter.Consume("alice") {
		t.Fatal("the single token should still be available")
	}
}

// TestReset verifies that Reset refills a bucket.
func TestReset(t *testing.T) {
	limiter, err := New(time.Hour, 1, 10, newClock().Now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	limiter.Consume("alice")
	if limiter.Allowed("alice") {
		t.Fatal("bucket should be empty")
	}

	limiter.Reset("alice")
	if !limiter.Allowed("alice") {
		t.Fatal("bucket should be full after Reset")
	}
}

// TestEviction verifies that the number of tracked keys is bounded.
func TestEviction(t *testing.T) {
	limiter, err := New(time.Hour, 1, 2, newClock().Now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	limiter.Consume("a")
	limiter.Consume("b")
	limiter.Consume("c") // evicts "a"

	if !limiter.Allowed("a") {
		t.Fatal("evicted key should start over with a full bucket")
	}
	if limiter.Allowed("c") {
		t.Fatal("recent key should still be limited")
	}
}

// TestNilLimiter verifies that a disabled limiter allows everything.
func TestNilLimiter(t *testing.T) {
	var limiter *Limiter

	for i := 0; i < 1000; i++ {
		if !limiter.Consume("alice") || !limiter.Allowed("alice") {
			t.Fatalf("nil limiter should allow attempt %d", i)
		}
	}
	limiter.Reset("alice")
}

// BenchmarkConsumeParallel measures concurrent Consume performance.
func BenchmarkConsumeParallel(b *testing.B) {
	limiter, err := New(time.Nanosecond, 1_000_000, 1024, nil)
	if err != nil {
		b.Fatalf("New() failed: %v", err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Consume("alice")
		}
	})
}
