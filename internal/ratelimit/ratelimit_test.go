package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safar/fruit-store/internal/apperr"
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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

// exerciseWindow checks the shared window contract against any backend.
// advance moves time forward for that backend.
func exerciseWindow(t *testing.T, l Limiter, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= DefaultMaxAttempts; i++ {
		if err := Check(ctx, l, "10.0.0.1"); err != nil {
			t.Fatalf("Attempt %d should pass: %v", i, err)
		}
	}

	err := Check(ctx, l, "10.0.0.1")
	if !apperr.Is(err, apperr.RateLimited) {
		t.Fatalf("Attempt 11 should be RateLimited, got %v", err)
	}
	if e, ok := err.(*apperr.Error); !ok || e.RetryAfter <= 0 {
		t.Errorf("RateLimited error should carry RetryAfter, got %#v", err)
	}

	if err := Check(ctx, l, "10.0.0.2"); err != nil {
		t.Errorf("Other addresses have their own window: %v", err)
	}

	advance(DefaultWindow + time.Second)

	d, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow after window: %v", err)
	}
	if !d.Allowed || d.Count != 1 {
		t.Errorf("Expected reset window after expiry, got %+v", d)
	}
}

func TestMemoryWindow(t *testing.T) {
	clock := newClock()
	l := NewMemory(MemoryOptions{Now: clock.Now})
	exerciseWindow(t, l, clock.Advance)
}

func TestMemoryWindowBoundary(t *testing.T) {
	clock := newClock()
	l := NewMemory(MemoryOptions{MaxAttempts: 1, Window: time.Minute, Now: clock.Now})
	ctx := context.Background()

	l.Allow(ctx, "a")
	clock.Advance(time.Minute)
	if d, _ := l.Allow(ctx, "a"); d.Allowed {
		t.Error("Window is still open at exactly its length")
	}
	clock.Advance(time.Nanosecond)
	if d, _ := l.Allow(ctx, "a"); !d.Allowed {
		t.Error("Window should reset once its length has passed")
	}
}

func TestMemorySweep(t *testing.T) {
	clock := newClock()
	l := NewMemory(MemoryOptions{Window: time.Minute, SweepInterval: time.Minute, Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		l.Allow(ctx, fmt.Sprintf("10.0.0.%d", i))
	}
	if l.Len() != 50 {
		t.Fatalf("Expected 50 tracked keys, got %d", l.Len())
	}

	clock.Advance(2 * time.Minute)
	l.Allow(ctx, "10.0.1.1")

	if l.Len() != 1 {
		t.Errorf("Expired windows should be swept, %d keys remain", l.Len())
	}
}

func TestMemoryMaxKeys(t *testing.T) {
	clock := newClock()
	l := NewMemory(MemoryOptions{MaxKeys: 3, SweepInterval: time.Hour, Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, fmt.Sprintf("k%d", i))
		clock.Advance(time.Second)
	}
	l.Allow(ctx, "k3")

	if l.Len() != 3 {
		t.Errorf("Key count should stay bounded at 3, got %d", l.Len())
	}

	// k0 was evicted, so it starts a fresh window.
	if d, _ := l.Allow(ctx, "k0"); d.Count != 1 {
		t.Errorf("Expected k0 to be evicted, got count %d", d.Count)
	}
}

func TestMemoryMaxKeysEmptyKey(t *testing.T) {
	clock := newClock()
	l := NewMemory(MemoryOptions{MaxKeys: 3, SweepInterval: time.Hour, Now: clock.Now})
	ctx := context.Background()

	for _, key := range []string{"a", "b", ""} {
		l.Allow(ctx, key)
		clock.Advance(time.Second)
	}
	l.Allow(ctx, "c")

	if l.Len() != 3 {
		t.Errorf("Key count should stay bounded at 3, got %d", l.Len())
	}
	if d, _ := l.Allow(ctx, ""); d.Count != 2 {
		t.Errorf("Empty key is the newest and must survive eviction, got count %d", d.Count)
	}
	if d, _ := l.Allow(ctx, "b"); d.Count != 2 {
		t.Errorf("Expected b to survive, got count %d", d.Count)
	}
}

func TestMemoryConcurrent(t *testing.T) {
	l := NewMemory(MemoryOptions{MaxAttempts: 10})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := l.Allow(ctx, "shared"); d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("Expected exactly 10 allowed attempts, got %d", allowed)
	}
}

func TestRedisWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, RedisOptions{})
	exerciseWindow(t, l, mr.FastForward)

	if !mr.Exists("ratelimit:auth:10.0.0.1") {
		t.Error("Expected prefixed counter key")
	}
}

func TestRedisFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	l, err := NewRedisFromURL(context.Background(), "redis://"+mr.Addr()+"/0", RedisOptions{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("NewRedisFromURL: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	if err := Check(ctx, l, "x"); err != nil {
		t.Fatalf("First attempt: %v", err)
	}
	if err := Check(ctx, l, "x"); !apperr.Is(err, apperr.RateLimited) {
		t.Errorf("Expected RateLimited, got %v", err)
	}

	if _, err := NewRedisFromURL(context.Background(), "://bad", RedisOptions{}); err == nil {
		t.Error("Expected invalid URL error")
	}
}
