package ratelimit

import (
	"context"
	"sync"
	"time"
)

type MemoryOptions struct {
	Window      time.Duration
	MaxAttempts int
	// SweepInterval is the minimum time between passes that drop expired
	// windows. Sweeps run inline on Allow.
	SweepInterval time.Duration
	// MaxKeys bounds the number of tracked addresses; 0 means unbounded.
	MaxKeys int
	Now     func() time.Time
}

type window struct {
	count int
	start time.Time
}

// Memory is a process-local Limiter.
type Memory struct {
	mu        sync.Mutex
	opts      MemoryOptions
	windows   map[string]*window
	lastSweep time.Time
}

func NewMemory(opts MemoryOptions) *Memory {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		opts:      opts,
		windows:   make(map[string]*window),
		lastSweep: opts.Now(),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	if now.Sub(m.lastSweep) >= m.opts.SweepInterval {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) > m.opts.Window {
		if !ok && m.opts.MaxKeys > 0 && len(m.windows) >= m.opts.MaxKeys {
			m.sweep(now)
			if len(m.windows) >= m.opts.MaxKeys {
				m.evictOldest()
			}
		}
		m.windows[key] = &window{count: 1, start: now}
		return Decision{Allowed: true, Count: 1, RetryAfter: m.opts.Window}, nil
	}

	w.count++
	return Decision{
		Allowed:    w.count <= m.opts.MaxAttempts,
		Count:      w.count,
		RetryAfter: m.opts.Window - now.Sub(w.start),
	}, nil
}

// Len reports how many addresses are currently tracked.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if now.Sub(w.start) > m.opts.Window {
			delete(m.windows, key)
		}
	}
	m.lastSweep = now
}

func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, w := range m.windows {
		if !found || w.start.Before(oldest) {
			oldestKey, oldest, found = key, w.start, true
		}
	}
	if found {
		delete(m.windows, oldestKey)
	}
}
