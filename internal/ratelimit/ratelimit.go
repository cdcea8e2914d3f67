// Package ratelimit throttles authentication attempts per client address.
//
// A window opens on the first attempt from an address and lasts Window.
// Within it, the first MaxAttempts attempts pass and later ones are
// rejected. The first attempt after the window has elapsed opens a new one.
package ratelimit

import (
	"context"
	"time"

	"github.com/safar/fruit-store/internal/apperr"
)

const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxAttempts = 10
)

type Decision struct {
	Allowed bool
	// Count is the number of attempts seen in the current window, including
	// this one.
	Count int
	// RetryAfter is how long until the current window closes.
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Check runs one attempt through l and converts a rejection into a
// RateLimited error.
func Check(ctx context.Context, l Limiter, key string) error {
	d, err := l.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !d.Allowed {
		e := apperr.New(apperr.RateLimited, "too many login attempts, please try again later")
		e.RetryAfter = d.RetryAfter
		return e
	}
	return nil
}
