// Package ratelimit throttles registry traffic per caller. Keys are wallet
// credentials when a session is present, remote addresses otherwise.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is implemented by the in-memory sliding window store and the
// redis-backed fixed window store.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
