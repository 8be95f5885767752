package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow is a per-key sliding window limiter. It keeps request
// timestamps per key, so limits hold across window boundaries.
type SlidingWindow struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		clock:   time.Now,
		buckets: make(map[string][]time.Time),
	}
}

func (s *SlidingWindow) Allow(_ context.Context, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	stamps := prune(s.buckets[key], now.Add(-s.window))

	if len(stamps) >= s.limit {
		s.buckets[key] = stamps
		return Result{
			Allowed: false,
			Limit:   s.limit,
			ResetAt: stamps[0].Add(s.window),
		}, nil
	}

	stamps = append(stamps, now)
	s.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(stamps),
		ResetAt:   stamps[0].Add(s.window),
	}, nil
}

// Reset clears the counter for a key.
func (s *SlidingWindow) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
