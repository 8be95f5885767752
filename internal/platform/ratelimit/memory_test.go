package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindow(3, time.Minute)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "wallet:0xana")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "wallet:0xana")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.False(t, result.ResetAt.IsZero())
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindow(1, time.Minute)

	result, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestSlidingWindowSlides(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindow(2, time.Minute)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.clock = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	// Still inside the window of the first two hits.
	now = now.Add(30 * time.Second)
	result, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// Both original hits have aged out.
	now = now.Add(31 * time.Second)
	result, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestSlidingWindowReset(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindow(1, time.Minute)

	_, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "k"))

	result, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
