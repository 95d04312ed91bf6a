package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter_AllowsUpToLimitThenBlocks(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(3)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "caller")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.InDelta(t, float64(20*time.Second), float64(res.RetryAfter), float64(time.Millisecond))
}

func TestLocalLimiter_Refills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := l.Allow(ctx, "c")
		require.True(t, res.Allowed)
	}
	res, _ := l.Allow(ctx, "c")
	require.False(t, res.Allowed)

	now = now.Add(30 * time.Second)
	res, _ = l.Allow(ctx, "c")
	assert.True(t, res.Allowed)
}

func TestLocalLimiter_CallersAreIndependent(t *testing.T) {
	l := NewLocalLimiter(1)
	ctx := context.Background()

	a, _ := l.Allow(ctx, "a")
	b, _ := l.Allow(ctx, "b")
	a2, _ := l.Allow(ctx, "a")

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
	assert.False(t, a2.Allowed)
}

func TestLocalLimiter_DefaultLimit(t *testing.T) {
	l := NewLocalLimiter(0)
	assert.Equal(t, defaultRequestsPerMinute, l.perMinute)
	assert.NoError(t, l.Ping(context.Background()))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:10.0.0.1", Key("10.0.0.1"))
}

func TestLocalLimiter_EvictsIdleCallers(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(1)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("caller-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, l.Len())

	now = now.Add(Window)
	res, err := l.Allow(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, l.Len())
}

func TestLocalLimiter_ActiveCallerKeepsState(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(1)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	res, _ := l.Allow(ctx, "busy")
	require.True(t, res.Allowed)

	now = now.Add(Window / 2)
	res, _ = l.Allow(ctx, "busy")
	require.False(t, res.Allowed)

	now = now.Add(Window / 2)
	res, _ = l.Allow(ctx, "busy")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, l.Len())
}
