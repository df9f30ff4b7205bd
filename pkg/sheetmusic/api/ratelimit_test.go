package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(start time.Time) (*RateLimiter, *time.Time) {
	clock := start
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }
	rl.lastSweep = start
	return rl, &clock
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, clock := newTestRateLimiter(start)

	require.True(t, rl.Allow("addr:10.0.0.1"))
	require.Equal(t, 1, rl.Len())

	*clock = start.Add(DefaultLimiterIdleTTL + time.Second)
	require.True(t, rl.Allow("addr:10.0.0.2"))

	assert.Equal(t, 1, rl.Len())
	rl.mu.Lock()
	_, stale := rl.limiters["addr:10.0.0.1"]
	_, fresh := rl.limiters["addr:10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestRateLimiter_KeepsActiveClients(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, clock := newTestRateLimiter(start)

	require.True(t, rl.Allow("member:1"))

	*clock = start.Add(DefaultLimiterIdleTTL / 2)
	rl.Allow("member:1")

	*clock = start.Add(DefaultLimiterIdleTTL + time.Second)
	require.True(t, rl.Allow("member:2"))

	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_LimitSurvivesSweep(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl, clock := newTestRateLimiter(start)

	require.True(t, rl.Allow("member:1"))
	assert.False(t, rl.Allow("member:1"))

	*clock = start.Add(DefaultLimiterIdleTTL + time.Second)
	assert.True(t, rl.Allow("member:2"))
	assert.True(t, rl.Allow("member:1"))
	assert.False(t, rl.Allow("member:1"))
}
