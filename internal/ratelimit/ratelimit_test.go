package ratelimit

import (
	"context"
	"testing"

	"github.com/riftsignal/signalserver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRoomCreateEnforcesCap(t *testing.T) {
	rl, err := New(config.RateLimitConfig{MaxRoomCreations: 2, TimeWindowSecs: 60, MaxJoinAttempts: 2}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, rl.CheckRoomCreate(ctx, "9.9.9.9"))
	assert.True(t, rl.CheckRoomCreate(ctx, "9.9.9.9"))
	assert.False(t, rl.CheckRoomCreate(ctx, "9.9.9.9"))
}

func TestCheckRoomJoinIndependentBucket(t *testing.T) {
	rl, err := New(config.RateLimitConfig{MaxRoomCreations: 1, TimeWindowSecs: 60, MaxJoinAttempts: 1}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, rl.CheckRoomCreate(ctx, "1.1.1.1"))
	assert.False(t, rl.CheckRoomCreate(ctx, "1.1.1.1"))
	// a separate bucket, so exhausting create doesn't exhaust join.
	assert.True(t, rl.CheckRoomJoin(ctx, "1.1.1.1"))
}

func TestCheckAppGlobalIsolatesByKey(t *testing.T) {
	rl, err := New(config.RateLimitConfig{MaxRoomCreations: 1, TimeWindowSecs: 60, MaxJoinAttempts: 1}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, rl.CheckAppGlobal(ctx, "app-a"))
	assert.True(t, rl.CheckAppGlobal(ctx, "app-b"))
}

func TestCheckAppGlobalEnforcesEachAppsOwnQuota(t *testing.T) {
	rl, err := New(config.RateLimitConfig{MaxRoomCreations: 1, TimeWindowSecs: 60, MaxJoinAttempts: 1},
		map[string]int{"app-a": 1, "app-b": 2})
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, rl.CheckAppGlobal(ctx, "app-a"))
	assert.False(t, rl.CheckAppGlobal(ctx, "app-a"))

	assert.True(t, rl.CheckAppGlobal(ctx, "app-b"))
	assert.True(t, rl.CheckAppGlobal(ctx, "app-b"))
	assert.False(t, rl.CheckAppGlobal(ctx, "app-b"))
}

func TestCheckAppGlobalFallsBackToDefaultForUnknownApp(t *testing.T) {
	rl, err := New(config.RateLimitConfig{MaxRoomCreations: 1, TimeWindowSecs: 60, MaxJoinAttempts: 1}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < defaultAppRatePerMinute; i++ {
		require.True(t, rl.CheckAppGlobal(ctx, "unregistered-app"))
	}
	assert.False(t, rl.CheckAppGlobal(ctx, "unregistered-app"))
}
