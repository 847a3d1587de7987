package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.CheckAndConsume(ctx, "user-1", testPolicy, start)
	require.NoError(t, err)

	sweeper := NewSweeper(store, "", nil)
	sweeper.now = func() time.Time { return start.Add(2 * time.Hour) }

	assert.Equal(t, 1, sweeper.RunOnce(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestSweeper_StartStop(t *testing.T) {
	sweeper := NewSweeper(NewMemoryStore(), "@every 1h", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sweeper.Start(ctx))
	assert.True(t, sweeper.IsRunning())

	sweeper.Stop()
	assert.False(t, sweeper.IsRunning())
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	sweeper := NewSweeper(NewMemoryStore(), "not a schedule", nil)
	err := sweeper.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, sweeper.IsRunning())
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	sweeper := NewSweeper(NewMemoryStore(), "", nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, sweeper.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !sweeper.IsRunning() }, time.Second, 10*time.Millisecond)
}
