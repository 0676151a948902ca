package lease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	locker := NewLocalLocker()

	first, ok, err := locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, first.Release(ctx))
	_, ok, err = locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLockerExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	locker := NewLocalLocker()
	locker.now = func() time.Time { return now }

	stale, ok, err := locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Releasing the expired lease must not drop the successor's lock.
	require.NoError(t, stale.Release(ctx))
	_, ok, err = locker.TryAcquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalLockerCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := NewLocalLocker().TryAcquire(ctx, "sweep", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
