package state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soarhub-io/helios-connector/pkg/config"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.GetLastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should have no watermark")

	require.NoError(t, store.SetLastRun(ctx, 1631471400000))

	millis, ok, err := store.GetLastRun(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1631471400000), millis)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(config.RedisConfig{
		Addr:      mr.Addr(),
		KeyPrefix: "test_connector",
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, ok, err := store.GetLastRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty redis should have no watermark")

	require.NoError(t, store.SetLastRun(ctx, 1631471400000))

	millis, ok, err := store.GetLastRun(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1631471400000), millis)

	// Overwrite follows get-then-set semantics, no CAS.
	require.NoError(t, store.SetLastRun(ctx, 1631471500000))
	millis, _, err = store.GetLastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1631471500000), millis)
}

func TestRedisStoreBadValue(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, mr.Set("helios_connector:last_run_millis", "garbage"))

	_, _, err = store.GetLastRun(context.Background())
	assert.ErrorContains(t, err, "not numeric")
}
