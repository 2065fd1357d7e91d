package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live server only when REDIS_TEST_ADDR is set.
func newTestStore(t *testing.T) (*SnapshotStore, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	key := "test:snapshot:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key, key+keySuffixUpdatedAt) })
	return NewSnapshotStore(client, key), client
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Save(ctx, []byte("c  m  2024-03-01T12:00:00Z  1  null")))
	require.NoError(t, store.Save(ctx, []byte("c  m2  2024-03-01T12:00:00Z  2  Prize")))

	data, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c  m2  2024-03-01T12:00:00Z  2  Prize", string(data))

	updated, err := client.Get(ctx, store.key+keySuffixUpdatedAt).Result()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", updated)
}
