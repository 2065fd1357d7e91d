package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keySuffixUpdatedAt = ":updated_at"

// SnapshotStore keeps the whole snapshot under a single redis key, so every
// save replaces it atomically.
type SnapshotStore struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

func NewSnapshotStore(client redis.Cmdable, key string) *SnapshotStore {
	return &SnapshotStore{client: client, key: key, now: time.Now}
}

func (s *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", s.key, err)
	}
	return data, nil
}

func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, data, 0)
	pipe.Set(ctx, s.key+keySuffixUpdatedAt, s.now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set snapshot %s: %w", s.key, err)
	}
	return nil
}
