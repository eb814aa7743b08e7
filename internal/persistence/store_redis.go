package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cargotrack/pkg/platform/sentinel"
)

// DefaultRedisKey is the key the snapshot is stored under.
const DefaultRedisKey = "cargotrack:snapshot"

// RedisStore keeps the encoded snapshot in one Redis hash: the payload and
// the save time.
type RedisStore struct {
	client redis.Cmdable
	key    string
	codec  Codec
}

// NewRedisStore constructs a Redis-backed store. Empty key and nil codec fall
// back to DefaultRedisKey and JSON.
func NewRedisStore(client redis.Cmdable, key string, codec Codec) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	return &RedisStore{client: client, key: key, codec: codec}
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	err = s.client.HSet(ctx, s.key,
		"payload", data,
		"codec", s.codec.Name(),
		"saved_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load snapshot: %w", err)
	}
	payload, ok := fields["payload"]
	if !ok {
		return nil, fmt.Errorf("redis snapshot %s: %w", s.key, sentinel.ErrNotFound)
	}
	if name := fields["codec"]; name != "" && name != s.codec.Name() {
		return nil, fmt.Errorf("redis snapshot encoded as %s, store expects %s", name, s.codec.Name())
	}
	snap, err := s.codec.Decode([]byte(payload))
	if err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["saved_at"]); err == nil {
		snap.SavedAt = ts
	}
	return snap, nil
}
