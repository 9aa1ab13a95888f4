package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/feedhub/internal/cache"
)

const DefaultSnapshotKey = "feedhub:snapshot"

// SnapshotStore 把缓存条目以 JSON 存在 Redis 中，供多个实例共享
type SnapshotStore struct {
	Redis *redis.Client
	Key   string
}

// NewSnapshotStore ping 失败只返回错误，由调用方决定是否继续
func NewSnapshotStore(ctx context.Context, addr string) (*SnapshotStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &SnapshotStore{Redis: rdb, Key: DefaultSnapshotKey}, nil
}

func (s *SnapshotStore) Load(ctx context.Context) (*cache.Entry, error) {
	bs, err := s.Redis.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(bs)
}

func (s *SnapshotStore) Save(ctx context.Context, e cache.Entry, ttl time.Duration) error {
	bs, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, s.key(), bs, ttl).Err()
}

func (s *SnapshotStore) Close() error {
	return s.Redis.Close()
}

func (s *SnapshotStore) key() string {
	if s.Key == "" {
		return DefaultSnapshotKey
	}
	return s.Key
}

func decodeSnapshot(bs []byte) (*cache.Entry, error) {
	var e cache.Entry
	if err := json.Unmarshal(bs, &e); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if e.At.IsZero() {
		return nil, errors.New("decode snapshot: missing timestamp")
	}
	return &e, nil
}
