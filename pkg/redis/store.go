package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store is the Redis-backed key-value store for feature flags. It satisfies
// rollout.Store: redis.Nil becomes "not found", every other error is
// returned as the client produced it.
type Store struct {
	db redis.UniversalClient
}

// NewStore wraps a go-redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{db: client}
}

// Conn returns the underlying Redis client for advanced operations.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}

// Close terminates the Redis connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// MGet skips keys that do not exist.
func (s *Store) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.db.Set(ctx, key, value, 0).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.Del(ctx, keys...).Err()
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.db.SAdd(ctx, key, toArgs(members)...).Err()
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.db.SRem(ctx, key, toArgs(members)...).Err()
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.db.SIsMember(ctx, key, member).Result()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.db.SMembers(ctx, key).Result()
}

func (s *Store) LPush(ctx context.Context, key, value string) error {
	return s.db.LPush(ctx, key, value).Err()
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.db.LRange(ctx, key, start, stop).Result()
}

func (s *Store) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	val, err := s.db.LIndex(ctx, key, index).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func toArgs(members []string) []any {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
