package settings

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds the settings when none is configured.
const DefaultRedisKey = "notewatch:settings"

// RedisStore keeps the record in a single Redis hash, one field per key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore returns a store writing to the hash at key.
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// Load reads the hash. A missing hash yields nil.
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("settings: hgetall %s: %w", s.key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(Record, len(fields))
	for k, raw := range fields {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("settings: field %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Save replaces the hash contents in one MULTI/EXEC block.
func (s *RedisStore) Save(ctx context.Context, r Record) error {
	values := make(map[string]any, len(r))
	for k, v := range r {
		raw, err := encodeValue(v)
		if err != nil {
			return err
		}
		values[k] = raw
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("settings: save %s: %w", s.key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
