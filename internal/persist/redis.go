package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each object as a JSON string under a namespaced key.
// Keys look like limacina:{namespace}:store:{id}.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store on a new connection. The namespace must not
// be empty.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(redisURL, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisStore(opts, namespace)
}

// Key returns the Redis key used for id.
func (s *RedisStore) Key(id string) string {
	return fmt.Sprintf("limacina:%s:store:%s", s.namespace, id)
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Save merges data over the stored object for id and writes it back. The
// read-merge-write runs in a WATCH transaction so concurrent saves of the
// same id do not lose fields.
func (s *RedisStore) Save(ctx context.Context, id string, data map[string]any) error {
	if err := validateID(id); err != nil {
		return err
	}
	key := s.Key(id)

	txf := func(tx *redis.Tx) error {
		existing, err := s.decode(tx.Get(ctx, key))
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(merge(existing, data))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("failed to save %s: too much contention", id)
}

// Get returns the stored object for id, or nil if there is none.
func (s *RedisStore) Get(ctx context.Context, id string) (map[string]any, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.decode(s.rdb.Get(ctx, s.Key(id)))
}

// Remove deletes the entry for id.
func (s *RedisStore) Remove(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, s.Key(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	return nil
}

// Clear deletes every key of the namespace.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.Key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan store keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) decode(cmd *redis.StringCmd) (map[string]any, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from Redis: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode stored object: %w", err)
	}
	return obj, nil
}
