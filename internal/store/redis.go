package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/driftlab/driftwatch/internal/api"
)

// RedisLog keeps an append-only log in a Redis list. A multi-record Append
// is one RPUSH, which Redis executes atomically, so cycle alerts land as a
// contiguous, ordered block.
type RedisLog[T any] struct {
	client *redis.Client
	key    string
}

func NewRedisLog[T any](client *redis.Client, key string) *RedisLog[T] {
	return &RedisLog[T]{client: client, key: key}
}

func (r *RedisLog[T]) Append(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	values := make([]interface{}, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		values[i] = data
	}

	if err := r.client.RPush(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("redis RPUSH failed: %w", err)
	}
	return nil
}

func (r *RedisLog[T]) List(ctx context.Context) ([]T, error) {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE failed: %w", err)
	}

	records := make([]T, 0, len(raw))
	for _, data := range raw {
		var rec T
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// NewRedisStore connects to Redis and builds a Store over the
// driftwatch:alerts, driftwatch:performance and driftwatch:decisions lists.
func NewRedisStore(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Store{
		Alerts:      NewRedisLog[api.Alert](client, "driftwatch:alerts"),
		Performance: NewRedisLog[api.PerformanceRecord](client, "driftwatch:performance"),
		Decisions:   NewRedisLog[api.RetrainDecision](client, "driftwatch:decisions"),
		closeFn:     client.Close,
	}, nil
}
