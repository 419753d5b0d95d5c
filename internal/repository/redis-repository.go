package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

// RedisRepo wraps the shared Redis client. It serves two jobs: short-lived
// profile caching for the share introspectors, and session lookups for the
// standalone auth middleware. Access decisions are never stored here.
type RedisRepo struct {
	client *redis_v9.Client
	ttl    time.Duration
}

func NewRedisRepo(client *redis_v9.Client) *RedisRepo {
	return &RedisRepo{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (r *RedisRepo) SaveStructCached(ctx context.Context, key string, model any) (bool, error) {
	val, err := json.Marshal(model)
	if err != nil {
		return false, fmt.Errorf("error saving struct to cache: %s", err)
	}
	err = r.client.Set(ctx, key, val, r.ttl).Err()
	if err != nil {
		return false, fmt.Errorf("error saving struct to cache: %s", err)
	}
	return true, nil
}

func (r *RedisRepo) GetStructCached(ctx context.Context, key string, model any) error {
	encoded, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return fmt.Errorf("error get struct in cache: %s", err)
	}
	return json.Unmarshal(encoded, model)
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
