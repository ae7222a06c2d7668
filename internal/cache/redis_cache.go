package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a shared cache backed by Redis, for deployments with
// more than one API instance.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, ctx: ctx}, nil
}

// Get returns the cached value for a key.
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a value. A zero ttl leaves the key without expiry.
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	return r.client.Set(r.ctx, key, value, ttl).Err()
}

// Delete removes a key.
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

// DeletePrefix removes every key that starts with prefix, scanning
// instead of flushing so unrelated keys in the database survive.
func (r *RedisCache) DeletePrefix(prefix string) error {
	iter := r.client.Scan(r.ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(r.ctx) {
		if err := r.client.Del(r.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Clear flushes the configured Redis database.
func (r *RedisCache) Clear() error {
	return r.client.FlushDB(r.ctx).Err()
}

func init() {
	RegisterCache("redis", NewRedisCache)
}
