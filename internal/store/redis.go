package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis KV.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the hashes so several nodes can share a server.
	Prefix string
}

// Redis is a KV that maps every bucket to one Redis hash.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "walletlink"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) hash(bucket string) string { return r.prefix + ":" + bucket }

func (r *Redis) Get(ctx context.Context, bucket, key string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, r.hash(bucket), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s/%s: %w", bucket, key, err)
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, bucket, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.hash(bucket), key, value).Err(); err != nil {
		return fmt.Errorf("redis put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, bucket, key string) error {
	if err := r.client.HDel(ctx, r.hash(bucket), key).Err(); err != nil {
		return fmt.Errorf("redis delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, bucket string) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.hash(bucket)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s: %w", bucket, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Close() error { return r.client.Close() }
