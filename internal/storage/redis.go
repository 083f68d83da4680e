package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/logger"
)

const redisKeyPrefix = "studio16:device:"

// Redis keeps each device's namespace in one hash.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", "addr", cfg.Addr, "error", err)
	} else {
		logger.Info("connected to redis", "addr", cfg.Addr)
	}

	return &Redis{client: client}
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func hashKey(device string) string { return redisKeyPrefix + device }

func (r *Redis) Get(ctx context.Context, device, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, hashKey(device), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, device, key, value string) error {
	return r.client.HSet(ctx, hashKey(device), key, value).Err()
}

func (r *Redis) Delete(ctx context.Context, device string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.HDel(ctx, hashKey(device), keys...).Err()
}

func (r *Redis) Keys(ctx context.Context, device string) ([]string, error) {
	keys, err := r.client.HKeys(ctx, hashKey(device)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
