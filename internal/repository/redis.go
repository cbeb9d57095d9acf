package repository

import (
	"context"
	"fmt"
	"time"

	"kladovka/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisLabelRepository кэширует этикетки в Redis, чтобы пережить рестарты.
type RedisLabelRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisLabelRepository(client *redis.Client, ttl time.Duration) *RedisLabelRepository {
	return &RedisLabelRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisLabelRepository) GetLabel(ctx context.Context, itemID string, size int) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, labelKey(itemID, size)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label from redis: %w", err)
	}
	return val, nil
}

func (r *RedisLabelRepository) SetLabel(ctx context.Context, itemID string, size int, png []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, labelKey(itemID, size), png, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set label in redis: %w", err)
	}
	return nil
}

func (r *RedisLabelRepository) DeleteLabels(ctx context.Context, itemID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	keys, err := r.client.Keys(ctx, fmt.Sprintf("label:%s:*", itemID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list label keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete labels from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
