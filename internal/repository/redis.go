package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripvera/internal/config"
	"tripvera/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisSelectionRepository struct {
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

func NewRedisSelectionRepository(client *redis.Client, ttl time.Duration) *RedisSelectionRepository {
	return &RedisSelectionRepository{
		client: client,
		ttl:    ttl,
	}
}

func selectionKey(sessionID string, activityID int64) string {
	return fmt.Sprintf("selection:%s:%d", sessionID, activityID)
}

func (r *RedisSelectionRepository) GetSelection(ctx context.Context, sessionID string, activityID int64) (*models.SelectionState, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, selectionKey(sessionID, activityID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection from redis: %w", err)
	}

	var state models.SelectionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}

	return &state, nil
}

func (r *RedisSelectionRepository) SetSelection(ctx context.Context, state *models.SelectionState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}

	key := selectionKey(state.SessionID, state.ActivityID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set selection in redis: %w", err)
	}

	return nil
}

func (r *RedisSelectionRepository) ClearSelection(ctx context.Context, sessionID string, activityID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, selectionKey(sessionID, activityID)).Err(); err != nil {
		return fmt.Errorf("failed to delete selection from redis: %w", err)
	}
	return nil
}

func (r *RedisSelectionRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%s", sessionID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
