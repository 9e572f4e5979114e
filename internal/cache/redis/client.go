package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/utils"
)

const keyPrefix = "qcache:"

// Cache stores query responses in Redis so multiple API instances share a
// response cache. Keys are hashed; raw query text never appears in Redis.
type Cache struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache connected", zap.String("addr", addr))
	return &Cache{client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (*models.QueryResponse, bool) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Redis cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		logger.Warn("Failed to decode cached response", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

func (c *Cache) Set(ctx context.Context, key string, resp *models.QueryResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	return nil
}

func (c *Cache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func redisKey(key string) string {
	return keyPrefix + utils.HashString(key)
}
