package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ansovision/mt5-community-api/internal/config"
	"github.com/ansovision/mt5-community-api/internal/models"
)

const accountSummaryKey = "account:summary"

// Client wraps the Redis client with account-summary caching operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetAccountSummary caches the account stats response with a TTL.
func (c *Client) SetAccountSummary(ctx context.Context, summary *models.AccountSummary, ttl time.Duration) error {
	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal account summary: %w", err)
	}
	return c.rdb.Set(ctx, accountSummaryKey, jsonData, ttl).Err()
}

// GetAccountSummary retrieves the cached account summary, or nil on a miss.
func (c *Client) GetAccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	jsonData, err := c.rdb.Get(ctx, accountSummaryKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary models.AccountSummary
	if err := json.Unmarshal(jsonData, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account summary: %w", err)
	}
	return &summary, nil
}

// InvalidateAccountSummary drops the cached summary after an account update.
func (c *Client) InvalidateAccountSummary(ctx context.Context) error {
	return c.rdb.Del(ctx, accountSummaryKey).Err()
}

// Generic operations

// Set stores a value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a string value
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}
