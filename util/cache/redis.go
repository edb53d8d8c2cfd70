package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwise1/gunaso/util/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	client *redis.Client
}

func NewClient(addr, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func trackingKey(trackingID string) string {
	return fmt.Sprintf("tracking:%s", trackingID)
}

func (c *Client) SetTracking(ctx context.Context, trackingID string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal tracking view: %w", err)
	}
	if err := c.client.Set(ctx, trackingKey(trackingID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tracking cache: %w", err)
	}
	return nil
}

// GetTracking reports whether a cached view was found and decoded into v.
func (c *Client) GetTracking(ctx context.Context, trackingID string, v interface{}) (bool, error) {
	data, err := c.client.Get(ctx, trackingKey(trackingID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get tracking cache: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal tracking view: %w", err)
	}
	logger.Debug("tracking cache hit", zap.String("tracking_id", trackingID))
	return true, nil
}

func (c *Client) InvalidateTracking(ctx context.Context, trackingID string) error {
	return c.client.Del(ctx, trackingKey(trackingID)).Err()
}

// Allow implements a fixed-window counter: at most limit hits per window for key.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := time.Now().UnixNano() / int64(window)
	k := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= int64(limit), nil
}
