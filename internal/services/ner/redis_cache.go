package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"contractlens/internal/models"
)

// RedisCache stores recognition results in Redis as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache over an existing client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisCacheFromURL connects to the Redis server at url
// (redis://[:password@]host:port/db).
func NewRedisCacheFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.EntitySpan, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	spans, err := decodeSpans(data)
	if err != nil {
		return nil, false, err
	}
	return spans, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, spans []models.EntitySpan) error {
	data, err := encodeSpans(spans)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeSpans(spans []models.EntitySpan) ([]byte, error) {
	if spans == nil {
		spans = []models.EntitySpan{}
	}
	data, err := json.Marshal(spans)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spans: %w", err)
	}
	return data, nil
}

func decodeSpans(data []byte) ([]models.EntitySpan, error) {
	var spans []models.EntitySpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("failed to decode cached spans: %w", err)
	}
	return spans, nil
}
