package redisclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func embeddingKey(imageRef string) string {
	sum := sha256.Sum256([]byte(imageRef))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// GetEmbedding retrieves a cached embedding for a catalog image reference.
// Returns (nil, nil) on a cache miss.
func (c *Client) GetEmbedding(ctx context.Context, imageRef string) ([]float64, error) {
	data, err := c.rdb.Get(ctx, embeddingKey(imageRef)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vector []float64
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, fmt.Errorf("corrupt cached embedding: %w", err)
	}
	return vector, nil
}

// SetEmbedding caches an embedding for a catalog image reference. Extraction
// is deterministic per image and model, so cached vectors never go stale
// within the TTL unless the catalog image itself is replaced.
func (c *Client) SetEmbedding(ctx context.Context, imageRef string, vector []float64, ttl time.Duration) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, embeddingKey(imageRef), data, ttl).Err()
}

// AcquireOrderLock acquires the per-order lock that serializes return
// recording for concurrent retries of the same order.
func (c *Client) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:return-order:%d", orderID), "1", ttl).Result()
}

// ReleaseOrderLock releases the per-order return lock
func (c *Client) ReleaseOrderLock(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:return-order:%d", orderID)).Err()
}
