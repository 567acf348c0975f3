// Package redis implements the summarization job queue.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docketry/docketd/internal/core/domain"
)

// Client wraps Redis operations for the summarization pipeline.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

const queueKey = "summary_jobs"

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(documentID string) string {
	return fmt.Sprintf("summarizing:%s", documentID)
}

// Enqueue adds a job to the queue, ordered by its due time. Requeued jobs
// carry a future timestamp and stay invisible to Pop until it passes.
func (c *Client) Enqueue(ctx context.Context, job *domain.SummaryJob) error {
	member, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	z := redis.Z{Score: float64(job.EnqueuedAt.UnixNano()), Member: string(member)}
	if err := c.rdb.ZAdd(ctx, queueKey, z).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest job that is already due.
func (c *Client) Pop(ctx context.Context) (*domain.SummaryJob, bool, error) {
	results, err := c.rdb.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(time.Now().UnixNano(), 10),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, false, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	member := results[0]
	var job domain.SummaryJob
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		// Drop the corrupt entry so it doesn't wedge the queue.
		_ = c.rdb.ZRem(ctx, queueKey, member).Err()
		return nil, false, fmt.Errorf("invalid job format: %w", err)
	}

	if err := c.rdb.ZRem(ctx, queueKey, member).Err(); err != nil {
		return nil, false, fmt.Errorf("zrem failed: %w", err)
	}

	return &job, true, nil
}

// Depth returns the number of pending jobs.
func (c *Client) Depth(ctx context.Context) (int64, error) {
	return c.rdb.ZCard(ctx, queueKey).Result()
}

// Clear removes all pending jobs.
func (c *Client) Clear(ctx context.Context) error {
	return c.rdb.Del(ctx, queueKey).Err()
}

// AcquireLock attempts to acquire a processing lock for a document.
func (c *Client) AcquireLock(ctx context.Context, documentID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(documentID), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseLock releases a processing lock.
func (c *Client) ReleaseLock(ctx context.Context, documentID string) error {
	return c.rdb.Del(ctx, lockKey(documentID)).Err()
}

// RefreshLock extends the TTL of a lock.
func (c *Client) RefreshLock(ctx context.Context, documentID string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, lockKey(documentID), ttl).Err()
}
