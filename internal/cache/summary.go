// Package cache stores model summaries in Redis so repeated text is not re-summarized.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "promptforge:summary:"

// SummaryCache maps the SHA-256 of a text to its summary.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSummaryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl, logger: logger}
}

// Key returns the Redis key for content.
func Key(content string) string {
	sum := sha256.Sum256([]byte(content))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached summary. A miss is ("", false, nil); Redis errors are returned
// so callers can log them and fall through to the model.
func (c *SummaryCache) Get(ctx context.Context, content string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	val, err := c.client.Get(ctx, Key(content)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading summary cache: %w", err)
	}
	return val, true, nil
}

// Set stores summary for content with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, content, summary string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, Key(content), summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing summary cache: %w", err)
	}
	c.logger.Debug("summary cached", zap.Duration("ttl", c.ttl))
	return nil
}
