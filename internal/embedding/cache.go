package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCachePrefix = "mentor-match:embedding:"
	defaultCacheTTL    = 7 * 24 * time.Hour
)

// CachedProvider serves embeddings from Redis and asks the wrapped provider only for misses.
// Redis failures are logged and bypassed.
type CachedProvider struct {
	next   Provider
	client redis.Cmdable
	model  string
	logger *zap.Logger

	Prefix string
	TTL    time.Duration
}

// NewCachedProvider wraps next. model is part of the cache key so vectors from different models never mix.
func NewCachedProvider(next Provider, client redis.Cmdable, model string, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		next:   next,
		client: client,
		model:  model,
		logger: logger,
		Prefix: defaultCachePrefix,
		TTL:    defaultCacheTTL,
	}
}

func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c == nil || c.next == nil {
		return nil, fmt.Errorf("%w: cached provider has no backend", ErrUnavailable)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	vectors := make([][]float32, len(texts))
	var missing []int

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
		cached = nil
	}

	for i := range texts {
		if i < len(cached) {
			if vec, ok := decodeVector(cached[i]); ok {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	c.logger.Debug("embedding cache lookup",
		zap.Int("requested", len(texts)),
		zap.Int("hits", len(texts)-len(missing)),
	)

	if len(missing) == 0 {
		return vectors, nil
	}

	pending := make([]string, len(missing))
	for i, idx := range missing {
		pending[i] = texts[idx]
	}

	fresh, err := c.next.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrUnavailable, len(pending), len(fresh))
	}

	pipe := c.client.Pipeline()
	for i, idx := range missing {
		vectors[idx] = fresh[i]
		payload, err := json.Marshal(fresh[i])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[idx], payload, c.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}

	return vectors, nil
}

func (c *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "|" + text))
	return c.Prefix + hex.EncodeToString(sum[:])
}

func decodeVector(raw any) ([]float32, bool) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(s), &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}
