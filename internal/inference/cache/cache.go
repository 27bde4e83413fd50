// Package cache memoises ranked predictions in an in-process LRU and,
// optionally, in Redis. Keys include the model ID, so entries written for a
// previous model are never served after a reload.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/resilience"
)

const (
	TierLocal = "local"
	TierRedis = "redis"
)

type Options struct {
	LocalSize int
	TTL       time.Duration
	KeyPrefix string
	Metrics   *metrics.Metrics
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	LocalHits    int64   `json:"local_hits"`
	RedisHits    int64   `json:"redis_hits"`
	Misses       int64   `json:"misses"`
	LocalEntries int     `json:"local_entries"`
	RedisEnabled bool    `json:"redis_enabled"`
	RedisBreaker string  `json:"redis_breaker,omitempty"`
	HitRatio     float64 `json:"hit_ratio"`
}

type PredictionCache struct {
	local   *lru.Cache[string, inference.ConfidenceResult]
	remote  pkgredis.KV
	breaker *resilience.CircuitBreaker
	opts    Options
	group   singleflight.Group
	logger  *slog.Logger

	localHits atomic.Int64
	redisHits atomic.Int64
	misses    atomic.Int64
}

// New builds a cache. remote may be nil, in which case only the local tier
// is used.
func New(remote pkgredis.KV, opts Options) (*PredictionCache, error) {
	if opts.LocalSize <= 0 {
		opts.LocalSize = 4096
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "predict:"
	}
	local, err := lru.New[string, inference.ConfidenceResult](opts.LocalSize)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	c := &PredictionCache{
		local:  local,
		remote: remote,
		opts:   opts,
		logger: slog.Default().With("component", "prediction-cache"),
	}
	if remote != nil {
		c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
			OnStateChange: func(name string, _, to resilience.State) {
				if opts.Metrics != nil {
					opts.Metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
	}
	return c, nil
}

// GetOrCompute returns the cached result for (modelID, text) or computes,
// stores and returns it. Concurrent misses for the same key share a single
// computation. hit reports whether the result came from a cache tier.
func (c *PredictionCache) GetOrCompute(
	ctx context.Context,
	modelID string,
	text string,
	compute func() (inference.ConfidenceResult, error),
) (result inference.ConfidenceResult, hit bool, err error) {
	key := c.Key(modelID, text)
	if res, ok := c.get(ctx, key); ok {
		return res, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if res, ok := c.local.Get(key); ok {
			return res, nil
		}
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return inference.ConfidenceResult{}, false, err
	}
	c.misses.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheMissesTotal.Inc()
	}
	return val.(inference.ConfidenceResult), false, nil
}

func (c *PredictionCache) get(ctx context.Context, key string) (inference.ConfidenceResult, bool) {
	if res, ok := c.local.Get(key); ok {
		c.hit(TierLocal, &c.localHits)
		return res, true
	}
	if c.remote == nil {
		return inference.ConfidenceResult{}, false
	}
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		v, err := c.remote.Get(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		c.logger.Debug("redis cache get failed", "key", key, "error", err)
		return inference.ConfidenceResult{}, false
	}
	if !found {
		return inference.ConfidenceResult{}, false
	}
	var res inference.ConfidenceResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return inference.ConfidenceResult{}, false
	}
	c.local.Add(key, res)
	c.hit(TierRedis, &c.redisHits)
	return res, true
}

func (c *PredictionCache) set(ctx context.Context, key string, res inference.ConfidenceResult) {
	c.local.Add(key, res)
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.remote.Set(ctx, key, data, c.opts.TTL)
	})
	if err != nil {
		c.logger.Debug("redis cache set failed", "key", key, "error", err)
	}
}

func (c *PredictionCache) hit(tier string, counter *atomic.Int64) {
	counter.Add(1)
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

// Invalidate drops every entry from both tiers.
func (c *PredictionCache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.remote == nil {
		c.logger.Info("cache invalidated", "tier", TierLocal)
		return nil
	}
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.remote.FlushByPattern(ctx, c.opts.KeyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating redis cache: %w", err)
	}
	c.logger.Info("cache invalidated", "redis_keys_deleted", deleted)
	return nil
}

// Ping reports whether the Redis tier is reachable. It returns nil when the
// cache runs without Redis.
func (c *PredictionCache) Ping(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}
	return c.remote.Ping(ctx)
}

func (c *PredictionCache) Stats() Stats {
	s := Stats{
		LocalHits:    c.localHits.Load(),
		RedisHits:    c.redisHits.Load(),
		Misses:       c.misses.Load(),
		LocalEntries: c.local.Len(),
		RedisEnabled: c.remote != nil,
	}
	if c.breaker != nil {
		s.RedisBreaker = c.breaker.GetState().String()
	}
	if total := s.LocalHits + s.RedisHits + s.Misses; total > 0 {
		s.HitRatio = float64(s.LocalHits+s.RedisHits) / float64(total)
	}
	return s
}

// Key derives the cache key for text under modelID.
func (c *PredictionCache) Key(modelID, text string) string {
	raw := modelID + "\x00" + normalize(text)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", c.opts.KeyPrefix, hash[:16])
}

// normalize folds case and whitespace, neither of which affects tokenization.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
