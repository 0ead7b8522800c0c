// Package ratelimit implements fixed-window request limiters keyed by client.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetIn    time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func newResult(hits, limit int64, resetIn time.Duration) Result {
	res := Result{
		Allowed:   hits <= limit,
		Limit:     limit,
		Remaining: max(limit-hits, 0),
		ResetIn:   resetIn,
	}
	if !res.Allowed {
		res.RetryAfter = resetIn
	}
	return res
}

// MemoryLimiter keeps window counters in process. Counters are not shared
// between replicas; use RedisLimiter for that.
type MemoryLimiter struct {
	name   string
	limit  int64
	window time.Duration
	counts *gocache.Cache
	mu     sync.Mutex
	now    func() time.Time
}

func NewMemoryLimiter(name string, limit int64, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		name:   name,
		limit:  limit,
		window: window,
		counts: gocache.New(window, window),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	winStart := now.Truncate(l.window)
	resetIn := winStart.Add(l.window).Sub(now)
	k := fmt.Sprintf("%s:%s:%d", l.name, key, winStart.Unix())

	l.mu.Lock()
	defer l.mu.Unlock()
	// Add fails when the window counter already exists
	_ = l.counts.Add(k, int64(0), resetIn)
	hits, err := l.counts.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, fmt.Errorf("[MemoryLimiter Allow] %w", err)
	}
	return newResult(hits, l.limit, resetIn), nil
}

// RedisLimiter is a fixed window shared through Redis (INCR + EXPIRE).
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, name string, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "rl:" + name + ":",
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
	windowEnd := winStart.Add(l.window)

	// The key is per window, so its expiry is fixed and can be set on every hit
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, windowEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("[RedisLimiter Allow] %w", err)
	}

	resetIn := time.Until(windowEnd)
	if resetIn <= 0 {
		resetIn = l.window
	}
	return newResult(incr.Val(), l.limit, resetIn), nil
}
