package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SignInLimiter throttles authentication attempts per email. Allow reports
// whether the attempt may proceed; an error means the limiter could not
// decide, and SignIn treats that as a denial.
type SignInLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisSignInLimiter is a fixed-window counter shared across instances.
// INCR and EXPIRE run in one pipeline so the window always carries a TTL.
type RedisSignInLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisSignInLimiter allows limit attempts per key per window.
func NewRedisSignInLimiter(client *redis.Client, limit int64, window time.Duration) *RedisSignInLimiter {
	return &RedisSignInLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "signin:",
	}
}

func (l *RedisSignInLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, time.Now().Unix()/int64(l.window.Seconds()))

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("signin limiter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// WindowLimiter is an in-process fixed-window limiter for single-instance
// deployments and tests. Stale windows are dropped on the next touch of the
// same key, so memory is bounded by the active key set.
type WindowLimiter struct {
	mu     sync.Mutex
	counts map[string]*windowCount
	limit  int
	window time.Duration
	now    func() time.Time
}

type windowCount struct {
	start time.Time
	n     int
}

// NewWindowLimiter allows limit attempts per key per window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		counts: make(map[string]*windowCount),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *WindowLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	wc, ok := l.counts[key]
	if !ok || now.Sub(wc.start) >= l.window {
		l.counts[key] = &windowCount{start: now, n: 1}
		return true, nil
	}
	wc.n++
	return wc.n <= l.limit, nil
}
