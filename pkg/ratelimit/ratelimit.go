// Package ratelimit 限流器：Redis GCRA 分布式实现与单机令牌桶实现
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if the request is allowed for the given key and limit
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit defines the rate limit rule
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 每秒 rate 次，突发 burst
func PerSecond(rate, burst int) Limit {
	return Limit{Rate: rate, Period: time.Second, Burst: burst}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter implements RateLimiter using Redis
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow checks if the request is allowed
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// DefaultIdleTTL 单机限流器中 key 空闲超过该时长即被回收
const DefaultIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	limit    Limit
	lastSeen time.Time
}

// LocalRateLimiter 进程内令牌桶，按 key 分桶，未配置 Redis 时使用
type LocalRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLocalRateLimiter 创建进程内限流器，空闲 key 按 DefaultIdleTTL 回收
func NewLocalRateLimiter() *LocalRateLimiter {
	return NewLocalRateLimiterWithTTL(DefaultIdleTTL)
}

// NewLocalRateLimiterWithTTL 指定空闲回收时长
func NewLocalRateLimiterWithTTL(idleTTL time.Duration) *LocalRateLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &LocalRateLimiter{
		entries: make(map[string]*limiterEntry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow 令牌桶判定
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit %+v", limit)
	}
	interval := limit.Period / time.Duration(limit.Rate)
	burst := max(limit.Burst, 1)

	now := l.now()
	lim := l.limiterFor(key, limit, interval, burst, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{
			Allowed:    false,
			ResetAfter: resetAfter(lim, now, interval, burst),
			RetryAfter: delay,
		}, nil
	}
	return &Result{
		Allowed:    true,
		Remaining:  int(lim.TokensAt(now)),
		ResetAfter: resetAfter(lim, now, interval, burst),
	}, nil
}

func (l *LocalRateLimiter) limiterFor(key string, limit Limit, interval time.Duration, burst int, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) >= l.idleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok || e.limit != limit {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(interval), burst), limit: limit}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Len 当前持有的 key 数量
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// resetAfter 令牌桶回满所需时间
func resetAfter(lim *rate.Limiter, now time.Time, interval time.Duration, burst int) time.Duration {
	missing := float64(burst) - lim.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(interval))
}
