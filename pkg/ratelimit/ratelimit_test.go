package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalRateLimiterBurstAndRefill(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := NewLocalRateLimiter()
	l.now = func() time.Time { return clock }
	ctx := context.Background()
	limit := PerSecond(2, 3)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1", limit)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d rejected: %v", i, err)
		}
	}
	res, _ := l.Allow(ctx, "ip:1", limit)
	if res.Allowed {
		t.Fatal("fourth request within the burst window should be rejected")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Second {
		t.Fatalf("retry after = %v", res.RetryAfter)
	}

	if res, _ := l.Allow(ctx, "ip:2", limit); !res.Allowed {
		t.Fatal("buckets must be independent per key")
	}

	clock = clock.Add(500 * time.Millisecond)
	if res, _ := l.Allow(ctx, "ip:1", limit); !res.Allowed {
		t.Fatal("one token should have been refilled")
	}
}

func TestLocalRateLimiterEvictsIdleKeys(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := NewLocalRateLimiterWithTTL(time.Minute)
	l.now = func() time.Time { return clock }
	ctx := context.Background()
	limit := PerSecond(10, 10)

	for i := 0; i < 1000; i++ {
		if _, err := l.Allow(ctx, fmt.Sprintf("ip:%d", i), limit); err != nil {
			t.Fatal(err)
		}
	}
	if l.Len() != 1000 {
		t.Fatalf("keys = %d", l.Len())
	}

	clock = clock.Add(50 * time.Second)
	if _, err := l.Allow(ctx, "ip:0", limit); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(20 * time.Second)
	if _, err := l.Allow(ctx, "fresh", limit); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 2 {
		t.Fatalf("keys after idle sweep = %d, want 2", l.Len())
	}

	clock = clock.Add(24 * time.Hour)
	if _, err := l.Allow(ctx, "late", limit); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Fatalf("keys after a day idle = %d, want 1", l.Len())
	}
}

func TestLocalRateLimiterRejectsInvalidLimit(t *testing.T) {
	if _, err := NewLocalRateLimiter().Allow(context.Background(), "k", Limit{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisRateLimiterReportsConnectionError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	if _, err := NewRedisRateLimiter(rdb).Allow(context.Background(), "k", PerSecond(1, 1)); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}
