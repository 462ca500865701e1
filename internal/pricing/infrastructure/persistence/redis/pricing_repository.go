// Package redis 最新定价结果的 Redis 缓存
package redis

import (
	"context"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/cache"
)

const resultPrefix = "pricing_result:"

// PricingCache 以标的代码为 key 缓存最新定价结果
type PricingCache struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewPricingCache ttl 为 0 表示不过期
func NewPricingCache(rc *cache.RedisCache, ttl time.Duration) *PricingCache {
	return &PricingCache{cache: rc.WithPrefix(resultPrefix), ttl: ttl}
}

func (c *PricingCache) SavePricingResult(ctx context.Context, result *domain.PricingResult) error {
	if result == nil {
		return nil
	}
	return c.cache.SetJSON(ctx, result.Symbol, result, c.ttl)
}

// GetLatestPricingResult 未命中时返回 nil, nil
func (c *PricingCache) GetLatestPricingResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	if symbol == "" {
		return nil, nil
	}
	var result domain.PricingResult
	ok, err := c.cache.GetJSON(ctx, symbol, &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// Invalidate 删除缓存
func (c *PricingCache) Invalidate(ctx context.Context, symbols ...string) error {
	return c.cache.Delete(ctx, symbols...)
}
