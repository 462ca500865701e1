package application

import (
	"context"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// PricingQueryService 处理所有定价相关的查询操作（Queries）。
type PricingQueryService struct {
	engines  *Engines
	repo     domain.PricingRepository
	cache    domain.PricingCache
	recorder Recorder
	now      func() time.Time
}

// NewPricingQueryService 构造函数。cache、recorder 可为 nil
func NewPricingQueryService(engines *Engines, repo domain.PricingRepository, cache domain.PricingCache, recorder Recorder) *PricingQueryService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &PricingQueryService{
		engines:  engines,
		repo:     repo,
		cache:    cache,
		recorder: recorder,
		now:      time.Now,
	}
}

// GetLatestResult 获取最新定价结果，先查缓存，未命中回源数据库并回填
func (s *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLatestPricingResult(ctx, symbol)
		if err != nil {
			logger.Warn(ctx, "Pricing cache lookup failed", "symbol", symbol, "error", err)
		}
		s.recorder.RecordCacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	result, err := s.repo.GetLatest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SavePricingResult(ctx, result); err != nil {
			logger.Warn(ctx, "Failed to backfill pricing cache", "symbol", symbol, "error", err)
		}
	}
	return result, nil
}

// GetHistory 按时间倒序返回最近 limit 条定价记录
func (s *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return s.repo.GetHistory(ctx, symbol, limit)
}

// GetGreeks 计算价格与希腊字母，不落库
func (s *PricingQueryService) GetGreeks(ctx context.Context, cmd PriceOptionCommand) (*GreeksResult, error) {
	name, model, err := s.engines.Resolve(cmd.PricingModel)
	if err != nil {
		return nil, err
	}
	opt, err := buildOption(cmd, s.now())
	if err != nil {
		return nil, err
	}
	price, g, err := evaluate(ctx, name, model, opt, s.recorder)
	if err != nil {
		return nil, err
	}
	return &GreeksResult{Symbol: cmd.Symbol, PricingModel: name, Price: price, Greeks: g}, nil
}

// GetSurface 在 [LowRatio·K, HighRatio·K] 上构建价格与希腊字母曲面
func (s *PricingQueryService) GetSurface(ctx context.Context, q SurfaceQuery) ([]domain.SurfacePoint, error) {
	_, model, err := s.engines.Resolve(q.PricingModel)
	if err != nil {
		return nil, err
	}
	opt, err := buildOption(q.PriceOptionCommand, s.now())
	if err != nil {
		return nil, err
	}

	spec := domain.DefaultSurfaceSpec()
	settings := s.engines.Settings()
	if settings.SurfacePoints > 0 {
		spec.Intervals = settings.SurfacePoints
	}
	spec.Workers = settings.SurfaceWorkers
	if q.Intervals > 0 {
		spec.Intervals = q.Intervals
	}
	if q.LowRatio > 0 {
		spec.LowRatio = q.LowRatio
	}
	if q.HighRatio > 0 {
		spec.HighRatio = q.HighRatio
	}

	defer logger.LogDuration(ctx, "Surface built", "symbol", q.Symbol, "rows", spec.Intervals+1)()
	return domain.BuildSurface(ctx, model, opt, spec)
}
