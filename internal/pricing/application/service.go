package application

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingService 定价门面服务。
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// Dependencies 门面服务的依赖，Cache、Publisher、Recorder 可为 nil
type Dependencies struct {
	Engines      *Engines
	Repo         domain.PricingRepository
	Cache        domain.PricingCache
	Publisher    domain.EventPublisher
	Recorder     Recorder
	BatchWorkers int
}

// NewPricingService 构造函数。
func NewPricingService(deps Dependencies) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(deps.Engines, deps.Repo, deps.Cache, deps.Publisher, deps.Recorder, deps.BatchWorkers),
		Query:   NewPricingQueryService(deps.Engines, deps.Repo, deps.Cache, deps.Recorder),
	}
}

// --- Command Facade ---

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	return s.Command.BatchPriceOptions(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	return s.Query.GetLatestResult(ctx, symbol)
}

func (s *PricingService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	return s.Query.GetHistory(ctx, symbol, limit)
}

func (s *PricingService) GetGreeks(ctx context.Context, cmd PriceOptionCommand) (*GreeksResult, error) {
	return s.Query.GetGreeks(ctx, cmd)
}

func (s *PricingService) GetSurface(ctx context.Context, q SurfaceQuery) ([]domain.SurfacePoint, error) {
	return s.Query.GetSurface(ctx, q)
}
