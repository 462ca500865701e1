package domain

import "context"

// PricingRepository 定价历史仓储接口
type PricingRepository interface {
	// WithTx 在事务中执行 fn，事务经 txCtx 传递给仓储与 TxEventPublisher
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
	Save(ctx context.Context, result *PricingResult) error
	GetLatest(ctx context.Context, symbol string) (*PricingResult, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)
}

// PricingCache 最新定价结果缓存
type PricingCache interface {
	SavePricingResult(ctx context.Context, result *PricingResult) error
	GetLatestPricingResult(ctx context.Context, symbol string) (*PricingResult, error)
}
