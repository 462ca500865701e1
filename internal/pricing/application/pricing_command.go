package application

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// PricingCommandService 处理定价相关的命令操作
type PricingCommandService struct {
	engines      *Engines
	repo         domain.PricingRepository
	cache        domain.PricingCache
	publisher    domain.EventPublisher
	recorder     Recorder
	batchWorkers int
	now          func() time.Time
}

// NewPricingCommandService 创建命令服务，cache、publisher、recorder 可为 nil
func NewPricingCommandService(engines *Engines, repo domain.PricingRepository, cache domain.PricingCache, publisher domain.EventPublisher, recorder Recorder, batchWorkers int) *PricingCommandService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if batchWorkers <= 0 {
		batchWorkers = runtime.GOMAXPROCS(0)
	}
	return &PricingCommandService{
		engines:      engines,
		repo:         repo,
		cache:        cache,
		publisher:    publisher,
		recorder:     recorder,
		batchWorkers: batchWorkers,
		now:          time.Now,
	}
}

// PriceOption 期权定价：定价、计算希腊字母、落库、写缓存并发布事件
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	now := c.now()
	model, result, err := c.priceOption(ctx, cmd, now)
	if err != nil {
		logger.Error(ctx, "Option pricing failed", "symbol", cmd.Symbol, "model", model, "error", err)
		c.publish(ctx, domain.PricingErrorEventType, cmd.Symbol, domain.PricingErrorEvent{
			Symbol:       cmd.Symbol,
			OptionType:   cmd.OptionType,
			StrikePrice:  cmd.StrikePrice,
			PricingModel: model,
			Error:        err.Error(),
			ErrorCode:    domain.ErrorCode(err),
			OccurredOn:   now,
		})
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SavePricingResult(ctx, result); err != nil {
			logger.Warn(ctx, "Failed to cache pricing result", "symbol", result.Symbol, "error", err)
		}
	}

	if _, transactional := c.publisher.(domain.TxEventPublisher); !transactional {
		for _, ev := range resultEvents(result, now) {
			c.publish(ctx, ev.eventType, result.Symbol, ev.payload)
		}
	}

	logger.Info(ctx, "Option priced",
		"symbol", result.Symbol,
		"model", result.PricingModel,
		"price", result.OptionPrice.String(),
	)
	return result, nil
}

func (c *PricingCommandService) priceOption(ctx context.Context, cmd PriceOptionCommand, now time.Time) (string, *domain.PricingResult, error) {
	name, model, err := c.engines.Resolve(cmd.PricingModel)
	if err != nil {
		return name, nil, err
	}
	opt, err := buildOption(cmd, now)
	if err != nil {
		return name, nil, err
	}

	price, g, err := evaluate(ctx, name, model, opt, c.recorder)
	if err != nil {
		return name, nil, err
	}

	result := domain.NewPricingResult(cmd.Symbol, name, opt, price, g, now)
	txPub, transactional := c.publisher.(domain.TxEventPublisher)
	if !transactional {
		if err := c.repo.Save(ctx, result); err != nil {
			return name, nil, fmt.Errorf("save pricing result: %w", err)
		}
		return name, result, nil
	}

	// outbox 事件与定价结果同一事务提交
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.Save(txCtx, result); err != nil {
			return fmt.Errorf("save pricing result: %w", err)
		}
		for _, ev := range resultEvents(result, now) {
			if err := txPub.PublishInTx(txCtx, ev.eventType, result.Symbol, ev.payload); err != nil {
				return fmt.Errorf("write %s to outbox: %w", ev.eventType, err)
			}
		}
		return nil
	})
	if err != nil {
		result.ID = 0
		return name, nil, err
	}
	return name, result, nil
}

type resultEvent struct {
	eventType string
	payload   any
}

// resultEvents 定价成功后发布的 OptionPriced 与 GreeksCalculated
func resultEvents(result *domain.PricingResult, now time.Time) []resultEvent {
	return []resultEvent{
		{domain.OptionPricedEventType, domain.OptionPricedEvent{
			Symbol:          result.Symbol,
			OptionType:      result.OptionType,
			StrikePrice:     result.StrikePrice.InexactFloat64(),
			TimeToMaturity:  result.TimeToMaturity,
			OptionPrice:     result.OptionPrice.InexactFloat64(),
			UnderlyingPrice: result.UnderlyingPrice.InexactFloat64(),
			Volatility:      result.Volatility,
			RiskFreeRate:    result.RiskFreeRate,
			PricingModel:    result.PricingModel,
			CalculatedAt:    result.CalculatedAt,
			OccurredOn:      now,
		}},
		{domain.GreeksCalculatedEventType, domain.GreeksCalculatedEvent{
			Symbol:          result.Symbol,
			OptionType:      result.OptionType,
			StrikePrice:     result.StrikePrice.InexactFloat64(),
			UnderlyingPrice: result.UnderlyingPrice.InexactFloat64(),
			PricingModel:    result.PricingModel,
			Greeks:          result.Greeks(),
			CalculatedAt:    result.CalculatedAt,
			OccurredOn:      now,
		}},
	}
}

// evaluate 计算价格与希腊字母；美式引擎额外记录 SOR 未收敛层数
func evaluate(ctx context.Context, name string, model domain.Model, opt domain.Option, rec Recorder) (float64, domain.Greeks, error) {
	start := time.Now()
	var (
		price float64
		err   error
	)
	if engine, ok := model.(*domain.AmericanEngine); ok {
		var p *domain.AmericanPricer
		if p, err = engine.Build(opt); err == nil {
			price = p.Value()
			if capped := p.CappedLayers(); capped > 0 {
				logger.Warn(ctx, "SOR iteration cap reached", "layers", capped, "option", opt.String())
				rec.RecordCappedLayers(capped)
			}
		}
	} else {
		price, err = model.Price(opt)
	}
	rec.RecordPricing(name, time.Since(start), err)
	if err != nil {
		return 0, domain.Greeks{}, err
	}

	start = time.Now()
	g, err := domain.ComputeGreeks(ctx, model, opt)
	if err != nil {
		return 0, domain.Greeks{}, fmt.Errorf("greeks: %w", err)
	}
	rec.RecordGreeks(name, time.Since(start))
	return price, g, nil
}

// BatchPriceOptions 并发批量定价，单笔失败计入 FailureCount 不中断批次
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if cmd.BatchID == "" {
		cmd.BatchID = uuid.New().String()
	}

	type outcome struct {
		result  *domain.PricingResult
		err     error
		elapsed time.Duration
	}
	outcomes := make([]outcome, len(cmd.Contracts))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchWorkers)
	for i, contract := range cmd.Contracts {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := c.PriceOption(egCtx, contract)
			outcomes[i] = outcome{result: res, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &BatchPricingResult{
		BatchID: cmd.BatchID,
		Results: make([]*domain.PricingResult, 0, len(outcomes)),
	}
	var total time.Duration
	for i, o := range outcomes {
		total += o.elapsed
		if o.err != nil {
			out.FailureCount++
			out.Failures = append(out.Failures, BatchFailure{
				Symbol:    cmd.Contracts[i].Symbol,
				Error:     o.err.Error(),
				ErrorCode: domain.ErrorCode(o.err),
			})
			continue
		}
		out.SuccessCount++
		out.Results = append(out.Results, o.result)
	}
	if len(outcomes) > 0 {
		out.AverageTime = total.Seconds() / float64(len(outcomes))
	}

	now := c.now()
	c.publish(ctx, domain.BatchPricingCompletedEventType, cmd.BatchID, domain.BatchPricingCompletedEvent{
		BatchID:        cmd.BatchID,
		Symbols:        extractSymbols(cmd.Contracts),
		TotalContracts: len(cmd.Contracts),
		SuccessCount:   out.SuccessCount,
		FailureCount:   out.FailureCount,
		AverageTime:    out.AverageTime,
		CompletedAt:    now.Unix(),
		OccurredOn:     now,
	})

	logger.Info(ctx, "Batch pricing completed",
		"batch_id", cmd.BatchID,
		"success", out.SuccessCount,
		"failure", out.FailureCount,
	)
	return out, nil
}

// publish 事件发布失败只记录日志
func (c *PricingCommandService) publish(ctx context.Context, eventType, key string, event any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, eventType, key, event); err != nil {
		logger.Warn(ctx, "Failed to publish event", "event_type", eventType, "key", key, "error", err)
	}
}

// 辅助函数：提取合约符号
func extractSymbols(contracts []PriceOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)

	for _, contract := range contracts {
		if !seen[contract.Symbol] {
			symbols = append(symbols, contract.Symbol)
			seen[contract.Symbol] = true
		}
	}

	return symbols
}
