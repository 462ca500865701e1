package domain

import (
	"context"
	"errors"
	"time"
)

const (
	OptionPricedEventType          = "OptionPriced"
	GreeksCalculatedEventType      = "GreeksCalculated"
	PricingErrorEventType          = "PricingError"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol          string       `json:"symbol"`
	OptionType      ExerciseKind `json:"option_type"`
	StrikePrice     float64      `json:"strike_price"`
	TimeToMaturity  float64      `json:"time_to_maturity"`
	OptionPrice     float64      `json:"option_price"`
	UnderlyingPrice float64      `json:"underlying_price"`
	Volatility      float64      `json:"volatility"`
	RiskFreeRate    float64      `json:"risk_free_rate"`
	PricingModel    string       `json:"pricing_model"`
	CalculatedAt    int64        `json:"calculated_at"`
	OccurredOn      time.Time    `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	Symbol          string       `json:"symbol"`
	OptionType      ExerciseKind `json:"option_type"`
	StrikePrice     float64      `json:"strike_price"`
	UnderlyingPrice float64      `json:"underlying_price"`
	PricingModel    string       `json:"pricing_model"`
	Greeks          Greeks       `json:"greeks"`
	CalculatedAt    int64        `json:"calculated_at"`
	OccurredOn      time.Time    `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	Symbol       string    `json:"symbol"`
	OptionType   string    `json:"option_type"`
	StrikePrice  float64   `json:"strike_price"`
	PricingModel string    `json:"pricing_model"`
	Error        string    `json:"error"`
	ErrorCode    string    `json:"error_code"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	Symbols        []string  `json:"symbols"`
	TotalContracts int       `json:"total_contracts"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	AverageTime    float64   `json:"average_time"`
	CompletedAt    int64     `json:"completed_at"`
	OccurredOn     time.Time `json:"occurred_on"`
}

// EventPublisher 领域事件发布者
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, event any) error
}

// TxEventPublisher 能在仓储事务内写入事件的发布器（outbox）
type TxEventPublisher interface {
	EventPublisher
	PublishInTx(txCtx context.Context, eventType, key string, event any) error
}

// ErrorCode 将领域错误映射为事件中的错误码
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfig):
		return "INVALID_CONFIG"
	case errors.Is(err, ErrOutOfRange):
		return "OUT_OF_RANGE"
	case errors.Is(err, ErrNumeric):
		return "NUMERIC"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
