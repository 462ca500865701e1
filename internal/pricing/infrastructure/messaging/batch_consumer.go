package messaging

import (
	"context"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/mq"
)

// BatchPricer 批量定价入口
type BatchPricer interface {
	BatchPriceOptions(ctx context.Context, cmd application.BatchPriceOptionsCommand) (*application.BatchPricingResult, error)
}

// NewBatchRequestHandler 消费批量定价请求；无法解析的消息直接进入死信队列
func NewBatchRequestHandler(pricer BatchPricer) mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		var cmd application.BatchPriceOptionsCommand
		if err := msg.UnmarshalPayload(&cmd); err != nil {
			return fmt.Errorf("%w: decode batch request: %v", mq.ErrPermanent, err)
		}
		if len(cmd.Contracts) == 0 {
			return fmt.Errorf("%w: empty batch %q", mq.ErrPermanent, cmd.BatchID)
		}
		if cmd.BatchID == "" {
			cmd.BatchID = msg.Key
		}

		res, err := pricer.BatchPriceOptions(ctx, cmd)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Batch request processed",
			"batch_id", res.BatchID,
			"offset", msg.Offset,
			"success", res.SuccessCount,
			"failure", res.FailureCount,
		)
		return nil
	}
}
