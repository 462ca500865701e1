package grpc

import (
	"context"
	"errors"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCHandler gRPC 处理器
// 负责处理与定价相关的 gRPC 请求
type GRPCHandler struct {
	app *application.PricingService // 定价应用服务
}

var _ PricingServer = (*GRPCHandler)(nil)

// NewGRPCHandler 创建 gRPC 处理器实例
func NewGRPCHandler(app *application.PricingService) *GRPCHandler {
	return &GRPCHandler{app: app}
}

func (h *GRPCHandler) PriceOption(ctx context.Context, req *application.PriceOptionCommand) (*domain.PricingResult, error) {
	res, err := h.app.PriceOption(ctx, *req)
	return res, toStatus(err)
}

func (h *GRPCHandler) GetGreeks(ctx context.Context, req *application.PriceOptionCommand) (*application.GreeksResult, error) {
	res, err := h.app.GetGreeks(ctx, *req)
	return res, toStatus(err)
}

func (h *GRPCHandler) BatchPriceOptions(ctx context.Context, req *application.BatchPriceOptionsCommand) (*application.BatchPricingResult, error) {
	if len(req.Contracts) == 0 {
		return nil, status.Error(codes.InvalidArgument, "contracts are required")
	}
	res, err := h.app.BatchPriceOptions(ctx, *req)
	return res, toStatus(err)
}

func (h *GRPCHandler) GetSurface(ctx context.Context, req *application.SurfaceQuery) (*SurfaceResponse, error) {
	points, err := h.app.GetSurface(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SurfaceResponse{Points: points}, nil
}

func (h *GRPCHandler) GetLatestResult(ctx context.Context, req *SymbolRequest) (*domain.PricingResult, error) {
	res, err := h.app.GetLatestResult(ctx, req.Symbol)
	return res, toStatus(err)
}

func (h *GRPCHandler) GetHistory(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	res, err := h.app.GetHistory(ctx, req.Symbol, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &HistoryResponse{Results: res}, nil
}

// toStatus 领域错误映射为 gRPC 状态码
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
