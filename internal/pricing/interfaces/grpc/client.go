package grpc

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client 定价服务客户端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 基于已有连接创建客户端
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// invoke 请求与响应在 DTO 与 structpb.Struct 之间转换
func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := toStruct(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, opts...); err != nil {
		return err
	}
	if err := fromStruct(resp, out); err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}

func (c *Client) PriceOption(ctx context.Context, in *application.PriceOptionCommand, opts ...grpc.CallOption) (*domain.PricingResult, error) {
	out := new(domain.PricingResult)
	if err := c.invoke(ctx, "PriceOption", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGreeks(ctx context.Context, in *application.PriceOptionCommand, opts ...grpc.CallOption) (*application.GreeksResult, error) {
	out := new(application.GreeksResult)
	if err := c.invoke(ctx, "GetGreeks", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BatchPriceOptions(ctx context.Context, in *application.BatchPriceOptionsCommand, opts ...grpc.CallOption) (*application.BatchPricingResult, error) {
	out := new(application.BatchPricingResult)
	if err := c.invoke(ctx, "BatchPriceOptions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSurface(ctx context.Context, in *application.SurfaceQuery, opts ...grpc.CallOption) (*SurfaceResponse, error) {
	out := new(SurfaceResponse)
	if err := c.invoke(ctx, "GetSurface", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLatestResult(ctx context.Context, in *SymbolRequest, opts ...grpc.CallOption) (*domain.PricingResult, error) {
	out := new(domain.PricingResult)
	if err := c.invoke(ctx, "GetLatestResult", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHistory(ctx context.Context, in *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "GetHistory", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
