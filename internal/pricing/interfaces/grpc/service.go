// Package grpc 定价服务的 gRPC 接口
// 线上消息均为 google.protobuf.Struct，字段与 HTTP 接口的 JSON 字段一致
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

// ServiceName 完整服务名
const ServiceName = "optionpricing.v1.PricingService"

// SymbolRequest 按标的查询
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// HistoryRequest 历史查询
type HistoryRequest struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

// HistoryResponse 历史记录
type HistoryResponse struct {
	Results []*domain.PricingResult `json:"results"`
}

// SurfaceResponse 敏感度曲面
type SurfaceResponse struct {
	Points []domain.SurfacePoint `json:"points"`
}

// PricingServer gRPC 服务端接口
type PricingServer interface {
	PriceOption(context.Context, *application.PriceOptionCommand) (*domain.PricingResult, error)
	GetGreeks(context.Context, *application.PriceOptionCommand) (*application.GreeksResult, error)
	BatchPriceOptions(context.Context, *application.BatchPriceOptionsCommand) (*application.BatchPricingResult, error)
	GetSurface(context.Context, *application.SurfaceQuery) (*SurfaceResponse, error)
	GetLatestResult(context.Context, *SymbolRequest) (*domain.PricingResult, error)
	GetHistory(context.Context, *HistoryRequest) (*HistoryResponse, error)
}

func unary[Req, Resp any](method string, call func(PricingServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				typed := new(Req)
				if err := fromStruct(req.(*structpb.Struct), typed); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(PricingServer), ctx, typed)
				if err != nil {
					return nil, err
				}
				out, err := toStruct(resp)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc 手写的服务描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("PriceOption", PricingServer.PriceOption),
		unary("GetGreeks", PricingServer.GetGreeks),
		unary("BatchPriceOptions", PricingServer.BatchPriceOptions),
		unary("GetSurface", PricingServer.GetSurface),
		unary("GetLatestResult", PricingServer.GetLatestResult),
		unary("GetHistory", PricingServer.GetHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "optionpricing/v1/pricing",
}

// RegisterPricingServer 注册服务
func RegisterPricingServer(s grpc.ServiceRegistrar, srv PricingServer) {
	s.RegisterService(&ServiceDesc, srv)
}
