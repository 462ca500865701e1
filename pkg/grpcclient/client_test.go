package grpcclient

import (
	"context"
	"testing"

	"github.com/wyfcoding/optionpricing/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptorRetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     codes.Code
		attempts int
	}{
		{"unavailable retried", codes.Unavailable, 3},
		{"exhausted retried", codes.ResourceExhausted, 3},
		{"invalid argument not retried", codes.InvalidArgument, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			invoker := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
				calls++
				return status.Error(tt.code, "boom")
			}
			err := unaryClientInterceptor(Config{MaxRetries: 2, RetryDelay: 1})(context.Background(), "/svc/M", nil, nil, nil, invoker)
			if status.Code(err) != tt.code {
				t.Fatalf("err = %v", err)
			}
			if calls != tt.attempts {
				t.Fatalf("calls = %d, want %d", calls, tt.attempts)
			}
		})
	}
}

func TestInterceptorSucceedsAfterRetry(t *testing.T) {
	calls := 0
	invoker := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		if calls < 2 {
			return status.Error(codes.Unavailable, "down")
		}
		return nil
	}
	if err := unaryClientInterceptor(Config{MaxRetries: 3})(context.Background(), "/svc/M", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestInterceptorPropagatesTraceID(t *testing.T) {
	var got []string
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get(TraceMetadataKey)
		return nil
	}
	ctx := logger.WithTrace(context.Background(), "trace-123", "")
	if err := unaryClientInterceptor(Config{})(ctx, "/svc/M", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "trace-123" {
		t.Fatalf("metadata = %v", got)
	}
}
