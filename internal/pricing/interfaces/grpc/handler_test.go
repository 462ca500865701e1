package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/mysql"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/grpcclient"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestConn(t *testing.T) *grpc.ClientConn {
	t.Helper()
	ctx := context.Background()

	d, err := db.Init(ctx, db.Config{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	repo := mysql.NewPricingRepository(d.DB)
	if err := repo.AutoMigrate(ctx); err != nil {
		t.Fatal(err)
	}
	engines, err := application.NewEngines(domain.ModelBlackScholes, domain.DefaultEngineSettings())
	if err != nil {
		t.Fatal(err)
	}
	app := application.NewPricingService(application.Dependencies{Engines: engines, Repo: repo})

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(app, grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
	))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcclient.NewClient(grpcclient.Config{
		Target:     "passthrough:///bufnet",
		MaxRetries: 1,
		Dialer:     func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(newTestConn(t))
}

func atmPut(model string) *application.PriceOptionCommand {
	return &application.PriceOptionCommand{
		Symbol:          "SPY",
		OptionType:      "put",
		StrikePrice:     100,
		TimeToMaturity:  1,
		UnderlyingPrice: 100,
		Volatility:      0.2,
		RiskFreeRate:    0.05,
		PricingModel:    model,
	}
}

func TestPriceOptionOverGRPC(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res, err := c.PriceOption(ctx, atmPut(domain.ModelBinomial))
	if err != nil {
		t.Fatal(err)
	}
	if p := res.OptionPrice.InexactFloat64(); p < 5.5 || p > 5.65 {
		t.Fatalf("binomial european put = %g", p)
	}
	if res.OptionType != domain.Put || res.ID == 0 {
		t.Fatalf("result = %+v", res)
	}

	latest, err := c.GetLatestResult(ctx, &SymbolRequest{Symbol: "SPY"})
	if err != nil || latest.ID != res.ID {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	hist, err := c.GetHistory(ctx, &HistoryRequest{Symbol: "SPY", Limit: 10})
	if err != nil || len(hist.Results) != 1 {
		t.Fatalf("history = %+v, %v", hist, err)
	}
}

func TestGreeksAndSurfaceOverGRPC(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	g, err := c.GetGreeks(ctx, atmPut(""))
	if err != nil {
		t.Fatal(err)
	}
	if g.Greeks.Delta > -0.3 || g.Greeks.Delta < -0.4 {
		t.Fatalf("put delta = %g", g.Greeks.Delta)
	}

	surface, err := c.GetSurface(ctx, &application.SurfaceQuery{PriceOptionCommand: *atmPut(""), Intervals: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(surface.Points) != 11 {
		t.Fatalf("rows = %d", len(surface.Points))
	}
}

func TestStatusCodes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	bad := atmPut("")
	bad.Volatility = -1
	if _, err := c.PriceOption(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("invalid volatility code = %v", status.Code(err))
	}

	far := atmPut(domain.ModelAmerican)
	far.UnderlyingPrice = 400
	if _, err := c.PriceOption(ctx, far); status.Code(err) != codes.OutOfRange {
		t.Fatalf("out of grid code = %v", status.Code(err))
	}

	if _, err := c.GetLatestResult(ctx, &SymbolRequest{Symbol: "NONE"}); status.Code(err) != codes.NotFound {
		t.Fatalf("missing symbol code = %v", status.Code(err))
	}

	if _, err := c.BatchPriceOptions(ctx, &application.BatchPriceOptionsCommand{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("empty batch code = %v", status.Code(err))
	}
}

func TestStructMessagesOnTheWire(t *testing.T) {
	conn := newTestConn(t)
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{
		"symbol":           "SPY",
		"option_type":      "call",
		"strike_price":     100,
		"time_to_maturity": 1,
		"underlying_price": 100,
		"volatility":       0.2,
		"risk_free_rate":   0.05,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ServiceName+"/PriceOption", req, resp); err != nil {
		t.Fatal(err)
	}
	fields := resp.GetFields()
	if fields["pricing_model"].GetStringValue() != domain.ModelBlackScholes {
		t.Fatalf("pricing_model = %v", fields["pricing_model"])
	}
	if price := fields["option_price"].GetStringValue(); price == "" {
		t.Fatalf("option_price = %v", fields["option_price"])
	}
	if fields["id"].GetNumberValue() == 0 {
		t.Fatalf("id = %v", fields["id"])
	}

	bad, err := structpb.NewStruct(map[string]any{"symbol": "SPY", "strike_price": "not a number"})
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.Invoke(ctx, "/"+ServiceName+"/PriceOption", bad, new(structpb.Struct)); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("malformed request code = %v", status.Code(err))
	}
}
