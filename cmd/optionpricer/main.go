// optionpricer 命令行定价工具：美式期权 CN+PSOR 定价、各模型价格对比与敏感度曲面导出
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/export"
	pricinggrpc "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/grpc"
	"github.com/wyfcoding/optionpricing/pkg/grpcclient"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

type params struct {
	spot, strike, rate, vol, maturity float64
	optionType                        string
	outputDir                         string
	format                            string
	surfacePoints                     int
	server                            string
	settings                          domain.EngineSettings
}

// parseFlags 解析命令行，错误与用法写入 output
func parseFlags(args []string, output io.Writer) (params, error) {
	p := params{settings: domain.DefaultEngineSettings()}
	fs := flag.NewFlagSet("optionpricer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Float64Var(&p.spot, "spot", 100, "underlying spot price")
	fs.Float64Var(&p.strike, "strike", 100, "strike price")
	fs.Float64Var(&p.rate, "rate", 0.05, "risk-free rate")
	fs.Float64Var(&p.vol, "vol", 0.2, "volatility")
	fs.Float64Var(&p.maturity, "maturity", 1, "time to maturity in years")
	fs.StringVar(&p.optionType, "type", "put", "call or put")
	fs.StringVar(&p.outputDir, "out", "output", "directory for exported surfaces")
	fs.StringVar(&p.format, "format", "csv", "export format: csv, json or yaml")
	fs.IntVar(&p.surfacePoints, "surface-points", 100, "number of spot intervals in exported surfaces")
	fs.StringVar(&p.server, "server", "", "pricing service gRPC address; when set, Greeks are fetched remotely")
	fs.IntVar(&p.settings.GridPoints, "grid-points", p.settings.GridPoints, "american engine spatial divisions")
	fs.Float64Var(&p.settings.TimeIncrement, "dt", p.settings.TimeIncrement, "american engine time step")
	fs.IntVar(&p.settings.Simulations, "simulations", p.settings.Simulations, "monte carlo paths")
	fs.Int64Var(&p.settings.Seed, "seed", p.settings.Seed, "monte carlo seed")
	if err := fs.Parse(args); err != nil {
		return p, err
	}
	// 兼容位置参数：spot strike rate vol maturity type
	if rest := fs.Args(); len(rest) >= 6 {
		var err error
		for i, dst := range []*float64{&p.spot, &p.strike, &p.rate, &p.vol, &p.maturity} {
			if _, err = fmt.Sscan(rest[i], dst); err != nil {
				err = fmt.Errorf("%w: argument %d %q: %v", domain.ErrInvalidConfig, i+1, rest[i], err)
				fmt.Fprintf(output, "optionpricer: %v\n", err)
				fs.Usage()
				return p, err
			}
		}
		p.optionType = rest[5]
	}
	return p, nil
}

func main() {
	if err := logger.Init(logger.Config{Level: "info", Format: "text", Output: "stdout"}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	p, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := run
	if p.server != "" {
		runner = runRemote
	}
	if err := runner(ctx, p, os.Stdout); err != nil {
		logger.Error(ctx, "optionpricer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p params, w io.Writer) error {
	kind, err := domain.ParseExerciseKind(p.optionType)
	if err != nil {
		return err
	}
	opt, err := domain.NewOption(p.spot, p.strike, p.rate, p.vol, p.maturity, kind)
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(p.format)
	if err != nil {
		return err
	}
	surface := domain.DefaultSurfaceSpec()
	surface.Intervals = p.surfacePoints

	fmt.Fprintf(w, "Option: %s\n\n", opt)

	american, err := domain.NewAmericanEngine(p.settings.GridPoints, p.settings.TimeIncrement)
	if err != nil {
		return err
	}
	if pricer, err := american.Build(opt); err != nil {
		logger.Error(ctx, "American pricing failed", "error", err)
	} else {
		fmt.Fprintf(w, "American option (Crank-Nicolson): %.6f\n", pricer.Value())
		if capped := pricer.CappedLayers(); capped > 0 {
			logger.Warn(ctx, "SOR iteration cap reached", "layers", capped)
		}
		if g, err := domain.ComputeGreeks(ctx, american, opt); err != nil {
			logger.Error(ctx, "American Greeks failed", "error", err)
		} else {
			printGreeks(w, "American Greeks (Crank-Nicolson)", g)
		}
		exportSurface(ctx, w, american, opt, surface, p.outputDir, "american_option_data", f)
	}

	bs := domain.NewBlackScholesPricer()
	if g, err := domain.ComputeGreeks(ctx, bs, opt); err != nil {
		logger.Error(ctx, "Black-Scholes Greeks failed", "error", err)
	} else {
		printGreeks(w, "Black-Scholes Greeks", g)
		printGreeks(w, "Black-Scholes analytic Greeks", domain.AnalyticGreeks(opt))
		exportSurface(ctx, w, bs, opt, surface, p.outputDir, "black_scholes_data", f)
	}

	fmt.Fprintln(w, "Model prices:")
	for _, name := range domain.ModelNames() {
		model, err := domain.NewModel(name, p.settings)
		if err != nil {
			logger.Error(ctx, "Failed to create model", "model", name, "error", err)
			continue
		}
		price, err := model.Price(opt)
		if err != nil {
			logger.Error(ctx, "Model pricing failed", "model", name, "error", err)
			fmt.Fprintf(w, "%24s:\t error: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%24s:\t %.6f\n", name, price)

		if name == domain.ModelFiniteDifference {
			if g, err := domain.ComputeGreeks(ctx, model, opt); err != nil {
				logger.Error(ctx, "Finite difference Greeks failed", "error", err)
			} else {
				printGreeks(w, "Crank-Nicolson Greeks", g)
			}
			exportSurface(ctx, w, model, opt, surface, p.outputDir, "finite_difference_data", f)
		}
	}
	return ctx.Err()
}

func printGreeks(w io.Writer, title string, g domain.Greeks) {
	fmt.Fprintf(w, "%s:\n  Delta: %.6f\n  Gamma: %.6f\n  Theta: %.6f\n  Rho:   %.6f\n  Vega:  %.6f\n\n",
		title, g.Delta, g.Gamma, g.Theta, g.Rho, g.Vega)
}

// exportSurface 失败只记录日志，不中断后续模型
func exportSurface(ctx context.Context, w io.Writer, m domain.Model, opt domain.Option, spec domain.SurfaceSpec, dir, name string, f export.Format) {
	points, err := domain.BuildSurface(ctx, m, opt, spec)
	if err != nil {
		logger.Error(ctx, "Surface build failed", "surface", name, "error", err)
		return
	}
	path, err := export.WriteFile(dir, name, f, points)
	if err != nil {
		logger.Error(ctx, "Surface export failed", "surface", name, "error", err)
		return
	}
	fmt.Fprintf(w, "Exported %s\n\n", path)
}

// runRemote 通过 gRPC 向定价服务请求每个模型的价格与希腊字母
func runRemote(ctx context.Context, p params, w io.Writer) error {
	conn, err := grpcclient.NewClient(grpcclient.Config{
		Target:         p.server,
		ConnTimeout:    5,
		RequestTimeout: 60,
		MaxRetries:     2,
		RetryDelay:     200,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	client := pricinggrpc.NewClient(conn)

	fmt.Fprintf(w, "Remote pricing via %s\n\n", p.server)
	for _, name := range domain.ModelNames() {
		res, err := client.GetGreeks(ctx, &application.PriceOptionCommand{
			Symbol:          "CLI",
			OptionType:      p.optionType,
			StrikePrice:     p.strike,
			TimeToMaturity:  p.maturity,
			UnderlyingPrice: p.spot,
			Volatility:      p.vol,
			RiskFreeRate:    p.rate,
			PricingModel:    name,
		})
		if err != nil {
			logger.Error(ctx, "Remote pricing failed", "model", name, "error", err)
			fmt.Fprintf(w, "%24s:\t error: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%24s:\t %.6f\n", name, res.Price)
		printGreeks(w, name+" Greeks", res.Greeks)
	}
	return ctx.Err()
}
