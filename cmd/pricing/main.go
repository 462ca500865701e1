package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/mysql"
	pricingredis "github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/redis"
	grpchandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/optionpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/db"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const BootstrapName = "pricing"

func main() {
	configPath := flag.String("config", config.GetEnv("PRICING_CONFIG", "configs/pricing.toml"), "path to the TOML config file")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config(cfg.Logger)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting service", "service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)
	if err := run(ctx, cfg); err != nil {
		logger.Fatal(ctx, "Service exited with error", "error", err)
	}
	logger.Info(ctx, "Service stopped")
}

func engineSettings(e config.EngineConfig) domain.EngineSettings {
	return domain.EngineSettings{
		TimeSteps:      e.TimeSteps,
		AssetSteps:     e.AssetSteps,
		GridPoints:     e.GridPoints,
		TimeIncrement:  e.TimeIncrement,
		Simulations:    e.Simulations,
		Workers:        e.Workers,
		Seed:           e.Seed,
		BinomialSteps:  e.BinomialSteps,
		LSMPaths:       e.LSMPaths,
		LSMSteps:       e.LSMSteps,
		SurfacePoints:  e.SurfacePoints,
		SurfaceWorkers: e.SurfaceWorkers,
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(cfg.ServiceName)

	database, err := db.Init(ctx, db.Config(cfg.Database))
	if err != nil {
		return err
	}
	defer database.Close()

	repo := mysql.NewPricingRepository(database.DB)
	if err := repo.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("migrate pricing results: %w", err)
	}

	var (
		resultCache domain.PricingCache
		limiter     ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	)
	if cfg.Redis.Enabled {
		rc, err := cache.New(ctx, cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		resultCache = pricingredis.NewPricingCache(rc, time.Duration(cfg.Redis.ResultTTL)*time.Second)
		limiter = ratelimit.NewRedisRateLimiter(rc.Client())
	}

	g, ctx := errgroup.WithContext(ctx)

	var (
		publisher domain.EventPublisher
		producer  *mq.Producer
		mqCfg     = mq.Config{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
			MaxRetries:     cfg.Kafka.MaxRetries,
			RetryBackoff:   cfg.Kafka.RetryBackoff,
		}
	)
	if cfg.Kafka.Enabled {
		producer = mq.NewProducer(mqCfg)
		defer producer.Close()
		kafkaPublisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.TopicPrefix)
		publisher = kafkaPublisher

		if cfg.Kafka.UseOutbox {
			outbox := messaging.NewOutboxEventPublisher(database.DB)
			if err := outbox.AutoMigrate(ctx); err != nil {
				return fmt.Errorf("migrate outbox: %w", err)
			}
			publisher = outbox
			g.Go(func() error {
				outbox.RunRelay(ctx, kafkaPublisher, messaging.RelayConfig{
					Interval:  time.Duration(cfg.Kafka.OutboxInterval) * time.Millisecond,
					BatchSize: cfg.Kafka.OutboxBatch,
					Retention: time.Duration(cfg.Kafka.OutboxRetention) * time.Second,
				})
				return nil
			})
		}
	}

	engines, err := application.NewEngines(cfg.Engine.DefaultModel, engineSettings(cfg.Engine))
	if err != nil {
		return err
	}
	app := application.NewPricingService(application.Dependencies{
		Engines:      engines,
		Repo:         repo,
		Cache:        resultCache,
		Publisher:    publisher,
		Recorder:     m,
		BatchWorkers: cfg.Engine.BatchWorkers,
	})

	if cfg.Kafka.Enabled && cfg.Kafka.RequestTopic != "" {
		consumer := mq.NewConsumer(mqCfg, cfg.Kafka.RequestTopic, mq.NewDeadLetterQueue(producer, cfg.Kafka.DLQTopic))
		defer consumer.Close()
		g.Go(func() error {
			return consumer.Run(ctx, messaging.NewBatchRequestHandler(app))
		})
	}

	if cfg.Metrics.Enabled {
		g.Go(func() error { return m.Serve(ctx, cfg.Metrics.Port, cfg.Metrics.Path) })
	}

	httpSrv := newHTTPServer(cfg, app, m, limiter)
	g.Go(func() error {
		logger.Info(ctx, "HTTP server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	grpcSrv := grpchandler.NewServer(app,
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCMetricsInterceptor(m),
			middleware.GRPCRateLimitInterceptor(limiter, cfg.RateLimit),
		),
	)
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return err
		}
		logger.Info(ctx, "gRPC server listening", "addr", cfg.GRPC.Addr())
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info(context.Background(), "Shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newHTTPServer(cfg *config.Config, app *application.PricingService, m *metrics.Metrics, limiter ratelimit.RateLimiter) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	e := gin.New()
	e.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(m),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.RateLimitMiddleware(limiter, cfg.RateLimit),
	)
	httphandler.NewPricingHandler(app).RegisterRoutes(e)
	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   BootstrapName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
