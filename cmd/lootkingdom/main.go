package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/loot_kingdom/internal/cache"
	"github.com/fjod/loot_kingdom/internal/config"
	opsgrpc "github.com/fjod/loot_kingdom/internal/grpc"
	httpapi "github.com/fjod/loot_kingdom/internal/http"
	"github.com/fjod/loot_kingdom/internal/metrics"
	"github.com/fjod/loot_kingdom/internal/payment"
	"github.com/fjod/loot_kingdom/internal/publisher"
	"github.com/fjod/loot_kingdom/internal/repository"
	"github.com/fjod/loot_kingdom/internal/service"
	"github.com/fjod/loot_kingdom/pkg/circuitbreaker"
	"github.com/fjod/loot_kingdom/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

const serviceName = "lootkingdom"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Loot Kingdom settlement service",
		SilenceUsage: true,
	}
	cmd.AddCommand(serveCmd(), migrateCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var httpPort, grpcPort string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health port and the outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if httpPort != "" {
				cfg.HTTPPort = httpPort
			}
			if grpcPort != "" {
				cfg.GRPCPort = grpcPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&httpPort, "http-port", "", "HTTP listen port (overrides HTTP_PORT)")
	cmd.Flags().StringVar(&grpcPort, "grpc-port", "", "gRPC health port (overrides GRPC_PORT)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database migrations completed", "driver", cfg.DBDriver)
			return nil
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: serviceName})
	slog.SetDefault(log)
	return log
}

// setupTracing installs a tracer provider so otelhttp and otelgrpc spans get
// ids for log correlation, and honours inbound W3C trace context. No
// exporter is configured.
func setupTracing() func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}

func openRepository(cfg *config.Config) (*repository.Repository, error) {
	if repository.Dialect(cfg.DBDriver) == repository.DialectSQLite {
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	}
	return repository.NewRepository(&cfg.DB)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	log.Info("loot kingdom starting", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort, "driver", cfg.DBDriver)

	shutdownTracing := setupTracing()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Database setup
	repo, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations completed")

	// Redis setup
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, cart reads will go to the database", "addr", cfg.RedisAddr, "error", err)
	}
	cartCache := cache.NewRedisCache(redisClient, cfg.CartCacheTTL)

	m := metrics.New()
	gateway := payment.NewHostedCheckout(payment.Config{
		BaseURL:       cfg.PaymentAPIURL,
		AccessToken:   cfg.PaymentToken,
		PublicBaseURL: cfg.PublicBaseURL,
		Timeout:       cfg.PaymentTimeout,
		Breaker:       circuitbreaker.DefaultConfig(),
	}, log)
	if cfg.PaymentToken == "" {
		log.Warn("PAYMENT_ACCESS_TOKEN not set, orders will be created without a payment link")
	}

	cartService := service.NewCartService(repo, cartCache, log)
	checkoutService := service.NewCheckoutService(repo, gateway, cartCache, m, log, cfg.LootCoinRate)
	loyaltyService := service.NewLoyaltyService(repo, m, log)
	catalogService := service.NewCatalogService(repo)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Cart:           cartService,
		Checkout:       checkoutService,
		Loyalty:        loyaltyService,
		Catalog:        catalogService,
		DB:             repo,
		Metrics:        m.Handler(),
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	healthServer := opsgrpc.NewHealthServer(repo, cfg.HealthProbeEvery, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return healthServer.Serve(lis)
	})

	g.Go(func() error {
		healthServer.Watch(gctx)
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), m, log, cfg.OutboxPollEvery)
		g.Go(func() error {
			defer poller.Close()
			poller.Run(gctx)
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, outbox events stay unpublished")
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down loot kingdom")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		healthServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("loot kingdom stopped")
	return nil
}
