package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/catalog-feed/internal/assembler"
	"github.com/rickgao/catalog-feed/internal/auth"
	"github.com/rickgao/catalog-feed/internal/catalog"
	"github.com/rickgao/catalog-feed/internal/changestream"
	"github.com/rickgao/catalog-feed/internal/channel"
	"github.com/rickgao/catalog-feed/internal/config"
	"github.com/rickgao/catalog-feed/internal/currency"
	"github.com/rickgao/catalog-feed/internal/database"
	"github.com/rickgao/catalog-feed/internal/feed"
	"github.com/rickgao/catalog-feed/internal/httpapi"
	"github.com/rickgao/catalog-feed/internal/intake"
	"github.com/rickgao/catalog-feed/internal/ledger"
	"github.com/rickgao/catalog-feed/internal/metrics"
	"github.com/rickgao/catalog-feed/internal/pricing"
	"github.com/rickgao/catalog-feed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedserver.local.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the configured one is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger = newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting feed server",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("feed server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("feed server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.FeedServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)
	pools, err := database.NewPools(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pools.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pools.Postgres); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated")
	}

	// Currency rates, cached in redis when configured.
	var rates currency.RateSource = currency.NewPostgresRates(pools.Postgres)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, rate lookups will fall through", "addr", cfg.Redis.Addr, "error", err)
		}
		rates = currency.NewCachedRates(rates, rdb, cfg.Redis.RateTTL, logger)
	}

	// Channels
	registry := channel.NewRegistry(channel.Config{
		ReconcileInterval: cfg.Channels.ReconcileInterval,
		MediaBaseURL:      cfg.Feed.MediaBaseURL,
	}, channel.NewPostgresSource(pools.Postgres), logger)
	if err := registry.Start(ctx); err != nil {
		return fmt.Errorf("start channel registry: %w", err)
	}
	defer stopWithTimeout(logger, "channel registry", cfg.Server.ShutdownTimeout, registry.Stop)

	// Feed
	deltas := ledger.NewPostgres(pools.Postgres, logger)
	prices := pricing.NewResolver(currency.NewConverter(rates), logger, m)
	coord := feed.NewCoordinator(
		feed.Config{
			DefaultPageSize: cfg.Feed.DefaultPageSize,
			MaxPageSize:     cfg.Feed.MaxPageSize,
			CustomerGroupID: cfg.Feed.CustomerGroupID,
			ExtraFields:     cfg.Feed.ExtraFields,
		},
		deltas,
		registry,
		catalog.NewPostgres(pools.Postgres, logger),
		assembler.New(prices, cfg.Feed.AssembleConcurrency, logger),
		m,
		logger,
	)

	// Intake
	writer := intake.NewWriter(intake.Config{
		BufferSize:    cfg.Intake.BufferSize,
		BatchSize:     cfg.Intake.BatchSize,
		FlushInterval: cfg.Intake.FlushInterval,
		WriteTimeout:  cfg.Intake.WriteTimeout,
	}, deltas, m, logger)
	if err := writer.Start(ctx); err != nil {
		return fmt.Errorf("start intake writer: %w", err)
	}
	// Registered before the subscriber so it stops last and flushes
	// everything the stream delivered.
	defer stopWithTimeout(logger, "intake writer", cfg.Server.ShutdownTimeout, writer.Stop)

	if cfg.Stream.URL != "" {
		sub := changestream.NewSubscriber(changestream.Config{
			URL:               cfg.Stream.URL,
			APIKey:            cfg.Stream.APIKey,
			Channel:           cfg.Stream.Channel,
			BufferSize:        cfg.Stream.BufferSize,
			PingInterval:      cfg.Stream.PingInterval,
			ReconnectBaseWait: cfg.Stream.ReconnectBaseDelay,
			ReconnectMaxWait:  cfg.Stream.ReconnectMaxDelay,
		}, writer, m, logger)
		if err := sub.Start(ctx); err != nil {
			return fmt.Errorf("start change stream: %w", err)
		}
		defer stopWithTimeout(logger, "change stream", cfg.Server.ShutdownTimeout, sub.Stop)
	}

	// HTTP
	app := httpapi.NewApp(coord, writer, registry, logger)
	app.DB = pools
	if cfg.Auth.Required {
		key, err := auth.LoadPublicKey(cfg.Auth.PublicKeyPath)
		if err != nil {
			return fmt.Errorf("load auth public key: %w", err)
		}
		app.Verifier = auth.NewVerifier(key, cfg.Auth.MaxSkew)
	}
	if cfg.Metrics.Port == 0 {
		app.Metrics = metrics.Handler(reg)
		app.MetricsPath = cfg.Metrics.Path
	} else {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, metrics.Handler(reg))
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           metricsMux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		go serve(logger, "metrics", metricsServer)
		defer shutdown(logger, metricsServer, cfg.Server.ShutdownTimeout)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", cfg.Server.Addr, "auth_required", cfg.Auth.Required)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("feed server running",
		"instance_id", cfg.Instance.ID,
		"stores", len(registry.AllStores()),
		"stream", cfg.Stream.URL != "",
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdown(logger, server, cfg.Server.ShutdownTimeout)
	return nil
}

func serve(logger *slog.Logger, name string, s *http.Server) {
	logger.Info("starting "+name+" server", "addr", s.Addr)
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error(name+" server error", "error", err)
	}
}

func shutdown(logger *slog.Logger, s *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "addr", s.Addr, "error", err)
	}
}

func stopWithTimeout(logger *slog.Logger, name string, timeout time.Duration, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("stop "+name, "error", err)
	}
}
