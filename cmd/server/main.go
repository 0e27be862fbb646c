package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	lg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "bankledger"})
	log.Logger = lg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("server failed")
	}
}

// run wires the application and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ids, err := idgen.New(cfg.IDFormat)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegisterer(reg)

	// Storage
	store, err := openStorage(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer store.close()
	lg.Info().Str("driver", cfg.StorageDriver).Msg("storage ready")

	checks := map[string]handler.Checker{"storage": store.ping}

	// Redis
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClientWithRetry(ctx, cfg.RedisURL, cfg.ConnectMaxElapsed, lg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		lg.Info().Msg("connected to redis")
	}

	accountLocker, err := newLocker(cfg, redisClient)
	if err != nil {
		return err
	}

	// Initialize use cases
	accountUC := usecase.NewAccountUseCase(store.txManager, store.accounts, store.outbox, ids)
	ledgerUC := usecase.NewLedgerUseCase(store.txManager, accountLocker, store.accounts, store.transactions, store.outbox, ids,
		usecase.WithLogger(logger.Component(lg, "ledger")),
		usecase.WithMetrics(m),
	)
	transactionUC := usecase.NewTransactionUseCase(store.accounts, store.transactions, loc)
	balanceUC := usecase.NewBalanceUseCase(store.accounts, store.transactions, loc)
	reconciliationUC := usecase.NewReconciliationUseCase(store.accounts, balanceUC)

	// Outbox worker
	if cfg.OutboxEnabled {
		var sink eventpublisher.Publisher = eventpublisher.NewLogPublisher(logger.Component(lg, "events"))
		if redisClient != nil {
			sink = eventpublisher.NewRedisPublisher(redisClient, cfg.OutboxChannel)
		}
		worker := eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  sink,
			Logger:     logger.Component(lg, "outbox"),
			Metrics:    m,
			Interval:   cfg.OutboxInterval,
		})
		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)
	go rateLimiter.RunCleanup(ctx, 10*time.Minute, time.Hour)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		TransactionHandler:    handler.NewTransactionHandler(transactionUC, loc),
		BalanceHandler:        handler.NewBalanceHandler(balanceUC, loc),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HealthHandler:         handler.NewHealthHandler(checks),
		Logger:                logger.Component(lg, "http"),
		Metrics:               m,
		MetricsGatherer:       reg,
		RateLimiter:           rateLimiter,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
	}
	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lg.Info().Msg("server stopped")
	return nil
}
