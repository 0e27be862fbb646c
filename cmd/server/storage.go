package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/adapter/repository/sqlite"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/locker"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/usecase"
)

// storage bundles the repositories of one backend.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	outbox       usecase.OutboxRepository
	ping         func(ctx context.Context) error
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			ping:         store.Ping,
			close:        func() {},
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return &storage{
			txManager:    sqlite.NewTxManager(store),
			accounts:     sqlite.NewAccountRepository(store),
			transactions: sqlite.NewTransactionRepository(store),
			outbox:       sqlite.NewOutboxRepository(store),
			ping:         store.Ping,
			close:        func() { store.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:       cfg.DatabaseURL,
			MaxConns:          cfg.DatabaseMaxConns,
			MinConns:          cfg.DatabaseMinConns,
			ConnectMaxElapsed: cfg.ConnectMaxElapsed,
			Logger:            lg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if cfg.DatabaseMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL, lg); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &storage{
			txManager:    postgresRepo.NewTxManager(pool, cfg.DatabaseLockTimeout),
			accounts:     postgresRepo.NewAccountRepository(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			ping:         pool.Ping,
			close:        pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newLocker(cfg *config.Config, client *goredis.Client) (usecase.AccountLocker, error) {
	switch cfg.LockBackend {
	case config.LockBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("lock backend %q needs a redis client", cfg.LockBackend)
		}
		return redisRepo.NewLocker(client, cfg.LockTimeout, cfg.LockLease), nil
	case "", config.LockBackendLocal:
		return locker.New(cfg.LockTimeout), nil
	}
	return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
}
