package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// ListByName returns accounts whose name contains pattern, ignoring case,
	// ordered by creation time then id.
	ListByName(ctx context.Context, pattern string) ([]*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// TransactionRepository is the append-only transaction log.
// Reads are ordered by creation time ascending, ties broken by id.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, record *domain.TransactionRecord) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionRecord, error)
	ListPage(ctx context.Context, filter domain.TransactionFilter, page, size int) ([]*domain.TransactionRecord, int64, error)
	// OperatorDateRange returns the earliest and latest record timestamps for operators matching pattern.
	OperatorDateRange(ctx context.Context, pattern string) (first, last time.Time, found bool, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// AccountLocker serializes writers per account.
type AccountLocker interface {
	// Lock acquires every id in ascending order. It fails with domain.ErrBusy when the
	// locks cannot be obtained in time. The returned func releases all of them.
	Lock(ctx context.Context, ids ...string) (unlock func(), err error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// MetricsRecorder observes ledger mutations.
type MetricsRecorder interface {
	ObserveOperation(operation string, amount decimal.Decimal, err error, duration time.Duration)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so the client may retry it.
	Release(ctx context.Context, key string) error
}
