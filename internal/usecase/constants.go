package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single storage transaction.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// reconcileBatchSize is the account page size used while reconciling.
	reconcileBatchSize = 500
)

// Operation names reported to MetricsRecorder.
const (
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdraw"
	OperationTransfer = "transfer"
)
