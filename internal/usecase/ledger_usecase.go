package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// LedgerUseCase executes balance mutations. Every operation locks the accounts it touches,
// applies the balance changes and appends the matching transaction records in one storage
// transaction, so it either fully commits or leaves no trace.
type LedgerUseCase struct {
	txManager       TransactionManager
	locker          AccountLocker
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	idGen           IDGenerator
	metrics         MetricsRecorder
	logger          zerolog.Logger
	now             func() time.Time
}

// LedgerOption configures optional LedgerUseCase collaborators.
type LedgerOption func(*LedgerUseCase)

// WithLogger sets the logger used for committed operations and persistence failures.
func WithLogger(logger zerolog.Logger) LedgerOption {
	return func(uc *LedgerUseCase) { uc.logger = logger }
}

// WithMetrics sets the recorder notified after every mutation attempt.
func WithMetrics(m MetricsRecorder) LedgerOption {
	return func(uc *LedgerUseCase) { uc.metrics = m }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(uc *LedgerUseCase) { uc.now = now }
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	locker AccountLocker,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	opts ...LedgerOption,
) *LedgerUseCase {
	uc := &LedgerUseCase{
		txManager:       txManager,
		locker:          locker,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		idGen:           idGen,
		logger:          zerolog.Nop(),
		now:             func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// DepositInput represents input for a deposit.
type DepositInput struct {
	AccountID string
	Amount    decimal.Decimal
}

// WithdrawInput represents input for a withdrawal.
type WithdrawInput struct {
	AccountID string
	Amount    decimal.Decimal
}

// TransferInput represents input for a transfer between two accounts.
// Type is one of TRANSFER, TRANSFER_OUT or TRANSFER_IN; all of them move money from
// FromAccountID to ToAccountID.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Type          string
}

// TransferResult holds the two records written by a transfer.
type TransferResult struct {
	CorrelationID string
	Outgoing      *domain.TransactionRecord
	Incoming      *domain.TransactionRecord
}

// Deposit credits an account and appends a DEPOSIT record.
func (uc *LedgerUseCase) Deposit(ctx context.Context, input DepositInput) (record *domain.TransactionRecord, err error) {
	start := time.Now()
	defer func() { uc.finish(OperationDeposit, input.Amount, start, err) }()

	if input.AccountID == "" {
		return nil, domain.ErrMissingAccountID
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	err = uc.withLockedAccounts(ctx, []string{input.AccountID}, func(tx Transaction, accounts map[string]*domain.Account, now time.Time) error {
		account := accounts[input.AccountID]
		newBalance := account.ApplyCredit(input.Amount)

		if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, now); err != nil {
			return err
		}

		record = uc.newRecord(account.ID, domain.OperationDeposit, input.Amount, domain.SystemOperator, "", now)
		if err := uc.transactionRepo.Append(ctx, tx, record); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, uc.newEvent(account.ID, domain.AggregateTypeAccount,
			domain.EventTypeDepositCompleted, domain.BalanceChangedEvent{
				TransactionID: record.ID,
				AccountID:     account.ID,
				Amount:        input.Amount.StringFixed(domain.MoneyScale),
				Balance:       newBalance.StringFixed(domain.MoneyScale),
			}.ToPayload(), now))
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Withdraw debits an account and appends a WITHDRAW record. It fails with
// domain.ErrInsufficientFunds, leaving the account untouched, when the balance is too low.
func (uc *LedgerUseCase) Withdraw(ctx context.Context, input WithdrawInput) (record *domain.TransactionRecord, err error) {
	start := time.Now()
	defer func() { uc.finish(OperationWithdraw, input.Amount, start, err) }()

	if input.AccountID == "" {
		return nil, domain.ErrMissingAccountID
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	err = uc.withLockedAccounts(ctx, []string{input.AccountID}, func(tx Transaction, accounts map[string]*domain.Account, now time.Time) error {
		account := accounts[input.AccountID]
		if err := account.ValidateDebit(input.Amount); err != nil {
			return err
		}

		newBalance := account.ApplyDebit(input.Amount)
		if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, now); err != nil {
			return err
		}

		record = uc.newRecord(account.ID, domain.OperationWithdraw, input.Amount, domain.SystemOperator, "", now)
		if err := uc.transactionRepo.Append(ctx, tx, record); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, uc.newEvent(account.ID, domain.AggregateTypeAccount,
			domain.EventTypeWithdrawCompleted, domain.BalanceChangedEvent{
				TransactionID: record.ID,
				AccountID:     account.ID,
				Amount:        input.Amount.StringFixed(domain.MoneyScale),
				Balance:       newBalance.StringFixed(domain.MoneyScale),
			}.ToPayload(), now))
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Transfer moves money between two accounts. It writes a TRANSFER_OUT record on the source
// account and a TRANSFER_IN record on the destination, both sharing one correlation id.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) (result *TransferResult, err error) {
	start := time.Now()
	defer func() { uc.finish(OperationTransfer, input.Amount, start, err) }()

	if err := validateTransfer(input); err != nil {
		return nil, err
	}

	ids := []string{input.FromAccountID, input.ToAccountID}
	err = uc.withLockedAccounts(ctx, ids, func(tx Transaction, accounts map[string]*domain.Account, now time.Time) error {
		from := accounts[input.FromAccountID]
		to := accounts[input.ToAccountID]

		if err := from.ValidateDebit(input.Amount); err != nil {
			return err
		}

		if err := uc.accountRepo.UpdateBalance(ctx, tx, from.ID, from.ApplyDebit(input.Amount), now); err != nil {
			return err
		}
		if err := uc.accountRepo.UpdateBalance(ctx, tx, to.ID, to.ApplyCredit(input.Amount), now); err != nil {
			return err
		}

		correlationID := uc.idGen.Generate()
		out := uc.newRecord(from.ID, domain.OperationTransferOut, input.Amount, to.Name, correlationID, now)
		in := uc.newRecord(to.ID, domain.OperationTransferIn, input.Amount, from.Name, correlationID, now)

		if err := uc.transactionRepo.Append(ctx, tx, out); err != nil {
			return err
		}
		if err := uc.transactionRepo.Append(ctx, tx, in); err != nil {
			return err
		}

		err := uc.outboxRepo.Create(ctx, tx, uc.newEvent(correlationID, domain.AggregateTypeTransfer,
			domain.EventTypeTransferCompleted, domain.TransferCompletedEvent{
				CorrelationID: correlationID,
				FromAccountID: from.ID,
				ToAccountID:   to.ID,
				Amount:        input.Amount.StringFixed(domain.MoneyScale),
				EventAt:       now.Format(time.RFC3339Nano),
			}.ToPayload(), now))
		if err != nil {
			return err
		}

		result = &TransferResult{CorrelationID: correlationID, Outgoing: out, Incoming: in}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func validateTransfer(input TransferInput) error {
	if input.FromAccountID == "" || input.ToAccountID == "" {
		return domain.ErrMissingAccountID
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	op, err := domain.ParseOperationType(input.Type)
	if err != nil {
		return err
	}
	if !op.IsTransfer() {
		return fmt.Errorf("%w: %s is not a transfer type", domain.ErrInvalidOperation, op)
	}

	if input.FromAccountID == input.ToAccountID {
		return domain.ErrSameAccount
	}

	return nil
}

// withLockedAccounts runs fn inside a storage transaction while holding the per-account
// locks for ids. Accounts are loaded in ascending id order. Errors from fn that are not
// business outcomes are reported as internal.
func (uc *LedgerUseCase) withLockedAccounts(
	ctx context.Context,
	ids []string,
	fn func(tx Transaction, accounts map[string]*domain.Account, now time.Time) error,
) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	unlock, err := uc.locker.Lock(ctx, sorted...)
	if err != nil {
		return passBusiness(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return passBusiness(err)
	}
	defer tx.Rollback(ctx)

	loaded, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, sorted)
	if err != nil {
		return passBusiness(err)
	}

	accounts := make(map[string]*domain.Account, len(loaded))
	for _, a := range loaded {
		accounts[a.ID] = a
	}
	for _, id := range sorted {
		if accounts[id] == nil {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}

	if err := fn(tx, accounts, uc.now()); err != nil {
		return passBusiness(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return passBusiness(err)
	}

	return nil
}

func (uc *LedgerUseCase) newRecord(
	accountID string,
	op domain.OperationType,
	amount decimal.Decimal,
	operator, correlationID string,
	now time.Time,
) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:            uc.idGen.Generate(),
		AccountID:     accountID,
		Operation:     op,
		Amount:        amount,
		OperatorName:  operator,
		CorrelationID: correlationID,
		CreatedAt:     now,
	}
}

func (uc *LedgerUseCase) newEvent(aggregateID, aggregateType, eventType string, payload map[string]any, now time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}

func (uc *LedgerUseCase) finish(operation string, amount decimal.Decimal, start time.Time, err error) {
	elapsed := time.Since(start)

	if uc.metrics != nil {
		uc.metrics.ObserveOperation(operation, amount, err, elapsed)
	}

	switch {
	case err == nil:
		uc.logger.Debug().
			Str("operation", operation).
			Str("amount", amount.String()).
			Dur("duration", elapsed).
			Msg("ledger operation committed")
	case errors.Is(err, domain.ErrInternal):
		uc.logger.Error().
			Err(err).
			Str("operation", operation).
			Str("amount", amount.String()).
			Msg("ledger operation aborted")
	}
}
