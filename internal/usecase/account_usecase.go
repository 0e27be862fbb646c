package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	Name string
}

// CreateAccount creates a new account with a zero balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	name, err := domain.NormalizeAccountName(input.Name)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, domain.Internal(err)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   account.ID,
		AggregateType: domain.AggregateTypeAccount,
		EventType:     domain.EventTypeAccountCreated,
		Payload:       domain.AccountCreatedEvent{AccountID: account.ID, Name: account.Name}.ToPayload(),
		CreatedAt:     now,
	}
	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, domain.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Internal(err)
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if id == "" {
		return nil, domain.ErrMissingAccountID
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, passBusiness(err)
	}

	return account, nil
}

// GetAccountByName returns the earliest created account whose name contains pattern, ignoring case.
func (uc *AccountUseCase) GetAccountByName(ctx context.Context, pattern string) (*domain.Account, error) {
	pattern, err := domain.ValidatePattern(pattern)
	if err != nil {
		return nil, err
	}

	accounts, err := uc.accountRepo.ListByName(ctx, pattern)
	if err != nil {
		return nil, domain.Internal(err)
	}

	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return accounts[0], nil
}

// Exists reports whether an account with id exists.
func (uc *AccountUseCase) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	_, err := uc.accountRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.Internal(err)
	}

	return true, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, domain.Internal(err)
	}

	return accounts, nil
}

// passBusiness keeps business errors as they are and marks everything else internal.
func passBusiness(err error) error {
	if domain.IsBusinessError(err) || errors.Is(err, domain.ErrBusy) {
		return err
	}
	return domain.Internal(err)
}
