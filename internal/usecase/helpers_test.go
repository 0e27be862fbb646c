package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	"github.com/iho/bankledger/internal/infrastructure/locker"
	"github.com/iho/bankledger/internal/usecase"
)

// ledgerEnv wires every use case on top of the memory store.
type ledgerEnv struct {
	store    *memory.Store
	accounts *usecase.AccountUseCase
	ledger   *usecase.LedgerUseCase
	queries  *usecase.TransactionUseCase
	balances *usecase.BalanceUseCase
	recon    *usecase.ReconciliationUseCase
	outbox   *memory.OutboxRepository
}

func newLedgerEnv(t *testing.T, opts ...usecase.LedgerOption) *ledgerEnv {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	transactionRepo := memory.NewTransactionRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	ids := idgen.NewULIDGenerator()

	balances := usecase.NewBalanceUseCase(accountRepo, transactionRepo, time.UTC)

	return &ledgerEnv{
		store:    store,
		accounts: usecase.NewAccountUseCase(txm, accountRepo, outboxRepo, ids),
		ledger:   usecase.NewLedgerUseCase(txm, locker.New(5*time.Second), accountRepo, transactionRepo, outboxRepo, ids, opts...),
		queries:  usecase.NewTransactionUseCase(accountRepo, transactionRepo, time.UTC),
		balances: balances,
		recon:    usecase.NewReconciliationUseCase(accountRepo, balances),
		outbox:   outboxRepo,
	}
}

func (e *ledgerEnv) mustCreate(t *testing.T, name string) *domain.Account {
	t.Helper()
	acc, err := e.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{Name: name})
	if err != nil {
		t.Fatalf("create account %q: %v", name, err)
	}
	return acc
}

func (e *ledgerEnv) mustDeposit(t *testing.T, id, amount string) {
	t.Helper()
	_, err := e.ledger.Deposit(context.Background(), usecase.DepositInput{AccountID: id, Amount: dec(amount)})
	if err != nil {
		t.Fatalf("deposit %s into %s: %v", amount, id, err)
	}
}

func (e *ledgerEnv) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := e.accounts.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return acc.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

// decimalMatcher compares decimals by value, ignoring representation.
type decimalMatcher struct {
	want decimal.Decimal
}

func decEq(s string) decimalMatcher {
	return decimalMatcher{want: dec(s)}
}

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "is decimal " + m.want.String()
}
