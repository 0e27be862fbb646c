package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestLedgerUseCase_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	env := newLedgerEnv(t)

	alice := env.mustCreate(t, "Alice")
	bob := env.mustCreate(t, "Bob")

	dep, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: alice.ID, Amount: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, domain.OperationDeposit, dep.Operation)
	assert.Equal(t, domain.SystemOperator, dep.OperatorName)
	assert.True(t, env.balance(t, alice.ID).Equal(dec("100")))

	res, err := env.ledger.Transfer(ctx, usecase.TransferInput{
		FromAccountID: alice.ID,
		ToAccountID:   bob.ID,
		Amount:        dec("40"),
		Type:          "TRANSFER",
	})
	require.NoError(t, err)
	assert.True(t, env.balance(t, alice.ID).Equal(dec("60")))
	assert.True(t, env.balance(t, bob.ID).Equal(dec("40")))

	assert.Equal(t, domain.OperationTransferOut, res.Outgoing.Operation)
	assert.Equal(t, alice.ID, res.Outgoing.AccountID)
	assert.Equal(t, "Bob", res.Outgoing.OperatorName)
	assert.Equal(t, domain.OperationTransferIn, res.Incoming.Operation)
	assert.Equal(t, bob.ID, res.Incoming.AccountID)
	assert.Equal(t, "Alice", res.Incoming.OperatorName)
	assert.NotEmpty(t, res.CorrelationID)
	assert.Equal(t, res.CorrelationID, res.Outgoing.CorrelationID)
	assert.Equal(t, res.CorrelationID, res.Incoming.CorrelationID)

	_, err = env.ledger.Withdraw(ctx, usecase.WithdrawInput{AccountID: bob.ID, Amount: dec("1000")})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, env.balance(t, bob.ID).Equal(dec("40")))

	aliceRecords, err := env.queries.GetByAccount(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceRecords, 2)

	bobRecords, err := env.queries.GetByAccount(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobRecords, 1)
	assert.Equal(t, domain.OperationTransferIn, bobRecords[0].Operation)
	assert.True(t, bobRecords[0].Amount.Equal(dec("40")))
}

func TestLedgerUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	env := newLedgerEnv(t)
	alice := env.mustCreate(t, "Alice")
	bob := env.mustCreate(t, "Bob")
	env.mustDeposit(t, alice.ID, "50")

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "deposit zero",
			run: func() error {
				_, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: alice.ID, Amount: decimal.Zero})
				return err
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "deposit negative",
			run: func() error {
				_, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: alice.ID, Amount: dec("-1")})
				return err
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "deposit sub-cent",
			run: func() error {
				_, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: alice.ID, Amount: dec("0.001")})
				return err
			},
			wantErr: domain.ErrAmountPrecision,
		},
		{
			name: "deposit missing account id",
			run: func() error {
				_, err := env.ledger.Deposit(ctx, usecase.DepositInput{Amount: dec("1")})
				return err
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "deposit unknown account",
			run: func() error {
				_, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: "ghost", Amount: dec("1")})
				return err
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "withdraw zero",
			run: func() error {
				_, err := env.ledger.Withdraw(ctx, usecase.WithdrawInput{AccountID: alice.ID, Amount: decimal.Zero})
				return err
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "withdraw unknown account",
			run: func() error {
				_, err := env.ledger.Withdraw(ctx, usecase.WithdrawInput{AccountID: "ghost", Amount: dec("1")})
				return err
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "transfer missing type",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: bob.ID, Amount: dec("1")})
				return err
			},
			wantErr: domain.ErrMissingOperation,
		},
		{
			name: "transfer with non-transfer type",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: bob.ID, Amount: dec("1"), Type: "DEPOSIT"})
				return err
			},
			wantErr: domain.ErrInvalidOperation,
		},
		{
			name: "transfer missing destination",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, Amount: dec("1"), Type: "TRANSFER"})
				return err
			},
			wantErr: domain.ErrMissingAccountID,
		},
		{
			name: "transfer to same account",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: alice.ID, Amount: dec("1"), Type: "TRANSFER"})
				return err
			},
			wantErr: domain.ErrSameAccount,
		},
		{
			name: "transfer to unknown account",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: "ghost", Amount: dec("1"), Type: "TRANSFER_OUT"})
				return err
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "transfer more than balance",
			run: func() error {
				_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: alice.ID, ToAccountID: bob.ID, Amount: dec("50.01"), Type: "transfer_in"})
				return err
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.ErrorIs(t, err, tt.wantErr)

			assert.True(t, env.balance(t, alice.ID).Equal(dec("50")), "alice balance changed")
			assert.True(t, env.balance(t, bob.ID).IsZero(), "bob balance changed")

			all, err := env.queries.GetAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1, "unexpected records appended")
		})
	}
}

func TestLedgerUseCase_DepositWithdrawRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newLedgerEnv(t)
	acc := env.mustCreate(t, "Carol")
	env.mustDeposit(t, acc.ID, "10.50")

	for _, v := range []string{"0.01", "3.33", "999.99"} {
		before := env.balance(t, acc.ID)

		_, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: acc.ID, Amount: dec(v)})
		require.NoError(t, err)
		_, err = env.ledger.Withdraw(ctx, usecase.WithdrawInput{AccountID: acc.ID, Amount: dec(v)})
		require.NoError(t, err)

		assert.True(t, env.balance(t, acc.ID).Equal(before), "round trip of %s changed balance", v)
	}
}

func TestLedgerUseCase_WithdrawExactBalance(t *testing.T) {
	env := newLedgerEnv(t)
	acc := env.mustCreate(t, "Dave")
	env.mustDeposit(t, acc.ID, "25.00")

	rec, err := env.ledger.Withdraw(context.Background(), usecase.WithdrawInput{AccountID: acc.ID, Amount: dec("25")})
	require.NoError(t, err)
	assert.Equal(t, domain.OperationWithdraw, rec.Operation)
	assert.True(t, env.balance(t, acc.ID).IsZero())
}

func TestLedgerUseCase_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	env := newLedgerEnv(t)
	acc := env.mustCreate(t, "Eve")
	env.mustDeposit(t, acc.ID, "100")

	const workers = 40

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Withdraw(ctx, usecase.WithdrawInput{AccountID: acc.ID, Amount: dec("10")})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, rejected)
	assert.True(t, env.balance(t, acc.ID).IsZero())

	replayed, err := env.balances.ComputeAccountBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, replayed.IsZero(), "replayed balance %s", replayed)
}

func TestLedgerUseCase_ConcurrentOppositeTransfersConserveMoney(t *testing.T) {
	ctx := context.Background()
	env := newLedgerEnv(t)
	a := env.mustCreate(t, "Frank")
	b := env.mustCreate(t, "Grace")
	env.mustDeposit(t, a.ID, "500")
	env.mustDeposit(t, b.ID, "500")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("7"), Type: "TRANSFER"})
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := env.ledger.Transfer(ctx, usecase.TransferInput{FromAccountID: b.ID, ToAccountID: a.ID, Amount: dec("3"), Type: "TRANSFER"})
			if err != nil && !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	total := env.balance(t, a.ID).Add(env.balance(t, b.ID))
	assert.True(t, total.Equal(dec("1000")), "total %s", total)
	assert.False(t, env.balance(t, a.ID).IsNegative())
	assert.False(t, env.balance(t, b.ID).IsNegative())

	report, err := env.recon.GenerateReconciliationReport(ctx)
	require.NoError(t, err)
	assert.True(t, report.LedgerConsistent)
}

func TestLedgerUseCase_BusyLockFailsWithoutSideEffects(t *testing.T) {
	ctrl := gomock.NewController(t)

	lock := mocks.NewMockAccountLocker(ctrl)
	txm := mocks.NewMockTransactionManager(ctrl)
	metrics := mocks.NewMockMetricsRecorder(ctrl)

	busy := errors.Join(domain.ErrBusy, errors.New("timeout"))
	lock.EXPECT().Lock(gomock.Any(), "acc-1", "acc-2").Return(nil, busy)
	metrics.EXPECT().ObserveOperation(usecase.OperationTransfer, gomock.Any(), busy, gomock.Any())

	uc := usecase.NewLedgerUseCase(txm, lock,
		mocks.NewMockAccountRepository(ctrl),
		mocks.NewMockTransactionRepository(ctrl),
		mocks.NewMockOutboxRepository(ctrl),
		mocks.NewMockIDGenerator(ctrl),
		usecase.WithMetrics(metrics),
	)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		FromAccountID: "acc-2",
		ToAccountID:   "acc-1",
		Amount:        dec("5"),
		Type:          "TRANSFER",
	})
	require.ErrorIs(t, err, domain.ErrBusy)
}

func TestLedgerUseCase_PersistenceFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)

	lock := mocks.NewMockAccountLocker(ctrl)
	txm := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	transactionRepo := mocks.NewMockTransactionRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	unlocked := false
	lock.EXPECT().Lock(gomock.Any(), "a", "b").Return(func() { unlocked = true }, nil)
	txm.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accountRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []string{"a", "b"}).Return([]*domain.Account{
		{ID: "a", Name: "Alice", Balance: dec("100")},
		{ID: "b", Name: "Bob", Balance: dec("0")},
	}, nil)
	accountRepo.EXPECT().UpdateBalance(gomock.Any(), tx, "a", decEq("60"), gomock.Any()).Return(nil)
	accountRepo.EXPECT().UpdateBalance(gomock.Any(), tx, "b", decEq("40"), gomock.Any()).Return(nil)
	ids.EXPECT().Generate().Return("id").AnyTimes()
	transactionRepo.EXPECT().Append(gomock.Any(), tx, gomock.Any()).Return(nil)
	transactionRepo.EXPECT().Append(gomock.Any(), tx, gomock.Any()).Return(errors.New("connection reset"))
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewLedgerUseCase(txm, lock, accountRepo, transactionRepo, outboxRepo, ids)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		FromAccountID: "a",
		ToAccountID:   "b",
		Amount:        dec("40"),
		Type:          "TRANSFER",
	})
	require.ErrorIs(t, err, domain.ErrInternal)
	assert.True(t, unlocked, "locks must be released")
}

func TestLedgerUseCase_CommitFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)

	lock := mocks.NewMockAccountLocker(ctrl)
	txm := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	transactionRepo := mocks.NewMockTransactionRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	lock.EXPECT().Lock(gomock.Any(), "a").Return(func() {}, nil)
	txm.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accountRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []string{"a"}).Return([]*domain.Account{{ID: "a", Balance: dec("1")}}, nil)
	accountRepo.EXPECT().UpdateBalance(gomock.Any(), tx, "a", decEq("3"), gomock.Any()).Return(nil)
	ids.EXPECT().Generate().Return("id").AnyTimes()
	transactionRepo.EXPECT().Append(gomock.Any(), tx, gomock.Any()).Return(nil)
	outboxRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	tx.EXPECT().Commit(gomock.Any()).Return(errors.New("serialization failure"))
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewLedgerUseCase(txm, lock, accountRepo, transactionRepo, outboxRepo, ids)

	_, err := uc.Deposit(context.Background(), usecase.DepositInput{AccountID: "a", Amount: dec("2")})
	require.ErrorIs(t, err, domain.ErrInternal)
}

func TestLedgerUseCase_RecordsUseClockAndEmitEvents(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	env := newLedgerEnv(t, usecase.WithClock(steppingClock(start, time.Minute)))

	acc := env.mustCreate(t, "Heidi")
	rec, err := env.ledger.Deposit(ctx, usecase.DepositInput{AccountID: acc.ID, Amount: dec("1")})
	require.NoError(t, err)
	assert.True(t, rec.CreatedAt.Equal(start))

	events, err := env.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeDepositCompleted, events[1].EventType)
	assert.Equal(t, "1.00", events[1].Payload["amount"])
}
