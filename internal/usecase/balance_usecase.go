package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// BalanceUseCase rebuilds balances by replaying the transaction log, independently
// of the stored account balance.
type BalanceUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	loc             *time.Location
}

// NewBalanceUseCase creates a new BalanceUseCase. Calendar-day bounds are evaluated in loc.
func NewBalanceUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository, loc *time.Location) *BalanceUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &BalanceUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		loc:             loc,
	}
}

// ComputeBalanceInput selects the transactions to replay. Start and End are dates; either may
// be nil, which leaves that side of the period open.
type ComputeBalanceInput struct {
	NamePattern string
	Start       *time.Time
	End         *time.Time
}

// BalanceSummary is a replayed total together with how much data produced it.
type BalanceSummary struct {
	Total            decimal.Decimal
	AccountCount     int
	TransactionCount int
}

// ComputeBalance sums the signed amounts of transactions owned by accounts whose name matches
// the pattern. It returns zero when nothing matches; use ComputeBalanceSummary to tell the two apart.
func (uc *BalanceUseCase) ComputeBalance(ctx context.Context, input ComputeBalanceInput) (decimal.Decimal, error) {
	filter, err := uc.filter(input)
	if err != nil {
		return decimal.Zero, err
	}

	records, err := uc.transactionRepo.List(ctx, filter)
	if err != nil {
		return decimal.Zero, domain.Internal(err)
	}

	return Replay(records), nil
}

// ComputeBalanceSummary is ComputeBalance plus the number of matching accounts and transactions.
func (uc *BalanceUseCase) ComputeBalanceSummary(ctx context.Context, input ComputeBalanceInput) (*BalanceSummary, error) {
	filter, err := uc.filter(input)
	if err != nil {
		return nil, err
	}

	accounts, err := uc.accountRepo.ListByName(ctx, filter.AccountNamePattern)
	if err != nil {
		return nil, domain.Internal(err)
	}

	records, err := uc.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err)
	}

	return &BalanceSummary{
		Total:            Replay(records),
		AccountCount:     len(accounts),
		TransactionCount: len(records),
	}, nil
}

// ComputeAccountBalance replays every transaction of one account.
func (uc *BalanceUseCase) ComputeAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if accountID == "" {
		return decimal.Zero, domain.ErrMissingAccountID
	}

	records, err := uc.transactionRepo.List(ctx, domain.TransactionFilter{AccountID: accountID})
	if err != nil {
		return decimal.Zero, domain.Internal(err)
	}

	return Replay(records), nil
}

func (uc *BalanceUseCase) filter(input ComputeBalanceInput) (domain.TransactionFilter, error) {
	pattern, err := domain.ValidatePattern(input.NamePattern)
	if err != nil {
		return domain.TransactionFilter{}, err
	}

	filter := domain.TransactionFilter{AccountNamePattern: pattern}
	if input.Start == nil && input.End == nil {
		return filter, nil
	}

	var start, end time.Time
	if input.Start != nil {
		start = *input.Start
	}
	if input.End != nil {
		end = *input.End
	}

	period, err := domain.NewDatePeriod(start, end, uc.loc)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	filter.Period = &period

	return filter, nil
}

// Replay sums signed amounts and rounds the result half-up to cents.
func Replay(records []*domain.TransactionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.SignedAmount())
	}
	return domain.RoundHalfUp(total)
}
