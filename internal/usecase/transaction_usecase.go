package usecase

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// TransactionUseCase answers read queries over the transaction log.
type TransactionUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	loc             *time.Location
}

// NewTransactionUseCase creates a new TransactionUseCase. Calendar-day bounds are evaluated in loc.
func NewTransactionUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository, loc *time.Location) *TransactionUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &TransactionUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		loc:             loc,
	}
}

// GetAll returns every recorded transaction.
func (uc *TransactionUseCase) GetAll(ctx context.Context) ([]*domain.TransactionRecord, error) {
	return uc.list(ctx, domain.TransactionFilter{})
}

// GetByAccount returns the transactions owned by an account.
func (uc *TransactionUseCase) GetByAccount(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error) {
	if accountID == "" {
		return nil, domain.ErrMissingAccountID
	}

	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, passBusiness(err)
	}

	return uc.list(ctx, domain.TransactionFilter{AccountID: accountID})
}

// GetByPeriod returns transactions between the start of start's day and the end of end's day.
func (uc *TransactionUseCase) GetByPeriod(ctx context.Context, start, end time.Time) ([]*domain.TransactionRecord, error) {
	period, err := domain.NewDatePeriod(start, end, uc.loc)
	if err != nil {
		return nil, err
	}

	return uc.list(ctx, domain.TransactionFilter{Period: &period})
}

// GetByOperator returns transactions whose operator name contains name, ignoring case.
func (uc *TransactionUseCase) GetByOperator(ctx context.Context, name string) ([]*domain.TransactionRecord, error) {
	pattern, err := domain.ValidatePattern(name)
	if err != nil {
		return nil, err
	}

	return uc.list(ctx, domain.TransactionFilter{OperatorPattern: pattern})
}

// GetByPeriodAndOperator combines GetByPeriod and GetByOperator.
func (uc *TransactionUseCase) GetByPeriodAndOperator(ctx context.Context, start, end time.Time, name string) ([]*domain.TransactionRecord, error) {
	period, err := domain.NewDatePeriod(start, end, uc.loc)
	if err != nil {
		return nil, err
	}

	pattern, err := domain.ValidatePattern(name)
	if err != nil {
		return nil, err
	}

	return uc.list(ctx, domain.TransactionFilter{Period: &period, OperatorPattern: pattern})
}

// GetPaged returns one zero-based page of the whole log.
func (uc *TransactionUseCase) GetPaged(ctx context.Context, page, size int) (domain.Page[*domain.TransactionRecord], error) {
	return uc.page(ctx, domain.TransactionFilter{}, page, size)
}

// ListTransactionsInput combines the optional filters of the transaction listing.
// Page and Size must be set together to get a paginated result.
type ListTransactionsInput struct {
	AccountID string
	Operator  string
	Start     *time.Time
	End       *time.Time
	Page      *int
	Size      *int
}

// ListTransactions applies every set filter. Without pagination the page holds all matches.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
	filter := domain.TransactionFilter{
		AccountID:       input.AccountID,
		OperatorPattern: input.Operator,
	}

	if input.Start != nil || input.End != nil {
		var start, end time.Time
		if input.Start != nil {
			start = *input.Start
		}
		if input.End != nil {
			end = *input.End
		}

		period, err := domain.NewDatePeriod(start, end, uc.loc)
		if err != nil {
			return domain.Page[*domain.TransactionRecord]{}, err
		}
		filter.Period = &period
	}

	if filter.AccountID != "" {
		if _, err := uc.accountRepo.GetByID(ctx, filter.AccountID); err != nil {
			return domain.Page[*domain.TransactionRecord]{}, passBusiness(err)
		}
	}

	if input.Page != nil || input.Size != nil {
		page, size := 0, domain.DefaultPageSize
		if input.Page != nil {
			page = *input.Page
		}
		if input.Size != nil {
			size = *input.Size
		}
		return uc.page(ctx, filter, page, size)
	}

	records, err := uc.list(ctx, filter)
	if err != nil {
		return domain.Page[*domain.TransactionRecord]{}, err
	}

	return domain.NewPage(records, 0, len(records), int64(len(records))), nil
}

// OperatorActivity is the time span over which an operator appears in the log.
type OperatorActivity struct {
	First time.Time
	Last  time.Time
}

// GetFirstAndLastDateForOperator returns the earliest and latest transaction timestamps for
// operators matching name. The bool is false when no transaction matches.
func (uc *TransactionUseCase) GetFirstAndLastDateForOperator(ctx context.Context, name string) (OperatorActivity, bool, error) {
	pattern, err := domain.ValidatePattern(name)
	if err != nil {
		return OperatorActivity{}, false, err
	}

	first, last, found, err := uc.transactionRepo.OperatorDateRange(ctx, pattern)
	if err != nil {
		return OperatorActivity{}, false, domain.Internal(err)
	}
	if !found {
		return OperatorActivity{}, false, nil
	}

	return OperatorActivity{First: first.In(uc.loc), Last: last.In(uc.loc)}, true, nil
}

func (uc *TransactionUseCase) list(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionRecord, error) {
	records, err := uc.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if records == nil {
		records = []*domain.TransactionRecord{}
	}
	return records, nil
}

func (uc *TransactionUseCase) page(ctx context.Context, filter domain.TransactionFilter, page, size int) (domain.Page[*domain.TransactionRecord], error) {
	if err := domain.ValidatePage(page, size); err != nil {
		return domain.Page[*domain.TransactionRecord]{}, err
	}

	records, total, err := uc.transactionRepo.ListPage(ctx, filter, page, size)
	if err != nil {
		return domain.Page[*domain.TransactionRecord]{}, domain.Internal(err)
	}

	return domain.NewPage(records, page, size, total), nil
}
