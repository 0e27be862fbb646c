package postgres

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository on the transactions table.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Append inserts record inside tx.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	err = r.queries.WithTx(pgxTx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:            record.ID,
		AccountID:     record.AccountID,
		Operation:     string(record.Operation),
		Amount:        decimalToNumeric(record.Amount),
		OperatorName:  record.OperatorName,
		CorrelationID: record.CorrelationID,
		CreatedAt:     timeToPgTimestamptz(record.CreatedAt),
	})

	return mapError(err)
}

// List returns every record matching filter in log order.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionRecord, error) {
	p := filterParams(filter)
	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		AccountID:   p.AccountID,
		AccountName: p.AccountName,
		Operator:    p.Operator,
		StartAt:     p.StartAt,
		EndAt:       p.EndAt,
	})
	if err != nil {
		return nil, err
	}

	return rowsToRecords(rows), nil
}

// ListPage returns one zero-based page of matching records and the total match count.
func (r *TransactionRepository) ListPage(ctx context.Context, filter domain.TransactionFilter, page, size int) ([]*domain.TransactionRecord, int64, error) {
	if err := domain.ValidatePage(page, size); err != nil {
		return nil, 0, err
	}

	p := filterParams(filter)

	total, err := r.queries.CountTransactions(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.queries.ListTransactionsPage(ctx, generated.ListTransactionsPageParams{
		AccountID:   p.AccountID,
		AccountName: p.AccountName,
		Operator:    p.Operator,
		StartAt:     p.StartAt,
		EndAt:       p.EndAt,
		Limit:       int32(size),
		Offset:      int32(page * size),
	})
	if err != nil {
		return nil, 0, err
	}

	return rowsToRecords(rows), total, nil
}

// OperatorDateRange returns the earliest and latest timestamps for operators matching pattern.
func (r *TransactionRepository) OperatorDateRange(ctx context.Context, pattern string) (time.Time, time.Time, bool, error) {
	row, err := r.queries.GetOperatorDateRange(ctx, pattern)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !row.FirstAt.Valid || !row.LastAt.Valid {
		return time.Time{}, time.Time{}, false, nil
	}

	return row.FirstAt.Time, row.LastAt.Time, true, nil
}

func filterParams(f domain.TransactionFilter) generated.CountTransactionsParams {
	p := generated.CountTransactionsParams{
		AccountID:   optionalText(f.AccountID),
		AccountName: optionalText(f.AccountNamePattern),
		Operator:    optionalText(f.OperatorPattern),
	}
	if f.Period != nil {
		p.StartAt = optionalTime(f.Period.Start)
		p.EndAt = optionalTime(f.Period.End)
	}
	return p
}

func rowsToRecords(rows []generated.Transaction) []*domain.TransactionRecord {
	records := make([]*domain.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &domain.TransactionRecord{
			ID:            row.ID,
			AccountID:     row.AccountID,
			Operation:     domain.OperationType(row.Operation),
			Amount:        numericToDecimal(row.Amount),
			OperatorName:  row.OperatorName,
			CorrelationID: row.CorrelationID,
			CreatedAt:     row.CreatedAt.Time,
		})
	}
	return records
}
