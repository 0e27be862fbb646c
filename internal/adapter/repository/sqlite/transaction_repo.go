package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const filteredTransactions = `
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE (@account_id IS NULL OR t.account_id = @account_id)
  AND (@account_name IS NULL OR instr(lower(a.name), lower(@account_name)) > 0)
  AND (@operator IS NULL OR instr(lower(t.operator_name), lower(@operator)) > 0)
  AND (@start_at IS NULL OR t.created_at >= @start_at)
  AND (@end_at IS NULL OR t.created_at <= @end_at)`

const transactionColumns = `t.id, t.account_id, t.operation, t.amount, t.operator_name, t.correlation_id, t.created_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Append inserts record inside tx.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, operation, amount, operator_name, correlation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.AccountID,
		string(record.Operation),
		record.Amount.String(),
		record.OperatorName,
		record.CorrelationID,
		toNanos(record.CreatedAt),
	)
	return mapError(err)
}

// List returns every record matching filter in log order.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionRecord, error) {
	return r.query(ctx,
		`SELECT `+transactionColumns+filteredTransactions+` ORDER BY t.created_at, t.id`,
		filterArgs(filter)...)
}

// ListPage returns one zero-based page of matching records and the total match count.
func (r *TransactionRepository) ListPage(ctx context.Context, filter domain.TransactionFilter, page, size int) ([]*domain.TransactionRecord, int64, error) {
	if err := domain.ValidatePage(page, size); err != nil {
		return nil, 0, err
	}

	args := filterArgs(filter)

	var total int64
	if err := r.store.db.QueryRowContext(ctx, `SELECT count(*)`+filteredTransactions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	records, err := r.query(ctx,
		`SELECT `+transactionColumns+filteredTransactions+` ORDER BY t.created_at, t.id LIMIT @limit OFFSET @offset`,
		append(args, sql.Named("limit", size), sql.Named("offset", page*size))...)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// OperatorDateRange returns the earliest and latest timestamps for operators matching pattern.
func (r *TransactionRepository) OperatorDateRange(ctx context.Context, pattern string) (time.Time, time.Time, bool, error) {
	var first, last sql.NullInt64
	err := r.store.db.QueryRowContext(ctx,
		`SELECT min(created_at), max(created_at) FROM transactions
		 WHERE instr(lower(operator_name), lower(?)) > 0`, pattern).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !first.Valid || !last.Valid {
		return time.Time{}, time.Time{}, false, nil
	}

	return fromNanos(first.Int64), fromNanos(last.Int64), true, nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.TransactionRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.TransactionRecord{}
	for rows.Next() {
		var (
			rec       domain.TransactionRecord
			operation string
			amount    string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.AccountID, &operation, &amount, &rec.OperatorName, &rec.CorrelationID, &createdAt); err != nil {
			return nil, err
		}

		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		rec.Operation = domain.OperationType(operation)
		rec.Amount = d
		rec.CreatedAt = fromNanos(createdAt)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func filterArgs(f domain.TransactionFilter) []any {
	var start, end sql.NullInt64
	if f.Period != nil {
		start = nullableNanos(f.Period.Start)
		end = nullableNanos(f.Period.End)
	}

	return []any{
		sql.Named("account_id", nullableText(f.AccountID)),
		sql.Named("account_name", nullableText(f.AccountNamePattern)),
		sql.Named("operator", nullableText(f.OperatorPattern)),
		sql.Named("start_at", start),
		sql.Named("end_at", end),
	}
}
