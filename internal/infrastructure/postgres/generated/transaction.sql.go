// source: transaction.sql

package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countTransactions = `-- name: CountTransactions :one
SELECT count(*) FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE ($1::text IS NULL OR t.account_id = $1::text)
  AND ($2::text IS NULL OR strpos(lower(a.name), lower($2::text)) > 0)
  AND ($3::text IS NULL OR strpos(lower(t.operator_name), lower($3::text)) > 0)
  AND ($4::timestamptz IS NULL OR t.created_at >= $4::timestamptz)
  AND ($5::timestamptz IS NULL OR t.created_at <= $5::timestamptz)
`

type CountTransactionsParams struct {
	AccountID   pgtype.Text        `json:"account_id"`
	AccountName pgtype.Text        `json:"account_name"`
	Operator    pgtype.Text        `json:"operator"`
	StartAt     pgtype.Timestamptz `json:"start_at"`
	EndAt       pgtype.Timestamptz `json:"end_at"`
}

func (q *Queries) CountTransactions(ctx context.Context, arg CountTransactionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countTransactions,
		arg.AccountID,
		arg.AccountName,
		arg.Operator,
		arg.StartAt,
		arg.EndAt,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, account_id, operation, amount, operator_name, correlation_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateTransactionParams struct {
	ID            string             `json:"id"`
	AccountID     string             `json:"account_id"`
	Operation     string             `json:"operation"`
	Amount        pgtype.Numeric     `json:"amount"`
	OperatorName  string             `json:"operator_name"`
	CorrelationID string             `json:"correlation_id"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.AccountID,
		arg.Operation,
		arg.Amount,
		arg.OperatorName,
		arg.CorrelationID,
		arg.CreatedAt,
	)
	return err
}

const getOperatorDateRange = `-- name: GetOperatorDateRange :one
SELECT min(created_at)::timestamptz AS first_at, max(created_at)::timestamptz AS last_at
FROM transactions
WHERE strpos(lower(operator_name), lower($1::text)) > 0
`

type GetOperatorDateRangeRow struct {
	FirstAt pgtype.Timestamptz `json:"first_at"`
	LastAt  pgtype.Timestamptz `json:"last_at"`
}

func (q *Queries) GetOperatorDateRange(ctx context.Context, pattern string) (GetOperatorDateRangeRow, error) {
	row := q.db.QueryRow(ctx, getOperatorDateRange, pattern)
	var i GetOperatorDateRangeRow
	err := row.Scan(&i.FirstAt, &i.LastAt)
	return i, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT t.id, t.account_id, t.operation, t.amount, t.operator_name, t.correlation_id, t.created_at
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE ($1::text IS NULL OR t.account_id = $1::text)
  AND ($2::text IS NULL OR strpos(lower(a.name), lower($2::text)) > 0)
  AND ($3::text IS NULL OR strpos(lower(t.operator_name), lower($3::text)) > 0)
  AND ($4::timestamptz IS NULL OR t.created_at >= $4::timestamptz)
  AND ($5::timestamptz IS NULL OR t.created_at <= $5::timestamptz)
ORDER BY t.created_at, t.id
`

type ListTransactionsParams struct {
	AccountID   pgtype.Text        `json:"account_id"`
	AccountName pgtype.Text        `json:"account_name"`
	Operator    pgtype.Text        `json:"operator"`
	StartAt     pgtype.Timestamptz `json:"start_at"`
	EndAt       pgtype.Timestamptz `json:"end_at"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.AccountID,
		arg.AccountName,
		arg.Operator,
		arg.StartAt,
		arg.EndAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Operation,
			&i.Amount,
			&i.OperatorName,
			&i.CorrelationID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactionsPage = `-- name: ListTransactionsPage :many
SELECT t.id, t.account_id, t.operation, t.amount, t.operator_name, t.correlation_id, t.created_at
FROM transactions t
JOIN accounts a ON a.id = t.account_id
WHERE ($1::text IS NULL OR t.account_id = $1::text)
  AND ($2::text IS NULL OR strpos(lower(a.name), lower($2::text)) > 0)
  AND ($3::text IS NULL OR strpos(lower(t.operator_name), lower($3::text)) > 0)
  AND ($4::timestamptz IS NULL OR t.created_at >= $4::timestamptz)
  AND ($5::timestamptz IS NULL OR t.created_at <= $5::timestamptz)
ORDER BY t.created_at, t.id
LIMIT $6 OFFSET $7
`

type ListTransactionsPageParams struct {
	AccountID   pgtype.Text        `json:"account_id"`
	AccountName pgtype.Text        `json:"account_name"`
	Operator    pgtype.Text        `json:"operator"`
	StartAt     pgtype.Timestamptz `json:"start_at"`
	EndAt       pgtype.Timestamptz `json:"end_at"`
	Limit       int32              `json:"limit"`
	Offset      int32              `json:"offset"`
}

func (q *Queries) ListTransactionsPage(ctx context.Context, arg ListTransactionsPageParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsPage,
		arg.AccountID,
		arg.AccountName,
		arg.Operator,
		arg.StartAt,
		arg.EndAt,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Operation,
			&i.Amount,
			&i.OperatorName,
			&i.CorrelationID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
