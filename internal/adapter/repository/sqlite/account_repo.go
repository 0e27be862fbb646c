package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const accountColumns = `id, name, balance, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create inserts a new account inside tx.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?)`,
		account.ID,
		account.Name,
		account.Balance.String(),
		toNanos(account.CreatedAt),
		toNanos(account.UpdatedAt),
	)
	return mapError(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// ListByName returns accounts whose name contains pattern, ignoring case.
func (r *AccountRepository) ListByName(ctx context.Context, pattern string) ([]*domain.Account, error) {
	return r.query(ctx, r.store.db,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE instr(lower(name), lower(?)) > 0
		 ORDER BY created_at, id`, pattern)
}

// GetByIDsForUpdate reads the accounts inside tx. The immediate transaction already
// holds the database write lock, so no row locking is needed.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		row := sqlTx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
		account, err := scanAccount(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, mapError(err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// UpdateBalance updates the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	sqlTx, err := sqlTxFrom(tx)
	if err != nil {
		return err
	}

	res, err := sqlTx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), toNanos(updatedAt), id)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return r.query(ctx, r.store.db,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *AccountRepository) query(ctx context.Context, db queryer, query string, args ...any) ([]*domain.Account, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*domain.Account, error) {
	var (
		a                    domain.Account
		balance              string
		createdAt, updatedAt int64
	)
	if err := s.Scan(&a.ID, &a.Name, &balance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	a.Balance = d
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return &a, nil
}
