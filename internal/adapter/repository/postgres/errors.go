package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/bankledger/internal/domain"
)

// PostgreSQL error codes that mean "another writer holds what you need".
const (
	pgErrLockNotAvailable     = "55P03"
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrCheckViolation       = "23514"
	pgErrForeignKeyViolation  = "23503"
)

// isRetryableError checks if a PostgreSQL error means the caller may simply try again.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrLockNotAvailable, pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}

// mapError translates driver errors into ledger error kinds. Anything it does not
// recognise is returned unchanged and becomes an internal error upstream.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryableError(err) {
		return fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, pgErr.Detail)
		case pgErrCheckViolation:
			// balance >= 0 is enforced twice; reaching the constraint means the engine check was bypassed.
			return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, pgErr.ConstraintName)
		}
	}
	return err
}
