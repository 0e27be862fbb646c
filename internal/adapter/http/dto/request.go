package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Accepted layouts for date query parameters.
const (
	DateLayoutISO    = "2006-01-02"
	DateLayoutLegacy = "02/01/2006"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name string `json:"name"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{Name: r.Name}
}

// AmountRequest is the body of deposit and withdraw calls.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ToDepositInput converts to use case input.
func (r *AmountRequest) ToDepositInput(accountID string) usecase.DepositInput {
	return usecase.DepositInput{AccountID: accountID, Amount: r.Amount}
}

// ToWithdrawInput converts to use case input.
func (r *AmountRequest) ToWithdrawInput(accountID string) usecase.WithdrawInput {
	return usecase.WithdrawInput{AccountID: accountID, Amount: r.Amount}
}

// CreateTransferRequest represents a request to move funds between two accounts.
type CreateTransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        r.Amount,
		Type:          r.Type,
	}
}

// ParseDate reads a calendar date in YYYY-MM-DD or dd/MM/yyyy form as midnight in loc.
// An empty value yields nil.
func ParseDate(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range []string{DateLayoutISO, DateLayoutLegacy} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD or dd/MM/yyyy", domain.ErrValidation, value)
}
