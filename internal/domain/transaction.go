package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SystemOperator is the operator name recorded on deposits and withdrawals.
const SystemOperator = "System"

// OperationType tags a transaction record.
type OperationType string

const (
	OperationDeposit     OperationType = "DEPOSIT"
	OperationWithdraw    OperationType = "WITHDRAW"
	OperationTransferIn  OperationType = "TRANSFER_IN"
	OperationTransferOut OperationType = "TRANSFER_OUT"

	// OperationTransfer is the legacy combined transfer kind. Old data stored a single
	// record on the source account, so it is counted as outgoing. The engine never writes it.
	OperationTransfer OperationType = "TRANSFER"
)

// ParseOperationType parses a case-insensitive operation name.
func ParseOperationType(s string) (OperationType, error) {
	op := OperationType(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case OperationDeposit, OperationWithdraw, OperationTransferIn, OperationTransferOut, OperationTransfer:
		return op, nil
	case "":
		return "", ErrMissingOperation
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperation, s)
}

// IsTransfer reports whether op describes a transfer leg or the legacy combined transfer.
func (op OperationType) IsTransfer() bool {
	return op == OperationTransfer || op == OperationTransferIn || op == OperationTransferOut
}

// Sign returns +1 for credits, -1 for debits and 0 for unknown kinds.
func (op OperationType) Sign() int {
	switch op {
	case OperationDeposit, OperationTransferIn:
		return 1
	case OperationWithdraw, OperationTransferOut, OperationTransfer:
		return -1
	}
	return 0
}

// TransactionRecord is an immutable entry describing one balance-affecting event.
// Amount is always a positive magnitude; the direction comes from Operation.
type TransactionRecord struct {
	ID            string
	AccountID     string
	Operation     OperationType
	Amount        decimal.Decimal
	OperatorName  string
	CorrelationID string
	CreatedAt     time.Time
}

// SignedAmount returns Amount with the sign implied by Operation.
func (t *TransactionRecord) SignedAmount() decimal.Decimal {
	switch t.Operation.Sign() {
	case 1:
		return t.Amount
	case -1:
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// TransactionFilter narrows transaction log reads. Zero values mean "no constraint".
type TransactionFilter struct {
	AccountID          string
	AccountNamePattern string
	OperatorPattern    string
	Period             *Period
}

// Matches reports whether the record satisfies every set constraint except AccountNamePattern,
// which needs the owning account and is resolved by the store.
func (f TransactionFilter) Matches(t *TransactionRecord) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.OperatorPattern != "" && !ContainsFold(t.OperatorName, f.OperatorPattern) {
		return false
	}
	if f.Period != nil && !f.Period.Contains(t.CreatedAt) {
		return false
	}
	return true
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int64
	TotalPages int
}

// NewPage builds a page and computes the page count.
func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}
