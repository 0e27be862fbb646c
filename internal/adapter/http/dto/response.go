package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   money(a.Balance),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransactionResponse represents a transaction record in API responses.
type TransactionResponse struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Operation     string    `json:"operation"`
	Amount        string    `json:"amount"`
	OperatorName  string    `json:"operator_name"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionFromDomain converts a domain record to response.
func TransactionFromDomain(t *domain.TransactionRecord) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		AccountID:     t.AccountID,
		Operation:     string(t.Operation),
		Amount:        money(t.Amount),
		OperatorName:  t.OperatorName,
		CorrelationID: t.CorrelationID,
		CreatedAt:     t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain records to responses.
func TransactionsFromDomain(records []*domain.TransactionRecord) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, t := range records {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransferResponse holds both legs of a committed transfer.
type TransferResponse struct {
	CorrelationID string               `json:"correlation_id"`
	Outgoing      *TransactionResponse `json:"outgoing"`
	Incoming      *TransactionResponse `json:"incoming"`
}

// TransferFromResult converts a transfer result to response.
func TransferFromResult(r *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		CorrelationID: r.CorrelationID,
		Outgoing:      TransactionFromDomain(r.Outgoing),
		Incoming:      TransactionFromDomain(r.Incoming),
	}
}

// TransactionPageResponse is one page of the transaction log.
type TransactionPageResponse struct {
	Items      []*TransactionResponse `json:"items"`
	Page       int                    `json:"page"`
	Size       int                    `json:"size"`
	TotalItems int64                  `json:"total_items"`
	TotalPages int                    `json:"total_pages"`
}

// TransactionPageFromDomain converts a page of records to response.
func TransactionPageFromDomain(p domain.Page[*domain.TransactionRecord]) *TransactionPageResponse {
	return &TransactionPageResponse{
		Items:      TransactionsFromDomain(p.Items),
		Page:       p.Page,
		Size:       p.Size,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// OperatorActivityResponse is the first and last time an operator shows up in the log.
type OperatorActivityResponse struct {
	Operator string     `json:"operator"`
	Found    bool       `json:"found"`
	First    *time.Time `json:"first,omitempty"`
	Last     *time.Time `json:"last,omitempty"`
}

// OperatorActivityFromDomain converts an operator range to response.
func OperatorActivityFromDomain(operator string, activity usecase.OperatorActivity, found bool) *OperatorActivityResponse {
	resp := &OperatorActivityResponse{Operator: operator, Found: found}
	if found {
		first, last := activity.First, activity.Last
		resp.First = &first
		resp.Last = &last
	}
	return resp
}

// BalanceResponse is a balance replayed from the transaction log.
type BalanceResponse struct {
	Name             string `json:"name"`
	Start            string `json:"start,omitempty"`
	End              string `json:"end,omitempty"`
	Balance          string `json:"balance"`
	AccountCount     int    `json:"account_count"`
	TransactionCount int    `json:"transaction_count"`
}

// BalanceFromSummary converts a balance summary to response.
func BalanceFromSummary(name string, start, end *time.Time, s *usecase.BalanceSummary) *BalanceResponse {
	resp := &BalanceResponse{
		Name:             name,
		Balance:          money(s.Total),
		AccountCount:     s.AccountCount,
		TransactionCount: s.TransactionCount,
	}
	if start != nil {
		resp.Start = start.Format(DateLayoutISO)
	}
	if end != nil {
		resp.End = end.Format(DateLayoutISO)
	}
	return resp
}

// ReconciliationResponse is the outcome of checking one account.
type ReconciliationResponse struct {
	AccountID         string    `json:"account_id"`
	AccountName       string    `json:"account_name"`
	RecordedBalance   string    `json:"recorded_balance"`
	CalculatedBalance string    `json:"calculated_balance"`
	Difference        string    `json:"difference"`
	IsReconciled      bool      `json:"is_reconciled"`
	LastChecked       time.Time `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result to response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		AccountName:       r.AccountName,
		RecordedBalance:   money(r.RecordedBalance),
		CalculatedBalance: money(r.CalculatedBalance),
		Difference:        money(r.Difference),
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse summarizes a check of every account.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	LedgerConsistent   bool                      `json:"ledger_consistent"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromDomain converts a report to response.
func ReconciliationReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromResult(d)
	}
	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		LedgerConsistent:   r.LedgerConsistent,
		Discrepancies:      discrepancies,
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
