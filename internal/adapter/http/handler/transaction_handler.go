package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// TransactionService defines the read side of the transaction log.
type TransactionService interface {
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error)
	GetFirstAndLastDateForOperator(ctx context.Context, name string) (usecase.OperatorActivity, bool, error)
}

// TransactionHandler serves transaction history queries.
type TransactionHandler struct {
	transactionUC TransactionService
	loc           *time.Location
}

// NewTransactionHandler creates a new TransactionHandler. Date parameters are read in loc.
func NewTransactionHandler(transactionUC TransactionService, loc *time.Location) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC, loc: loc}
}

// List returns transactions filtered by account_id, operator, start and end. Passing page
// or size switches to a paginated result.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("account_id"))
}

// ListByAccount is List scoped to the account in the path.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}
	h.list(w, r, id)
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, accountID string) {
	input, err := h.listInput(r)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	input.AccountID = accountID

	page, err := h.transactionUC.ListTransactions(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionPageFromDomain(page))
}

func (h *TransactionHandler) listInput(r *http.Request) (usecase.ListTransactionsInput, error) {
	q := r.URL.Query()

	start, err := dto.ParseDate(q.Get("start"), h.loc)
	if err != nil {
		return usecase.ListTransactionsInput{}, err
	}
	end, err := dto.ParseDate(q.Get("end"), h.loc)
	if err != nil {
		return usecase.ListTransactionsInput{}, err
	}
	page, err := parseOptionalInt(r, "page")
	if err != nil {
		return usecase.ListTransactionsInput{}, err
	}
	size, err := parseOptionalInt(r, "size")
	if err != nil {
		return usecase.ListTransactionsInput{}, err
	}

	return usecase.ListTransactionsInput{
		Operator: q.Get("operator"),
		Start:    start,
		End:      end,
		Page:     page,
		Size:     size,
	}, nil
}

// OperatorActivity returns the first and last transaction dates of an operator.
func (h *TransactionHandler) OperatorActivity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	activity, found, err := h.transactionUC.GetFirstAndLastDateForOperator(r.Context(), name)
	if err != nil {
		writeDomainError(w, "failed to get operator activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OperatorActivityFromDomain(name, activity, found))
}
