package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/usecase"
)

// BalanceService reconstructs balances from the transaction log.
type BalanceService interface {
	ComputeBalanceSummary(ctx context.Context, input usecase.ComputeBalanceInput) (*usecase.BalanceSummary, error)
}

// BalanceHandler serves replayed balances.
type BalanceHandler struct {
	balanceUC BalanceService
	loc       *time.Location
}

// NewBalanceHandler creates a new BalanceHandler. Date parameters are read in loc.
func NewBalanceHandler(balanceUC BalanceService, loc *time.Location) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC, loc: loc}
}

// Get replays the transactions of accounts whose name contains the name parameter,
// optionally limited to the days between start and end.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := dto.ParseDate(q.Get("start"), h.loc)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	end, err := dto.ParseDate(q.Get("end"), h.loc)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	name := q.Get("name")
	summary, err := h.balanceUC.ComputeBalanceSummary(r.Context(), usecase.ComputeBalanceInput{
		NamePattern: name,
		Start:       start,
		End:         end,
	})
	if err != nil {
		writeDomainError(w, "failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromSummary(name, start, end, summary))
}
