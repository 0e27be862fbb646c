package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type ledgerServiceStub struct {
	depositFn  func(ctx context.Context, input usecase.DepositInput) (*domain.TransactionRecord, error)
	withdrawFn func(ctx context.Context, input usecase.WithdrawInput) (*domain.TransactionRecord, error)
	transferFn func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
}

func (s *ledgerServiceStub) Deposit(ctx context.Context, input usecase.DepositInput) (*domain.TransactionRecord, error) {
	return s.depositFn(ctx, input)
}

func (s *ledgerServiceStub) Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.TransactionRecord, error) {
	return s.withdrawFn(ctx, input)
}

func (s *ledgerServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	return s.transferFn(ctx, input)
}

func TestLedgerHandler_Deposit(t *testing.T) {
	var captured usecase.DepositInput
	handler := NewLedgerHandler(&ledgerServiceStub{
		depositFn: func(ctx context.Context, input usecase.DepositInput) (*domain.TransactionRecord, error) {
			captured = input
			return &domain.TransactionRecord{
				ID:           "tx-1",
				AccountID:    input.AccountID,
				Operation:    domain.OperationDeposit,
				Amount:       input.Amount,
				OperatorName: domain.SystemOperator,
				CreatedAt:    time.Now(),
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/acc-1/deposit", bytes.NewBufferString(`{"amount":"100.50"}`))
	req = withURLParams(req, map[string]string{"id": "acc-1"})
	rec := httptest.NewRecorder()

	handler.Deposit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" || !captured.Amount.Equal(decimal.RequireFromString("100.50")) {
		t.Fatalf("unexpected input: %+v", captured)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Operation != "DEPOSIT" || resp.Amount != "100.50" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLedgerHandler_Withdraw_InsufficientFunds(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		withdrawFn: func(ctx context.Context, input usecase.WithdrawInput) (*domain.TransactionRecord, error) {
			return nil, fmt.Errorf("%w: account acc-1 has 0.00, needs 5.00", domain.ErrInsufficientFunds)
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/accounts/acc-1/withdraw", bytes.NewBufferString(`{"amount":5}`))
	req = withURLParams(req, map[string]string{"id": "acc-1"})
	rec := httptest.NewRecorder()

	handler.Withdraw(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestLedgerHandler_Withdraw_UnknownField(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/accounts/acc-1/withdraw", bytes.NewBufferString(`{"amount":5,"currency":"USD"}`))
	rec := httptest.NewRecorder()

	handler.Withdraw(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLedgerHandler_Transfer(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusCreated},
		{"same account", domain.ErrSameAccount, http.StatusBadRequest},
		{"missing account", domain.ErrAccountNotFound, http.StatusNotFound},
		{"busy", domain.ErrBusy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured usecase.TransferInput
			handler := NewLedgerHandler(&ledgerServiceStub{
				transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
					captured = input
					if tt.err != nil {
						return nil, tt.err
					}
					return &usecase.TransferResult{
						CorrelationID: "corr-1",
						Outgoing:      &domain.TransactionRecord{ID: "tx-1", Operation: domain.OperationTransferOut, Amount: input.Amount},
						Incoming:      &domain.TransactionRecord{ID: "tx-2", Operation: domain.OperationTransferIn, Amount: input.Amount},
					}, nil
				},
			})

			body, _ := json.Marshal(dto.CreateTransferRequest{
				FromAccountID: "A",
				ToAccountID:   "B",
				Amount:        decimal.RequireFromString("30"),
				Type:          "TRANSFER",
			})
			req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Transfer(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if captured.FromAccountID != "A" || captured.ToAccountID != "B" || captured.Type != "TRANSFER" {
				t.Fatalf("unexpected input: %+v", captured)
			}
			if tt.err == nil {
				var resp dto.TransferResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.CorrelationID != "corr-1" || resp.Outgoing.Amount != "30.00" {
					t.Fatalf("unexpected response: %+v", resp)
				}
			}
		})
	}
}
