package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type transactionServiceStub struct {
	listFn     func(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error)
	activityFn func(ctx context.Context, name string) (usecase.OperatorActivity, bool, error)
}

func (s *transactionServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
	return s.listFn(ctx, input)
}

func (s *transactionServiceStub) GetFirstAndLastDateForOperator(ctx context.Context, name string) (usecase.OperatorActivity, bool, error) {
	return s.activityFn(ctx, name)
}

func TestTransactionHandler_List_ParsesFilters(t *testing.T) {
	var captured usecase.ListTransactionsInput
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
			captured = input
			return domain.NewPage([]*domain.TransactionRecord{{ID: "tx-1"}}, 1, 10, 11), nil
		},
	}, time.UTC)

	req := httptest.NewRequest(http.MethodGet,
		"/transactions?account_id=acc-1&operator=bob&start=2024-01-01&end=31/01/2024&page=1&size=10", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" || captured.Operator != "bob" {
		t.Fatalf("unexpected filters: %+v", captured)
	}
	if captured.Start == nil || !captured.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", captured.Start)
	}
	if captured.End == nil || !captured.End.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", captured.End)
	}
	if captured.Page == nil || *captured.Page != 1 || captured.Size == nil || *captured.Size != 10 {
		t.Fatalf("unexpected paging: %v %v", captured.Page, captured.Size)
	}

	var resp dto.TransactionPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalItems != 11 || resp.TotalPages != 2 {
		t.Fatalf("unexpected page: %+v", resp)
	}
}

func TestTransactionHandler_List_Unpaged(t *testing.T) {
	var captured usecase.ListTransactionsInput
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
			captured = input
			return domain.NewPage[*domain.TransactionRecord](nil, 0, 0, 0), nil
		},
	}, time.UTC)

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Page != nil || captured.Size != nil || captured.Start != nil || captured.End != nil {
		t.Fatalf("expected no optional filters, got %+v", captured)
	}
}

func TestTransactionHandler_List_BadInput(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
			t.Fatal("service should not be called")
			return domain.Page[*domain.TransactionRecord]{}, nil
		},
	}, time.UTC)

	for _, query := range []string{"start=yesterday", "end=2024-13-01", "page=first", "size=1.5"} {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/transactions?"+query, nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestTransactionHandler_ListByAccount(t *testing.T) {
	var captured usecase.ListTransactionsInput
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) (domain.Page[*domain.TransactionRecord], error) {
			captured = input
			return domain.Page[*domain.TransactionRecord]{}, domain.ErrAccountNotFound
		},
	}, time.UTC)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/accounts/acc-9/transactions?account_id=ignored", nil),
		map[string]string{"id": "acc-9"})
	rec := httptest.NewRecorder()

	handler.ListByAccount(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if captured.AccountID != "acc-9" {
		t.Fatalf("expected path id to win, got %q", captured.AccountID)
	}
}

func TestTransactionHandler_OperatorActivity(t *testing.T) {
	first := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)

	handler := NewTransactionHandler(&transactionServiceStub{
		activityFn: func(ctx context.Context, name string) (usecase.OperatorActivity, bool, error) {
			if name != "bob" {
				return usecase.OperatorActivity{}, false, nil
			}
			return usecase.OperatorActivity{First: first, Last: last}, true, nil
		},
	}, time.UTC)

	tests := []struct {
		name      string
		wantFound bool
	}{
		{"bob", true},
		{"carol", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParams(httptest.NewRequest(http.MethodGet, "/transactions/operators/"+tt.name, nil),
				map[string]string{"name": tt.name})
			rec := httptest.NewRecorder()

			handler.OperatorActivity(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var resp dto.OperatorActivityResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Found != tt.wantFound {
				t.Fatalf("found = %v, want %v", resp.Found, tt.wantFound)
			}
			if tt.wantFound && (!resp.First.Equal(first) || !resp.Last.Equal(last)) {
				t.Fatalf("unexpected range: %+v", resp)
			}
		})
	}
}
