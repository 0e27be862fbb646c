package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	redisrepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	"github.com/iho/bankledger/internal/infrastructure/locker"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/usecase"
)

// newRouterConfig wires every handler on top of the memory store.
func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	accountRepo := memory.NewAccountRepository(store)
	transactionRepo := memory.NewTransactionRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	ids := idgen.NewULIDGenerator()

	balances := usecase.NewBalanceUseCase(accountRepo, transactionRepo, time.UTC)

	cfg := RouterConfig{
		AccountHandler: handler.NewAccountHandler(usecase.NewAccountUseCase(txm, accountRepo, outboxRepo, ids)),
		LedgerHandler: handler.NewLedgerHandler(
			usecase.NewLedgerUseCase(txm, locker.New(time.Second), accountRepo, transactionRepo, outboxRepo, ids)),
		TransactionHandler:    handler.NewTransactionHandler(usecase.NewTransactionUseCase(accountRepo, transactionRepo, time.UTC), time.UTC),
		BalanceHandler:        handler.NewBalanceHandler(balances, time.UTC),
		ReconciliationHandler: handler.NewReconciliationHandler(usecase.NewReconciliationUseCase(accountRepo, balances)),
		HealthHandler:         handler.NewHealthHandler(map[string]handler.Checker{"storage": store.Ping}),
		Logger:                zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func (c *apiClient) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) decode(rec *httptest.ResponseRecorder, wantStatus int, dst any) {
	c.t.Helper()
	if rec.Code != wantStatus {
		c.t.Fatalf("expected %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	if dst == nil {
		return
	}
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		c.t.Fatalf("decode %T: %v (%s)", dst, err, rec.Body.String())
	}
}

func (c *apiClient) createAccount(name string) string {
	c.t.Helper()
	var acc dto.AccountResponse
	c.decode(c.do(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{Name: name}), http.StatusCreated, &acc)
	return acc.ID
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to return 200, got %d", path, rec.Code)
		}
	}
}

func TestNewRouter_LedgerFlow(t *testing.T) {
	c := &apiClient{t: t, router: NewRouter(newRouterConfig())}

	alice := c.createAccount("Alice Smith")
	bob := c.createAccount("Bob Jones")

	c.decode(c.do(http.MethodPost, "/api/v1/accounts/"+alice+"/deposit", map[string]any{"amount": "100"}), http.StatusCreated, nil)
	c.decode(c.do(http.MethodPost, "/api/v1/accounts/"+alice+"/withdraw", map[string]any{"amount": 10.5}), http.StatusCreated, nil)

	var transfer dto.TransferResponse
	c.decode(c.do(http.MethodPost, "/api/v1/transfers", map[string]any{
		"from_account_id": alice,
		"to_account_id":   bob,
		"amount":          "30",
		"type":            "TRANSFER",
	}), http.StatusCreated, &transfer)
	if transfer.CorrelationID == "" || transfer.Outgoing.OperatorName != "Bob Jones" || transfer.Incoming.OperatorName != "Alice Smith" {
		t.Fatalf("unexpected transfer: %+v", transfer)
	}

	var acc dto.AccountResponse
	c.decode(c.do(http.MethodGet, "/api/v1/accounts/"+alice, nil), http.StatusOK, &acc)
	if acc.Balance != "59.50" {
		t.Fatalf("expected alice balance 59.50, got %s", acc.Balance)
	}

	var found dto.AccountResponse
	c.decode(c.do(http.MethodGet, "/api/v1/accounts/search?name=bob", nil), http.StatusOK, &found)
	if found.ID != bob || found.Balance != "30.00" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	var page dto.TransactionPageResponse
	c.decode(c.do(http.MethodGet, "/api/v1/accounts/"+alice+"/transactions", nil), http.StatusOK, &page)
	if page.TotalItems != 3 || page.Items[0].Operation != "DEPOSIT" || page.Items[2].Operation != "TRANSFER_OUT" {
		t.Fatalf("unexpected alice history: %+v", page)
	}

	c.decode(c.do(http.MethodGet, "/api/v1/transactions?page=0&size=2", nil), http.StatusOK, &page)
	if len(page.Items) != 2 || page.TotalItems != 4 || page.TotalPages != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}

	var balance dto.BalanceResponse
	c.decode(c.do(http.MethodGet, "/api/v1/balance?name=alice", nil), http.StatusOK, &balance)
	if balance.Balance != "59.50" || balance.TransactionCount != 3 {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	today := time.Now().UTC().Format("02/01/2006")
	c.decode(c.do(http.MethodGet, "/api/v1/balance?name=bob&start="+today+"&end="+today, nil), http.StatusOK, &balance)
	if balance.Balance != "30.00" {
		t.Fatalf("unexpected dated balance: %+v", balance)
	}

	var activity dto.OperatorActivityResponse
	c.decode(c.do(http.MethodGet, "/api/v1/transactions/operators/system", nil), http.StatusOK, &activity)
	if !activity.Found || activity.First == nil || activity.First.After(*activity.Last) {
		t.Fatalf("unexpected operator activity: %+v", activity)
	}

	var report dto.ReconciliationReportResponse
	c.decode(c.do(http.MethodGet, "/api/v1/ledger/reconciliation", nil), http.StatusOK, &report)
	if !report.LedgerConsistent || report.TotalAccounts != 2 {
		t.Fatalf("unexpected reconciliation: %+v", report)
	}
}

func TestNewRouter_ErrorStatuses(t *testing.T) {
	c := &apiClient{t: t, router: NewRouter(newRouterConfig())}

	alice := c.createAccount("alice")
	bob := c.createAccount("bob")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"short name", http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{Name: "ab"}, http.StatusBadRequest},
		{"unknown account", http.MethodGet, "/api/v1/accounts/missing", nil, http.StatusNotFound},
		{"negative deposit", http.MethodPost, "/api/v1/accounts/" + alice + "/deposit", map[string]any{"amount": "-1"}, http.StatusBadRequest},
		{"overdraft", http.MethodPost, "/api/v1/accounts/" + alice + "/withdraw", map[string]any{"amount": "1"}, http.StatusUnprocessableEntity},
		{"self transfer", http.MethodPost, "/api/v1/transfers", map[string]any{
			"from_account_id": alice, "to_account_id": alice, "amount": "1", "type": "TRANSFER",
		}, http.StatusBadRequest},
		{"missing type", http.MethodPost, "/api/v1/transfers", map[string]any{
			"from_account_id": alice, "to_account_id": bob, "amount": "1",
		}, http.StatusBadRequest},
		{"reversed range", http.MethodGet, "/api/v1/balance?name=ali&start=2024-02-01&end=2024-01-01", nil, http.StatusBadRequest},
		{"negative page", http.MethodGet, "/api/v1/transactions?page=-1&size=10", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nothing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}

	// probes are never throttled
	req3 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req3.RemoteAddr = "1.2.3.4:1234"
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected health to bypass the limiter, got %d", rec3.Code)
	}
}

func TestNewRouter_IdempotentDeposit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &apiClient{t: t, router: NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = redisrepo.NewIdempotencyStore(client)
		cfg.IdempotencyTTL = time.Minute
	}))}

	id := c.createAccount("carol")

	first := c.do(http.MethodPost, "/api/v1/accounts/"+id+"/deposit", map[string]any{"amount": "25"}, apimiddleware.IdempotencyKeyHeader, "dep-1")
	second := c.do(http.MethodPost, "/api/v1/accounts/"+id+"/deposit", map[string]any{"amount": "25"}, apimiddleware.IdempotencyKeyHeader, "dep-1")

	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("unexpected statuses %d and %d", first.Code, second.Code)
	}
	if second.Header().Get(apimiddleware.IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected second deposit to be replayed")
	}

	var acc dto.AccountResponse
	c.decode(c.do(http.MethodGet, "/api/v1/accounts/"+id, nil), http.StatusOK, &acc)
	if acc.Balance != "25.00" {
		t.Fatalf("expected a single deposit to apply, balance %s", acc.Balance)
	}

	// a failed request frees its key
	failed := c.do(http.MethodPost, "/api/v1/accounts/"+id+"/withdraw", map[string]any{"amount": "100"}, apimiddleware.IdempotencyKeyHeader, "wd-1")
	if failed.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", failed.Code)
	}
	retry := c.do(http.MethodPost, "/api/v1/accounts/"+id+"/withdraw", map[string]any{"amount": "5"}, apimiddleware.IdempotencyKeyHeader, "wd-1")
	if retry.Code != http.StatusCreated || retry.Header().Get(apimiddleware.IdempotencyReplayHeader) != "" {
		t.Fatalf("expected retry to run, got %d replay=%q", retry.Code, retry.Header().Get(apimiddleware.IdempotencyReplayHeader))
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.MetricsGatherer = reg
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/accounts/abc", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bankledger_http_requests_total{method="GET",path="/api/v1/accounts/{id}",status="404"} 1`) {
		t.Fatalf("expected request metric in output:\n%s", rec.Body.String())
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.CORSAllowedOrigins = []string{"https://ops.example.com"}
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transfers", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestNewRouter_RegistersRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Routes)
	if !ok {
		t.Fatalf("expected router to implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/search",
		"GET /api/v1/accounts/{id}",
		"POST /api/v1/accounts/{id}/deposit",
		"POST /api/v1/accounts/{id}/withdraw",
		"GET /api/v1/accounts/{id}/transactions",
		"POST /api/v1/transfers",
		"GET /api/v1/transactions/",
		"GET /api/v1/transactions/operators/{name}",
		"GET /api/v1/balance",
		"GET /api/v1/ledger/reconciliation",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}
