package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoreria/internal/core"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

// Sunday 2026-10-18, 09:00 UTC
var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Total   *int64          `json:"total"`
	Pages   *int            `json:"pages"`
}

type testAPI struct {
	srv   *Server
	svc   Services
	store *storage.Store
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := services.WithClock(func() time.Time { return testNow })
	projects := services.NewProjectService(store, time.Minute, clock)
	svc := Services{
		Accounts:        services.NewAccountService(store, clock),
		Transactions:    services.NewTransactionService(store, clock),
		Expenses:        services.NewExpenseService(store, clock),
		Projects:        projects,
		ProjectExpenses: services.NewProjectExpenseService(store, projects, clock),
		Budgets:         services.NewBudgetService(store, projects, core.StartPending, clock),
		Statistics:      services.NewStatisticsService(store, 0, clock),
	}
	if opts.Ready == nil {
		opts.Ready = store
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{srv: srv, svc: svc, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr, env := api.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.True(t, env.Success, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"), path)
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error {
	return core.Transport("ping", errors.New("connection refused"))
}

func TestReadyReportsUnreachableDatabase(t *testing.T) {
	api := newTestAPI(t, Options{Ready: downPinger{}})

	rr, env := api.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "transport", env.Kind)
	assert.Equal(t, "5", rr.Header().Get("Retry-After"))
}

func TestIncomingTransactionNeedsAccount(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(t, http.MethodPost, "/api/transactions",
		`{"type":"incoming","category":"Client Payment","amount":500,"date":"2026-10-18"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", env.Kind)
	assert.NotEmpty(t, env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/accounts",
		`{"account_name":"Operations","bank":"HDFC","number":"50100","ifsc":"hdfc0000123"}`)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	account := decodeData[core.Account](t, env)
	assert.Equal(t, "HDFC0000123", account.IFSCCode)
	assert.True(t, account.IsActive)

	body := fmt.Sprintf(`{"type":"incoming","category":"Client Payment","amount":"500.00","date":"2026-10-18","account_id":%d}`, account.ID)
	rr, env = api.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	tx := decodeData[core.Transaction](t, env)
	assert.Equal(t, core.Cents(50000), tx.Amount)
	assert.Equal(t, "2026-10-18", tx.TransactionDate.String())
	require.NotNil(t, tx.AccountID)
	assert.Equal(t, account.ID, *tx.AccountID)

	rr, env = api.do(t, http.MethodPost, "/api/transactions",
		fmt.Sprintf(`{"type":"outgoing","category":"Rent","amount":120,"transactionDate":"2026-10-18","accountId":%d}`, account.ID))
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	assert.Nil(t, decodeData[core.Transaction](t, env).AccountID, "outgoing transactions never keep an account")
}

func TestBudgetSpendOverHTTP(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(t, http.MethodPost, "/api/budgets",
		`{"budgetName":"Q4 marketing","category":"marketing","amount":20000,"start_date":"2026-10-11","endDate":"2026-12-17"}`)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	budget := decodeData[core.Budget](t, env)
	assert.Equal(t, "Q4 marketing", budget.Name)
	assert.Equal(t, core.Cents(2000000), budget.Allocated)
	assert.Equal(t, core.BudgetActive, budget.Status)

	path := fmt.Sprintf("/api/budgets/%d", budget.ID)
	rr, env = api.do(t, http.MethodPost, path+"/spend", `{"amount":15000,"note":"launch campaign"}`)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	res := decodeData[core.SpendResult](t, env)
	assert.Equal(t, core.Cents(1500000), res.Budget.Spent)
	assert.Equal(t, "launch campaign", res.Transaction.Description)
	assert.Equal(t, core.Outgoing, res.Transaction.Type)

	rr, env = api.do(t, http.MethodPost, path+"/spend", `{"amount":6000}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "insufficient_budget", env.Kind)
	assert.False(t, env.Success)

	rr, env = api.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Spent     core.Money `json:"spent"`
		Remaining core.Money `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, core.Cents(1500000), view.Spent)
	assert.Equal(t, core.Cents(500000), view.Remaining)

	// spent is not writable through an update
	rr, env = api.do(t, http.MethodPut, path,
		`{"name":"Q4 marketing","category":"marketing","allocated":20000,"spent":0,"startDate":"2026-10-11","endDate":"2026-12-17"}`)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	assert.Equal(t, core.Cents(1500000), decodeData[core.Budget](t, env).Spent)

	rr, env = api.do(t, http.MethodPost, path+"/reconcile", "")
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	assert.False(t, decodeData[core.Reconciliation](t, env).Changed)
	assert.Equal(t, "budget already reconciled", env.Message)

	rr, _ = api.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, env = api.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func TestTransactionPagination(t *testing.T) {
	api := newTestAPI(t, Options{})
	ctx := context.Background()
	for i := 0; i < 45; i++ {
		_, err := api.svc.Transactions.CreateTransaction(ctx, core.TransactionInput{
			Type: core.Outgoing, Category: "Office", Amount: core.Cents(int64(100 + i)),
			TransactionDate: core.NewDate(2026, 10, 1+i%18),
		})
		require.NoError(t, err)
	}

	for _, query := range []string{"page=2&limit=20", "page=2&pageSize=20", "page=2&page_size=20"} {
		rr, env := api.do(t, http.MethodGet, "/api/transactions?"+query, "")
		require.Equal(t, http.StatusOK, rr.Code, query)
		items := decodeData[[]core.Transaction](t, env)
		assert.Len(t, items, 20, query)
		require.NotNil(t, env.Total)
		require.NotNil(t, env.Pages)
		assert.Equal(t, int64(45), *env.Total, query)
		assert.Equal(t, 3, *env.Pages, query)
	}

	rr, env := api.do(t, http.MethodGet, "/api/transactions?page=3&limit=20", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]core.Transaction](t, env), 5)

	rr, env = api.do(t, http.MethodGet, "/api/transactions?page=922337203685477580&limit=20", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeData[[]core.Transaction](t, env))
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(45), *env.Total)

	rr, env = api.do(t, http.MethodGet, "/api/transactions?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", env.Kind)

	rr, _ = api.do(t, http.MethodGet, "/api/transactions?type=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountAndProjectListsArePaginated(t *testing.T) {
	api := newTestAPI(t, Options{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := api.svc.Accounts.CreateAccount(ctx, core.AccountInput{
			AccountName: fmt.Sprintf("Account %d", i), BankName: "HDFC",
			AccountNumber: fmt.Sprint(100 + i), IFSCCode: "HDFC0000123",
		})
		require.NoError(t, err)
		_, err = api.svc.Projects.CreateProject(ctx, core.ProjectInput{Name: fmt.Sprintf("Project %d", i)})
		require.NoError(t, err)
	}

	for _, path := range []string{"/api/accounts?page=1&limit=1", "/api/projects?page=1&limit=1"} {
		rr, env := api.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Len(t, decodeData[[]map[string]any](t, env), 1, path)
		require.NotNil(t, env.Total, path)
		require.NotNil(t, env.Pages, path)
		assert.Equal(t, int64(3), *env.Total, path)
		assert.Equal(t, 3, *env.Pages, path)
	}

	rr, env := api.do(t, http.MethodGet, "/api/accounts?isActive=true&page=2&limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]core.Account](t, env), 1)

	rr, env = api.do(t, http.MethodGet, "/api/projects?search=project%202", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(1), *env.Total)
}

func TestExpenseApproval(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(t, http.MethodPost, "/api/expenses",
		`{"category":"Travel","amount":250.5,"expense_date":"2026-10-17","employee":"R. Iyer"}`)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	e := decodeData[core.Expense](t, env)
	assert.Equal(t, core.StatusPending, e.Status)
	assert.Equal(t, core.Cents(25050), e.Amount)

	path := fmt.Sprintf("/api/expenses/%d/approve", e.ID)
	rr, env = api.do(t, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	approved := decodeData[core.Expense](t, env)
	assert.Equal(t, core.StatusCompleted, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	rr, env = api.do(t, http.MethodPost, path, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "conflict", env.Kind)
}

func TestProjectExpensesByProject(t *testing.T) {
	api := newTestAPI(t, Options{})

	rr, env := api.do(t, http.MethodPost, "/api/projects", `{"projectName":"Website","client":"Acme"}`)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	project := decodeData[core.Project](t, env)

	body := fmt.Sprintf(`{"project":%d,"name":"acme.io","category":"domain","amount":12.99,"method":"UPI","date":"2026-10-18"}`, project.ID)
	rr, env = api.do(t, http.MethodPost, "/api/project-expenses", body)
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	pe := decodeData[core.ProjectExpense](t, env)
	assert.Equal(t, "Acme", pe.Vendor)
	assert.Equal(t, core.PaymentUPI, pe.PaymentMethod)

	rr, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/expenses", project.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]core.ProjectExpense](t, env), 1)
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(1), *env.Total)

	rr, env = api.do(t, http.MethodGet, "/api/projects/999/expenses", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", env.Kind)

	rr, env = api.do(t, http.MethodGet, fmt.Sprintf("/api/project-expenses?projectId=%d&category=domain", project.ID), "")
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	require.NotNil(t, env.Total)
	assert.Equal(t, int64(1), *env.Total)
}

func TestStatisticsEndpoint(t *testing.T) {
	api := newTestAPI(t, Options{})
	ctx := context.Background()
	_, err := api.svc.Transactions.CreateTransaction(ctx, core.TransactionInput{
		Type: core.Outgoing, Category: "Salary", Amount: core.Cents(1200000), TransactionDate: core.NewDate(2026, 10, 18),
	})
	require.NoError(t, err)

	rr, env := api.do(t, http.MethodGet, "/api/statistics?timeFilter=month", "")
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	var stats struct {
		TimeFilter    string     `json:"timeFilter"`
		TotalExpenses core.Money `json:"totalExpenses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats), string(env.Data))
	assert.Equal(t, "month", stats.TimeFilter)
	assert.Equal(t, core.Cents(1200000), stats.TotalExpenses)

	_, again := api.do(t, http.MethodGet, "/api/statistics?timeFilter=month", "")
	assert.True(t, bytes.Equal(env.Data, again.Data), "statistics are deterministic")

	rr, env = api.do(t, http.MethodGet, "/api/statistics?timeFilter=decade", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", env.Kind)
}

func TestRoutingErrors(t *testing.T) {
	api := newTestAPI(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		kind   string
	}{
		{"unknown route", http.MethodGet, "/api/ledgers", "", http.StatusNotFound, "not_found"},
		{"method not allowed", http.MethodPatch, "/api/budgets/1", "", http.StatusMethodNotAllowed, "validation"},
		{"method not allowed on collection", http.MethodDelete, "/api/accounts", "", http.StatusMethodNotAllowed, "validation"},
		{"method not allowed on action", http.MethodGet, "/api/budgets/1/spend", "", http.StatusMethodNotAllowed, "validation"},
		{"unknown nested route", http.MethodGet, "/api/budgets/1/history", "", http.StatusNotFound, "not_found"},
		{"missing entity", http.MethodGet, "/api/accounts/42", "", http.StatusNotFound, "not_found"},
		{"empty body", http.MethodPost, "/api/budgets", "", http.StatusBadRequest, "validation"},
		{"malformed json", http.MethodPost, "/api/budgets", `{"name":`, http.StatusBadRequest, "validation"},
		{"json array", http.MethodPost, "/api/expenses", `[1,2]`, http.StatusBadRequest, "validation"},
		{"bad amount", http.MethodPost, "/api/expenses", `{"category":"Travel","amount":"abc","date":"2026-10-18"}`, http.StatusBadRequest, "validation"},
		{"bad date", http.MethodPost, "/api/expenses", `{"category":"Travel","amount":1,"date":"18/10/2026"}`, http.StatusBadRequest, "validation"},
		{"bad filter", http.MethodGet, "/api/accounts?isActive=maybe", "", http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tt.kind, env.Kind)
		})
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	api := newTestAPI(t, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr, _ := api.do(t, http.MethodGet, "/api/accounts", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr, env := api.do(t, http.MethodGet, "/api/accounts", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.False(t, env.Success)

	rr, _ = api.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = api.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tesoreria_rate_limit_hits_total 1")
	assert.Contains(t, rr.Body.String(), "tesoreria_http_requests_total")
}

func TestShutdownIsIdempotent(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.NoError(t, api.srv.Shutdown(context.Background()))
	assert.NoError(t, api.srv.Shutdown(context.Background()))
}
