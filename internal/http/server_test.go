package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/memory"
	"saldo/internal/services"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
	dash  *services.DashboardService
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := memory.New([]core.Category{
		{ID: "groceries", Name: "Groceries", Color: "#4CAF50"},
		{ID: "salary", Name: "Salary", Color: "#2196F3"},
	})
	dash := services.NewDashboardService(services.DashboardSources{
		Transactions: store,
		Aggregates:   store,
		Categories:   store,
		Budgets:      store,
		Goals:        store,
	}, services.DashboardConfig{Now: func() time.Time { return testNow }})
	txs := services.NewTransactionService(store, nil, dash)
	opts.Goals = services.NewGoalService(store, dash, func() time.Time { return testNow })

	opts.Cache = dash.Cache()
	srv := NewServer(":0", dash, txs, store, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, dash: dash}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	}
}

func TestCreateThenDashboard(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-03-01","amount":"2000","flow":"income","category":"salary","description":"Pay"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.NotEmpty(t, created["id"])

	form := url.Values{"date": {"2024-03-05"}, "amount": {"150,50"}, "flow": {"expense"}, "category": {"groceries"}}
	rec = env.do(t, http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/dashboard?offset=0", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)

	window := body["window"].(map[string]any)
	assert.Equal(t, float64(2024), window["year"])
	assert.Equal(t, float64(3), window["month"])
	assert.Len(t, body["timeline"], 10)

	expenses := body["expense_segments"].([]any)
	require.Len(t, expenses, 1)
	seg := expenses[0].(map[string]any)
	assert.Equal(t, "groceries", seg["id"])
	assert.Equal(t, float64(15050), seg["amount"].(map[string]any)["cents"])

	insights := body["insights"].([]any)
	require.NotEmpty(t, insights)
	assert.Equal(t, "savings-rate-high", insights[0].(map[string]any)["kind"])
}

func TestDashboardParameterErrors(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		target string
		code   int
	}{
		{"/api/dashboard?offset=1", http.StatusUnprocessableEntity},
		{"/api/dashboard?offset=abc", http.StatusUnprocessableEntity},
		{"/api/timeline?points=x", http.StatusUnprocessableEntity},
		{"/api/segments?flow=sideways", http.StatusUnprocessableEntity},
		{"/api/insights?offset=-2", http.StatusOK},
		{"/api/timeline?offset=-1&points=5", http.StatusOK},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, tt.target, "", "")
		assert.Equal(t, tt.code, rec.Code, "%s: %s", tt.target, rec.Body.String())
	}
}

func TestTimelinePoints(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodGet, "/api/timeline?offset=-1&points=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	// February 2024 has no data
	assert.Empty(t, body["points"])
	assert.Equal(t, float64(2), body["window"].(map[string]any)["month"])
}

func TestSegmentsByFlow(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.store.CreateTransaction(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: 5000}, Flow: core.FlowIncome,
		Category: &core.Category{ID: "salary"},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/segments?flow=income", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "income", body["flow"])
	assert.Len(t, body["segments"], 1)
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad amount", `{"date":"2024-03-01","amount":"abc","flow":"expense"}`, http.StatusUnprocessableEntity},
		{"bad flow", `{"date":"2024-03-01","amount":"1","flow":"transfer"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date":"01/03/2024","amount":"1","flow":"expense"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"date":"2024-03-01","amount":"1","flow":"expense","category":"yachts"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"fallback category", `{"date":"2024-03-01","amount":"1","flow":"expense","category":"other"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/transactions", "application/json", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestListAndDeleteTransactions(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-03-04","amount":"12","flow":"expense","description":"Coffee"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	rec = env.do(t, http.MethodGet, "/api/transactions?limit=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["transactions"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "other", list[0].(map[string]any)["category"].(map[string]any)["id"])

	rec = env.do(t, http.MethodDelete, "/api/transactions/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/transactions/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportTransactions(t *testing.T) {
	env := newTestEnv(t, Options{})

	csv := "date,amount,flow,category,description\n" +
		"2024-03-01,1000,income,salary,Pay\n" +
		"2024-03-02,-25.40,,Groceries,Market\n" +
		"2024-03-03,-5,,Snacks,Kiosk\n"
	rec := env.do(t, http.MethodPost, "/api/transactions/import", "text/csv", csv)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["imported"])
	assert.Equal(t, map[string]any{"Snacks": float64(1)}, body["unknown_categories"])

	txs, err := env.store.ListTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	rec = env.do(t, http.MethodPost, "/api/transactions/import", "text/csv", "date,amount\n2024-03-01,zero\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.do(t, http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode(t, rec)["categories"].([]any)
	require.Len(t, cats, 3)
	assert.Equal(t, "other", cats[2].(map[string]any)["id"])
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitPerMinute: 1})
	body := `{"date":"2024-03-01","amount":"1","flow":"expense"}`

	rec := env.do(t, http.MethodPost, "/api/transactions", "application/json", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/transactions", "application/json", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = env.do(t, http.MethodGet, "/api/dashboard", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
}

func TestCreateInvalidatesDashboardCache(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodGet, "/api/dashboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.dash.Cache().Size())

	rec = env.do(t, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-03-01","amount":"1","flow":"expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, env.dash.Cache().Size())
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.do(t, http.MethodGet, "/healthz", "", "")

	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "saldo_http_requests_total")
	assert.Contains(t, rec.Body.String(), "saldo_transactions_created_total 0")
}

func TestGoalsLifecycle(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(t, http.MethodPost, "/api/goals", "application/json",
		`{"name":"Holiday","target":"1200","deadline":"2024-12-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "2024-03-10", created["start_date"])
	assert.Equal(t, "2024-12-31", created["deadline"])

	rec = env.do(t, http.MethodPost, "/api/goals/"+id+"/contributions", "application/x-www-form-urlencoded",
		url.Values{"amount": {"300"}}.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(30000), decode(t, rec)["saved"].(map[string]any)["cents"])

	rec = env.do(t, http.MethodGet, "/api/goals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	goals := decode(t, rec)["goals"].([]any)
	require.Len(t, goals, 1)
	g := goals[0].(map[string]any)
	assert.Equal(t, "Holiday", g["name"])
	assert.Equal(t, "25", g["percent"])
	assert.Equal(t, float64(90000), g["remaining"].(map[string]any)["cents"])
	assert.Equal(t, float64(296), g["days_left"])
	assert.Equal(t, float64(9000), g["monthly_needed"].(map[string]any)["cents"])
	assert.Equal(t, true, g["on_track"])
	assert.Equal(t, false, g["reached"])

	rec = env.do(t, http.MethodPost, "/api/goals/"+id+"/contributions", "application/json", `{"amount":"-500"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/goals/"+id+"/contributions", "application/json", `{"amount":"-100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(20000), decode(t, rec)["saved"].(map[string]any)["cents"])

	rec = env.do(t, http.MethodDelete, "/api/goals/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/goals/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/goals", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["goals"])
}

func TestGoalValidation(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"target":"100"}`},
		{"zero target", `{"name":"Car","target":"0"}`},
		{"bad target", `{"name":"Car","target":"lots"}`},
		{"bad deadline", `{"name":"Car","target":"100","deadline":"31/12/2024"}`},
		{"deadline before today", `{"name":"Car","target":"100","deadline":"2024-01-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/goals", "application/json", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/goals/nope/contributions", "application/json", `{"amount":"5"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/goals/nope/contributions", "application/json", `{"amount":"0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGoalWritesWithoutGoalStore(t *testing.T) {
	store := memory.New(nil)
	dash := services.NewDashboardService(services.DashboardSources{
		Transactions: store,
		Aggregates:   store,
		Categories:   store,
		Budgets:      store,
	}, services.DashboardConfig{Now: func() time.Time { return testNow }})
	srv := NewServer(":0", dash, services.NewTransactionService(store, nil, dash), store, Options{Cache: dash.Cache()})

	req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(`{"name":"Car","target":"100"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["goals"])
}
