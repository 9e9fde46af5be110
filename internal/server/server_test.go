package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/recorder"
	"StockSimDesk/internal/retry"
	"StockSimDesk/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*3600)

var fixedNow = time.Date(2024, 3, 15, 5, 0, 0, 0, time.UTC)

type fakeStats struct{ since time.Time }

func (f *fakeStats) CallSummaries(since time.Time) ([]recorder.CallSummary, error) {
	f.since = since
	return []recorder.CallSummary{{Action: "getProfile", Calls: 3, Failures: 1, AvgMs: 12}}, nil
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	gw := gateway.New(gateway.Endpoints{Trading: "http://mock/t", Finance: "http://mock/f"},
		"secret", "", time.Second, retry.DefaultPolicy(), zerolog.Nop())
	gw.Client = &http.Client{Transport: &collector.MockTransport{Now: func() time.Time { return fixedNow }}}
	gw.Sleep = func(context.Context, time.Duration) error { return nil }

	client := collector.NewClient(gw, time.Minute, zerolog.Nop())
	col := collector.NewCollector(client, ict, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })
	sessions := session.NewManager(client, zerolog.Nop())

	s := New(Config{Addr: ":0", Log: zerolog.Nop(), Collector: col, Sessions: sessions, Stats: &fakeStats{}})
	return s, sessions
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func login(t *testing.T, s *Server) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/session/login", map[string]string{"email": "Demo@Example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["signedIn"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/session", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/portfolio", nil).Code)

	login(t, s)
	rec := do(t, s, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "demo@example.com", body["email"])
	assert.Equal(t, "DEMO", body["displayName"])

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/session/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/session", nil).Code)
}

func TestLogin_BadInput(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/session/login", map[string]string{"email": "nope", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/session/login", map[string]any{"email": "a@b.co", "password": "pw", "extra": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/account/otp", map[string]string{"email": "a@b.co", "purpose": "register"}).Code)
	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/account/register", map[string]string{"email": "a@b.co", "password": "pw", "otp": "123456"}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/account/reset-password", map[string]string{"email": "a@b.co", "password": "pw", "otp": "1"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/account/register", map[string]string{"email": "a@b.co", "password": "pw"}).Code)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/api/account/upgrade", map[string]string{"method": "momo"}).Code)
	login(t, s)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/account/upgrade", map[string]string{"method": "momo"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/account/upgrade", map[string]string{}).Code)
}

func TestPortfolio(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	rec := do(t, s, http.MethodGet, "/api/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 32770000.0, body["stockValue"])
	assert.InDelta(t, 79.2883, body["cashWeight"].(float64), 0.001)
	assert.Len(t, body["positions"], 2)
}

func TestTradesAndWallet(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	rec := do(t, s, http.MethodGet, "/api/trades/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 1300000.0, rows[0]["rowPnl"])

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/trades/recent?limit=0", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/history", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/holdings", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/history/T-1", nil).Code)

	rec = do(t, s, http.MethodGet, "/api/wallet/deposits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)

	rec = do(t, s, http.MethodPost, "/api/wallet/deposit", map[string]float64{"amount": 25000000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 150000000.0, decode(t, rec)["newBalance"])
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/wallet/deposit", map[string]float64{"amount": -1}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/wallet/adjust", map[string]float64{"amount": -5000}).Code)
}

func TestOrders(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	rec := do(t, s, http.MethodPost, "/api/orders", map[string]any{"symbol": " hpg ", "quantity": 100, "side": "BUY", "type": "LO", "price": 28000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = do(t, s, http.MethodPost, "/api/orders", map[string]any{"symbol": "HPG", "quantity": 100, "side": "BUY", "type": "LO"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/quotes/fpt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FPT", decode(t, rec)["symbol"])

	rec = do(t, s, http.MethodGet, "/api/quotes/ZZZ", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "backend", body["kind"])

	rec = do(t, s, http.MethodGet, "/api/quotes/HPG/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var points []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	assert.Len(t, points, 30)

	rec = do(t, s, http.MethodGet, "/api/quotes/vnm/insight", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, 30.0, body["points"])
	assert.Equal(t, 100.0, body["rsi14"])
	assert.Equal(t, 1.0, body["position"])

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/prices/refresh", nil).Code)
}

func TestNotifications(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	rec := do(t, s, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 1.0, body["unread"])
	assert.Len(t, body["notifications"], 2)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/notifications/read", nil).Code)
}

func TestFinance(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	rec := do(t, s, http.MethodGet, "/api/finance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	cf := body["cashFlow"].(map[string]any)
	assert.Equal(t, 5000000.0, cf["inflow"])
	assert.Equal(t, 185000.0, cf["outflow"])
	assert.Len(t, body["entries"], 3)
	assert.Equal(t, "SAVING", body["health"].(map[string]any)["tier"].(map[string]any)["label"])

	rec = do(t, s, http.MethodGet, "/api/finance?start=2024-02-01&end=2024-02-29", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["cashFlow"].(map[string]any)["inflow"])

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/finance?start=15/03/2024", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/finance?start=2024-03-10&end=2024-03-01", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/finance?page=x", nil).Code)

	rec = do(t, s, http.MethodGet, "/api/finance/trend?months=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trend []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trend))
	require.Len(t, trend, 3)
	assert.Equal(t, "2024-03", trend[2]["label"])
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/finance/trend?months=0", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/finance/trend?months=24", nil).Code)
	for _, months := range []string{"25", "300000", "1000000000"} {
		rec := do(t, s, http.MethodGet, "/api/finance/trend?months="+months, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, months)
		assert.Contains(t, decode(t, rec)["error"], "between 1 and 24")
	}

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/finance/summary", nil).Code)
}

func TestFinanceLedgerMutations(t *testing.T) {
	s, _ := newTestServer(t)
	login(t, s)

	entry := map[string]any{"amount": 120000, "type": "expense", "category": "Dining", "description": "Phở", "source": "Manual"}
	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/finance/transactions", entry).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/api/finance/transactions/MANUAL-1", entry).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodDelete, "/api/finance/transactions/MANUAL-1", nil).Code)

	entry["amount"] = 0
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/finance/transactions", entry).Code)

	rec := do(t, s, http.MethodPost, "/api/finance/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["syncCount"])
	assert.Equal(t, false, decode(t, do(t, s, http.MethodGet, "/api/finance/gmail", nil))["connected"])
	assert.Contains(t, decode(t, do(t, s, http.MethodGet, "/api/finance/gmail/auth-url", nil))["url"], "accounts.google.com")
}

func TestCallStats(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/stats/calls?hours=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "getProfile", list[0]["action"])
	assert.WithinDuration(t, time.Now().Add(-2*time.Hour), s.stats.(*fakeStats).since, time.Minute)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/stats/calls?hours=-1", nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{session.ErrNoSession, http.StatusUnauthorized},
		{fmt.Errorf("login: %w", session.ErrInvalid), http.StatusBadRequest},
		{&collector.InputError{Field: "symbol", Reason: "required"}, http.StatusBadRequest},
		{&gateway.Error{Kind: gateway.KindBackend}, http.StatusUnprocessableEntity},
		{fmt.Errorf("fetch: %w", &gateway.Error{Kind: gateway.KindConnection}), http.StatusBadGateway},
		{&gateway.Error{Kind: gateway.KindParse}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/portfolio", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// failingTransport fails every request and records whether its context was already done.
type failingTransport struct {
	mu        sync.Mutex
	attempts  int
	cancelled int
}

func (f *failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if req.Context().Err() != nil {
		f.cancelled++
	}
	return nil, errors.New("connection refused")
}

func TestBackendCallOutlivesClientDisconnect(t *testing.T) {
	ft := &failingTransport{}
	gw := gateway.New(gateway.Endpoints{Trading: "http://down/t", Finance: "http://down/f"},
		"secret", "", time.Second, retry.DefaultPolicy(), zerolog.Nop())
	gw.Client = &http.Client{Transport: ft}
	var waits []time.Duration
	gw.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	client := collector.NewClient(gw, 0, zerolog.Nop())
	col := collector.NewCollector(client, ict, zerolog.Nop())
	s := New(Config{Log: zerolog.Nop(), Collector: col, Sessions: session.NewManager(client, zerolog.Nop())})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/quotes/HPG", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 4, ft.attempts)
	assert.Zero(t, ft.cancelled)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, waits)
}

func TestBackendCallEndsOnShutdown(t *testing.T) {
	ft := &failingTransport{}
	gw := gateway.New(gateway.Endpoints{Trading: "http://down/t"}, "secret", "", time.Second, retry.DefaultPolicy(), zerolog.Nop())
	gw.Client = &http.Client{Transport: ft}
	gw.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	client := collector.NewClient(gw, 0, zerolog.Nop())
	col := collector.NewCollector(client, ict, zerolog.Nop())

	base, stop := context.WithCancel(context.Background())
	stop()
	s := New(Config{Log: zerolog.Nop(), Collector: col, Sessions: session.NewManager(client, zerolog.Nop()), BaseContext: base})

	rec := do(t, s, http.MethodGet, "/api/quotes/HPG", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.LessOrEqual(t, ft.attempts, 1)
}

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	rec := httptest.NewRecorder()
	s.writeJSON(rec, req, http.StatusOK, map[string]any{"at": time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to encode response", decode(t, rec)["error"])
}
