package collector

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"StockSimDesk/internal/calculator"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/model"
	"StockSimDesk/internal/retry"
	"StockSimDesk/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*3600)

// 2024-03-15 12:00 local time.
var fixedNow = time.Date(2024, 3, 15, 5, 0, 0, 0, time.UTC)

func newMockStack(t *testing.T) (*Collector, *Client) {
	t.Helper()
	gw := gateway.New(gateway.Endpoints{Trading: "http://mock/trading", Finance: "http://mock/finance"},
		"secret", "", time.Second, retry.DefaultPolicy(), zerolog.Nop())
	gw.Client = &http.Client{Transport: &MockTransport{Now: func() time.Time { return fixedNow }}}
	gw.Sleep = func(context.Context, time.Duration) error { return nil }

	client := NewClient(gw, time.Minute, zerolog.Nop())
	col := NewCollector(client, ict, zerolog.Nop())
	col.now = func() time.Time { return fixedNow }
	return col, client
}

var demo = &session.Session{Email: "demo@example.com"}

func TestPortfolio_MockBackend(t *testing.T) {
	col, _ := newMockStack(t)

	m, err := col.Portfolio(context.Background(), demo)
	require.NoError(t, err)

	assert.Equal(t, "demo@example.com", m.Email)
	assert.Equal(t, 125450000.0, m.Balance)
	assert.Equal(t, 32770000.0, m.StockValue)
	assert.InDelta(t, 79.2883, m.CashWeight, 0.001)
	assert.InDelta(t, 100-m.CashWeight, m.StockWeight, 1e-9)

	require.Len(t, m.Positions, 2)
	assert.Equal(t, "HPG", m.Positions[0].Symbol)
	assert.Equal(t, 1300000.0, m.Positions[0].PnL)
	assert.Equal(t, -700000.0, m.Positions[1].PnL)

	require.Len(t, m.RecentTrades, 3)
	hpg := m.RecentTrades[0]
	assert.True(t, hpg.HasPnL)
	assert.Equal(t, 1300000.0, hpg.RowPnL)
	assert.False(t, m.RecentTrades[2].HasPnL, "deposit rows carry no P&L")
	assert.Equal(t, ict, m.FetchedAt.Location())
}

func TestPortfolio_RequiresSession(t *testing.T) {
	col, _ := newMockStack(t)
	_, err := col.Portfolio(context.Background(), nil)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = col.Finance(context.Background(), nil, calculator.MonthToDate(fixedNow, ict), 1)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestFinance_MonthToDate(t *testing.T) {
	col, _ := newMockStack(t)

	m, err := col.MonthToDate(context.Background(), demo)
	require.NoError(t, err)

	assert.Equal(t, 5000000.0, m.CashFlow.Inflow)
	assert.Equal(t, 185000.0, m.CashFlow.Outflow)
	assert.Equal(t, 4815000.0, m.CashFlow.Balance)
	assert.InDelta(t, 3.7, m.CashFlow.BurnRate, 1e-9)
	assert.Equal(t, 3, m.CashFlow.Count)
	require.Len(t, m.Categories, 2)
	assert.Equal(t, "Dining", m.Categories[0].Name)
	assert.Len(t, m.Entries, 3)
	assert.Equal(t, 1, m.Page)
	assert.Equal(t, 1, m.TotalPages)
}

func TestFinance_RangeExcludesRows(t *testing.T) {
	col, _ := newMockStack(t)
	feb := calculator.MonthRange(time.Date(2024, 2, 10, 0, 0, 0, 0, ict), ict)

	m, err := col.Finance(context.Background(), demo, feb, 1)
	require.NoError(t, err)
	assert.Zero(t, m.CashFlow.Count)
	assert.Empty(t, m.Entries)
	assert.Equal(t, 0, m.TotalPages)
}

func TestTrend_MockBackend(t *testing.T) {
	col, _ := newMockStack(t)

	trend, err := col.Trend(context.Background(), demo, 3)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	assert.Equal(t, "2024-01", trend[0].Label)
	last := trend[2]
	assert.Equal(t, "2024-03", last.Label)
	assert.Equal(t, 5000000.0, last.Income)
	assert.Equal(t, 100.0, last.IncomeGrowth)

	_, err = col.Trend(context.Background(), demo, 0)
	assert.True(t, IsInput(err))
	_, err = col.Trend(context.Background(), demo, 25)
	assert.True(t, IsInput(err))
}

func TestDepositsAndHistory(t *testing.T) {
	col, _ := newMockStack(t)

	deps, err := col.Deposits(context.Background(), demo)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, 100000000.0, deps[0].Total.Float())

	rows, err := col.TradeHistory(context.Background(), demo)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestUnread(t *testing.T) {
	col, _ := newMockStack(t)
	unread, err := col.Unread(context.Background(), demo)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "N-1", unread[0].ID)
}

func TestMockTransport_UnknownAction(t *testing.T) {
	_, client := newMockStack(t)
	_, err := client.GetStockData(context.Background(), "ZZZ")
	assert.True(t, gateway.IsBackend(err))

	pts, err := client.GetStockHistory(context.Background(), "fpt")
	require.NoError(t, err)
	assert.Len(t, pts, 30)
	assert.Equal(t, 115000.0, pts[29].Price.Float())
}

// degradedBackend fails holdings and history while the profile succeeds.
type degradedBackend struct {
	Backend
}

func (degradedBackend) GetProfile(context.Context, string) (*model.Profile, error) {
	return &model.Profile{Email: "x@y.z", Balance: 10, TotalAssets: 0}, nil
}

func (degradedBackend) GetHoldings(context.Context, string) ([]model.Holding, error) {
	return nil, errors.New("holdings down")
}

func (degradedBackend) GetHistory(context.Context, string) ([]model.Transaction, error) {
	return nil, errors.New("history down")
}

func TestPortfolio_DegradesWhenListsFail(t *testing.T) {
	col := NewCollector(degradedBackend{}, ict, zerolog.Nop())
	m, err := col.Portfolio(context.Background(), &session.Session{Email: "x@y.z"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, m.CashWeight)
	assert.Empty(t, m.Positions)
	assert.Empty(t, m.RecentTrades)
}

func TestQuoteInsight_MockBackend(t *testing.T) {
	col, _ := newMockStack(t)

	in, err := col.QuoteInsight(context.Background(), " vnm ")
	require.NoError(t, err)
	assert.Equal(t, "VNM", in.Quote.Symbol)
	assert.Equal(t, 30, in.Points)
	assert.Equal(t, 68100.0, in.High)
	assert.InDelta(t, 68100*(1-0.002*29), in.Low, 1e-6)
	assert.Equal(t, 1.0, in.Position)
	assert.Less(t, in.SMA20, in.SMA5)

	_, err = col.QuoteInsight(context.Background(), "ZZZ")
	assert.True(t, gateway.IsBackend(err))
}
