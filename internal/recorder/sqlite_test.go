package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"StockSimDesk/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func countRows(t *testing.T, r *SQLiteRecorder, table string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestMigrateIsIdempotent(t *testing.T) {
	r := openTestRecorder(t)
	require.NoError(t, r.migrate())
	require.NoError(t, r.migrate())
}

func TestRecordPortfolioAndCashFlow(t *testing.T) {
	r := openTestRecorder(t)
	r.now = func() time.Time { return time.Unix(1710000000, 0) }

	err := r.RecordPortfolio(&PortfolioSnapshot{
		Metrics: &model.PortfolioMetrics{Email: "demo@example.com", Balance: 100, TotalAssets: 200, CashWeight: 50,
			Positions: []model.PositionMetrics{{Symbol: "HPG"}}},
		Health: &model.HealthSignal{Tier: model.HealthTier{Label: "SAVING"}},
	})
	require.NoError(t, err)
	assert.Error(t, r.RecordPortfolio(&PortfolioSnapshot{}))

	require.NoError(t, r.RecordCashFlow(&CashFlowSnapshot{
		Period:   "2024-03",
		CashFlow: model.CashFlow{Inflow: 1000, Outflow: 400, Balance: 600, BurnRate: 40, Count: 3},
		Tier:     "SAVING",
	}))

	assert.Equal(t, 1, countRows(t, r, "portfolio_snapshots"))
	assert.Equal(t, 1, countRows(t, r, "cashflow_snapshots"))

	var tier string
	var positions int
	var ts int64
	require.NoError(t, r.db.QueryRow("SELECT tier_label, positions, timestamp FROM portfolio_snapshots").Scan(&tier, &positions, &ts))
	assert.Equal(t, "SAVING", tier)
	assert.Equal(t, 1, positions)
	assert.Equal(t, int64(1710000000), ts)
}

func TestCallSummaries(t *testing.T) {
	r := openTestRecorder(t)
	now := time.Unix(1710000000, 0)
	r.now = func() time.Time { return now }

	calls := []CallEvent{
		{RequestID: "1", Action: "getProfile", Target: "trading", Attempts: 1, OK: true, Duration: 100 * time.Millisecond},
		{RequestID: "2", Action: "getProfile", Target: "trading", Attempts: 4, OK: false, Duration: 300 * time.Millisecond, Err: "timeout"},
		{RequestID: "3", Action: "getNotifications", Target: "trading", Attempts: 1, OK: true, Duration: 50 * time.Millisecond},
	}
	for i := range calls {
		require.NoError(t, r.RecordCall(&calls[i]))
	}
	require.NoError(t, r.RecordNotification(&NotificationEvent{NotificationID: "N-1", Title: "t", Delivered: true}))
	assert.Equal(t, 1, countRows(t, r, "notification_events"))

	sums, err := r.CallSummaries(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, CallSummary{Action: "getProfile", Calls: 2, Failures: 1, AvgMs: 200}, sums[0])
	assert.Equal(t, "getNotifications", sums[1].Action)

	sums, err = r.CallSummaries(now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordCall(&CallEvent{}))
	assert.NoError(t, r.Close())
}
