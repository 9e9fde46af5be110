package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the relay writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			email            TEXT,
			balance          REAL,
			total_assets     REAL,
			stock_value      REAL,
			cash_weight      REAL,
			total_investment REAL,
			realized_pnl     REAL,
			unrealized_pnl   REAL,
			total_fees       REAL,
			positions        INTEGER,
			tier_label       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolio_ts ON portfolio_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS cashflow_snapshots (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			period           TEXT,
			inflow           REAL,
			outflow          REAL,
			balance          REAL,
			burn_rate        REAL,
			income_variance  REAL,
			expense_variance REAL,
			entries          INTEGER,
			tier_label       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cashflow_ts ON cashflow_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS notification_events (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			notification_id TEXT,
			title           TEXT,
			delivered       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_ts ON notification_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS gateway_calls (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT,
			action      TEXT,
			target      TEXT,
			attempts    INTEGER,
			ok          INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_ts ON gateway_calls(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_action ON gateway_calls(action)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPortfolio(snap *PortfolioSnapshot) error {
	if snap == nil || snap.Metrics == nil {
		return errors.New("empty portfolio snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m := snap.Metrics
	tier := ""
	if snap.Health != nil {
		tier = snap.Health.Tier.Label
	}
	_, err := r.db.Exec(`INSERT INTO portfolio_snapshots
		(timestamp, email, balance, total_assets, stock_value, cash_weight,
		 total_investment, realized_pnl, unrealized_pnl, total_fees, positions, tier_label)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), m.Email, m.Balance, m.TotalAssets, m.StockValue, m.CashWeight,
		m.TotalInvestment, m.RealizedPnL, m.UnrealizedPnL, m.TotalFees, len(m.Positions), tier,
	)
	return err
}

func (r *SQLiteRecorder) RecordCashFlow(snap *CashFlowSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cf := snap.CashFlow
	_, err := r.db.Exec(`INSERT INTO cashflow_snapshots
		(timestamp, period, inflow, outflow, balance, burn_rate,
		 income_variance, expense_variance, entries, tier_label)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.Period, cf.Inflow, cf.Outflow, cf.Balance, cf.BurnRate,
		snap.Variance.IncomeVariance, snap.Variance.ExpenseVariance, cf.Count, snap.Tier,
	)
	return err
}

func (r *SQLiteRecorder) RecordNotification(evt *NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO notification_events
		(timestamp, notification_id, title, delivered)
		VALUES (?,?,?,?)`,
		r.now().Unix(), evt.NotificationID, evt.Title, evt.Delivered,
	)
	return err
}

func (r *SQLiteRecorder) RecordCall(evt *CallEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO gateway_calls
		(timestamp, request_id, action, target, attempts, ok, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.RequestID, evt.Action, evt.Target,
		evt.Attempts, evt.OK, evt.Duration.Milliseconds(), evt.Err,
	)
	return err
}

// CallSummary aggregates recorded calls per action.
type CallSummary struct {
	Action   string  `json:"action"`
	Calls    int     `json:"calls"`
	Failures int     `json:"failures"`
	AvgMs    float64 `json:"avgMs"`
}

// CallSummaries returns per-action call counts since the given time, busiest first.
func (r *SQLiteRecorder) CallSummaries(since time.Time) ([]CallSummary, error) {
	rows, err := r.db.Query(`SELECT action, COUNT(*), SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), AVG(duration_ms)
		FROM gateway_calls WHERE timestamp >= ?
		GROUP BY action ORDER BY COUNT(*) DESC, action`, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSummary
	for rows.Next() {
		var s CallSummary
		if err := rows.Scan(&s.Action, &s.Calls, &s.Failures, &s.AvgMs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
