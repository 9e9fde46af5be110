package collector

import (
	"context"
	"fmt"
	"time"

	"StockSimDesk/internal/calculator"
	"StockSimDesk/internal/model"
	"StockSimDesk/internal/session"

	"github.com/rs/zerolog"
)

// DefaultRecentTrades is the number of history rows shown on the dashboard.
const DefaultRecentTrades = 5

// Collector fetches backend data for a session and reduces it to display metrics.
type Collector struct {
	Backend     Backend
	Loc         *time.Location
	RecentLimit int
	now         func() time.Time
	log         zerolog.Logger
}

// NewCollector creates a Collector. A nil loc means time.Local.
func NewCollector(backend Backend, loc *time.Location, log zerolog.Logger) *Collector {
	if loc == nil {
		loc = time.Local
	}
	return &Collector{
		Backend:     backend,
		Loc:         loc,
		RecentLimit: DefaultRecentTrades,
		now:         time.Now,
		log:         log.With().Str("component", "collector").Logger(),
	}
}

// WithClock replaces the clock used for date windows.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Now returns the collector's clock in its location.
func (c *Collector) Now() time.Time { return c.now().In(c.Loc) }

func requireSession(s *session.Session) error {
	if s == nil {
		return session.ErrNoSession
	}
	return nil
}

// Portfolio fetches the profile and derives the dashboard metrics.
// Holdings and history missing from the profile are fetched separately; a
// failure there degrades to empty lists instead of failing the dashboard.
func (c *Collector) Portfolio(ctx context.Context, s *session.Session) (*model.PortfolioMetrics, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	profile, err := c.Backend.GetProfile(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	holdings := profile.Holdings
	if holdings == nil {
		if holdings, err = c.Backend.GetHoldings(ctx, s.Email); err != nil {
			c.log.Warn().Err(err).Msg("holdings unavailable, showing none")
			holdings = nil
		}
	}

	history := profile.RecentHistory
	if history == nil {
		if history, err = c.Backend.GetHistory(ctx, s.Email); err != nil {
			c.log.Warn().Err(err).Msg("history unavailable, showing no recent trades")
			history = nil
		}
	}

	balance := profile.Balance.Float()
	assets := profile.TotalAssets.Float()
	invested := profile.TotalInvestment.Float()

	m := &model.PortfolioMetrics{
		Email:           profile.Email,
		Balance:         balance,
		TotalAssets:     assets,
		StockValue:      calculator.StockValue(balance, assets),
		CashWeight:      calculator.CashWeight(balance, assets),
		StockWeight:     calculator.StockWeight(balance, assets),
		TotalInvestment: invested,
		RealizedPnL:     profile.RealizedPnL.Float(),
		RealizedPct:     calculator.RealizedPct(profile.RealizedPnL.Float(), invested),
		UnrealizedPnL:   profile.UnrealizedPnL.Float(),
		TotalFees:       profile.TotalFees.Float(),
		FeePct:          calculator.FeePct(profile.TotalFees.Float(), invested),
		Positions:       calculator.Positions(holdings),
		RecentTrades:    calculator.TradeRows(history, holdings, c.RecentLimit),
		FetchedAt:       c.Now(),
	}
	if m.Email == "" {
		m.Email = s.Email
	}
	return m, nil
}

// TradeHistory returns every history row with its P&L against current holdings.
func (c *Collector) TradeHistory(ctx context.Context, s *session.Session) ([]model.TradeRowMetrics, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	history, err := c.Backend.GetHistory(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	holdings, err := c.Backend.GetHoldings(ctx, s.Email)
	if err != nil {
		c.log.Warn().Err(err).Msg("holdings unavailable, BUY rows priced at execution")
		holdings = nil
	}
	return calculator.TradeRows(history, holdings, 0), nil
}

// Deposits returns the wallet deposits found in the trade history.
func (c *Collector) Deposits(ctx context.Context, s *session.Session) ([]model.Transaction, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	history, err := c.Backend.GetHistory(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return calculator.Deposits(history), nil
}

// Finance aggregates the ledger over r and returns one page of its rows.
func (c *Collector) Finance(ctx context.Context, s *session.Session, r calculator.Range, page int) (*model.FinanceMetrics, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	rows, err := c.Backend.GetFinanceTransactions(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("fetch finance transactions: %w", err)
	}

	inRange := calculator.FilterByRange(rows, r)
	if dropped := len(rows) - len(inRange); dropped > 0 {
		c.log.Debug().Int("dropped", dropped).Str("range", r.Label()).Msg("finance rows outside range")
	}
	entries, served, total := calculator.Paginate(inRange, page, calculator.DefaultPageSize)

	return &model.FinanceMetrics{
		From:       r.From,
		To:         r.To,
		CashFlow:   calculator.Totals(inRange),
		Variance:   calculator.Variances(inRange),
		Categories: calculator.CategoryBreakdown(inRange),
		Entries:    entries,
		Page:       served,
		TotalPages: total,
	}, nil
}

// MonthToDate is Finance over the current month up to today.
func (c *Collector) MonthToDate(ctx context.Context, s *session.Session) (*model.FinanceMetrics, error) {
	return c.Finance(ctx, s, calculator.MonthToDate(c.Now(), c.Loc), 1)
}

// Trend returns the trailing months of income and expense, oldest first.
func (c *Collector) Trend(ctx context.Context, s *session.Session, months int) ([]model.MonthTrend, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if months < 1 || months > calculator.MaxTrendMonths {
		return nil, &InputError{Field: "months", Reason: fmt.Sprintf("must be between 1 and %d", calculator.MaxTrendMonths)}
	}
	rows, err := c.Backend.GetFinanceTransactions(ctx, s.Email)
	if err != nil {
		return nil, fmt.Errorf("fetch finance transactions: %w", err)
	}
	return calculator.MonthlyTrend(rows, c.Now(), months, c.Loc), nil
}

// Unread returns the unread notifications. It never logs transport failures.
func (c *Collector) Unread(ctx context.Context, s *session.Session) ([]model.Notification, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	all, err := c.Backend.GetNotifications(ctx, s.Email)
	if err != nil {
		return nil, err
	}
	unread := make([]model.Notification, 0, len(all))
	for _, n := range all {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// QuoteInsight fetches a quote and its daily history and computes price indicators.
// A missing history degrades to indicators over no data.
func (c *Collector) QuoteInsight(ctx context.Context, symbol string) (*model.QuoteInsight, error) {
	q, err := c.Backend.GetStockData(ctx, symbol)
	if err != nil {
		return nil, err
	}
	history, err := c.Backend.GetStockHistory(ctx, q.Symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("price history unavailable")
		history = nil
	}
	in := calculator.Insight(*q, history)
	return &in, nil
}
