package recorder

import (
	"time"

	"StockSimDesk/internal/model"
)

// PortfolioSnapshot holds the dashboard figures at digest time.
type PortfolioSnapshot struct {
	Metrics *model.PortfolioMetrics
	Health  *model.HealthSignal // optional
}

// CashFlowSnapshot holds the cash flow of one period.
type CashFlowSnapshot struct {
	Period   string // e.g. 2024-03-01..2024-03-15 or 2024-03
	CashFlow model.CashFlow
	Variance model.VarianceSummary
	Tier     string
}

// NotificationEvent records a notification relayed to the chat.
type NotificationEvent struct {
	NotificationID string
	Title          string
	Delivered      bool
}

// CallEvent records one backend call.
type CallEvent struct {
	RequestID string
	Action    string
	Target    string
	Attempts  int
	OK        bool
	Duration  time.Duration
	Err       string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordPortfolio(snap *PortfolioSnapshot) error
	RecordCashFlow(snap *CashFlowSnapshot) error
	RecordNotification(evt *NotificationEvent) error
	RecordCall(evt *CallEvent) error
	Close() error
}
