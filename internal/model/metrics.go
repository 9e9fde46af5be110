package model

import "time"

// PositionMetrics holds display-ready figures for one holding.
type PositionMetrics struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
	Cost         float64 `json:"cost"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
	PnLPct       float64 `json:"pnlPct"`
}

// TradeRowMetrics is a history row with its P&L. Realized is true for SELL rows.
type TradeRowMetrics struct {
	Transaction
	HasPnL    bool    `json:"hasPnl"`
	Realized  bool    `json:"realized"`
	RowPnL    float64 `json:"rowPnl"`
	RowPnLPct float64 `json:"rowPnlPct"`
}

// PortfolioMetrics is the dashboard view of a profile.
type PortfolioMetrics struct {
	Email           string            `json:"email"`
	Balance         float64           `json:"balance"`
	TotalAssets     float64           `json:"totalAssets"`
	StockValue      float64           `json:"stockValue"`
	CashWeight      float64           `json:"cashWeight"`
	StockWeight     float64           `json:"stockWeight"`
	TotalInvestment float64           `json:"totalInvestment"`
	RealizedPnL     float64           `json:"realizedPnL"`
	RealizedPct     float64           `json:"realizedPct"`
	UnrealizedPnL   float64           `json:"unrealizedPnL"`
	TotalFees       float64           `json:"totalFees"`
	FeePct          float64           `json:"feePct"`
	Positions       []PositionMetrics `json:"positions"`
	RecentTrades    []TradeRowMetrics `json:"recentTrades"`
	FetchedAt       time.Time         `json:"fetchedAt"`
}

// CashFlow is income/expense aggregation over a set of finance rows.
type CashFlow struct {
	Inflow      float64 `json:"inflow"`
	Outflow     float64 `json:"outflow"`
	Salary      float64 `json:"salary"`
	Business    float64 `json:"business"`
	OtherIncome float64 `json:"otherIncome"`
	Balance     float64 `json:"balance"`
	BurnRate    float64 `json:"burnRate"`
	Count       int     `json:"count"`
}

// VarianceSummary totals planned vs actual per type. Variance follows the sign convention:
// positive means better than plan.
type VarianceSummary struct {
	IncomeProjected  float64 `json:"incomeProjected"`
	IncomeActual     float64 `json:"incomeActual"`
	IncomeVariance   float64 `json:"incomeVariance"`
	ExpenseProjected float64 `json:"expenseProjected"`
	ExpenseActual    float64 `json:"expenseActual"`
	ExpenseVariance  float64 `json:"expenseVariance"`
}

// FinanceMetrics is the finance dashboard for one date window.
type FinanceMetrics struct {
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	CashFlow   CashFlow             `json:"cashFlow"`
	Variance   VarianceSummary      `json:"variance"`
	Categories []CategoryAmount     `json:"categories"`
	Entries    []FinanceTransaction `json:"entries"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"totalPages"`
}

// MonthTrend is one calendar month of a trailing trend.
type MonthTrend struct {
	Month         time.Time `json:"month"` // first day of the month
	Label         string    `json:"label"` // 2006-01
	Income        float64   `json:"income"`
	Expense       float64   `json:"expense"`
	Profit        float64   `json:"profit"`
	BurnRate      float64   `json:"burnRate"`
	IncomeGrowth  float64   `json:"incomeGrowth"`
	ExpenseGrowth float64   `json:"expenseGrowth"`
	ProfitGrowth  float64   `json:"profitGrowth"`
}

// HealthTier labels overall financial health.
type HealthTier struct {
	Label   string  `json:"label"`
	MaxBurn float64 `json:"maxBurn"`
}

// HealthSignal is the output of the strategy evaluation.
type HealthSignal struct {
	Tier       HealthTier `json:"tier"`
	BurnRate   float64    `json:"burnRate"`
	CashWeight float64    `json:"cashWeight"`
	Warnings   []string   `json:"warnings,omitempty"`
}
