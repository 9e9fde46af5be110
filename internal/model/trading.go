package model

import "strings"

// Side is the direction of a trading-ledger row.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideDeposit Side = "DEPOSIT"
)

// OrderType is limit (LO) or market (MP).
type OrderType string

const (
	OrderLimit  OrderType = "LO"
	OrderMarket OrderType = "MP"
)

// DepositSymbol marks wallet deposits in the trade history.
const DepositSymbol = "DEPOSIT"

// Transaction is one row of the trading history, owned by the backend.
type Transaction struct {
	ID       string    `json:"id,omitempty"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Type     OrderType `json:"type,omitempty"`
	Quantity Number    `json:"quantity"`
	Price    Number    `json:"price"`
	Total    Number    `json:"total"`
	Fee      Number    `json:"fee,omitempty"`
	Date     string    `json:"date"`
	PnL      *Number   `json:"pnl,omitempty"`
}

// When returns the raw date string.
func (t Transaction) When() string { return t.Date }

// IsDeposit reports whether the row is a wallet deposit rather than a trade.
func (t Transaction) IsDeposit() bool {
	return strings.EqualFold(t.Symbol, DepositSymbol) || strings.EqualFold(string(t.Side), string(SideDeposit))
}

// Holding is a position the user still holds.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Quantity     Number  `json:"quantity"`
	AvgPrice     Number  `json:"avgPrice"`
	CurrentPrice *Number `json:"currentPrice,omitempty"`
	Value        *Number `json:"value,omitempty"`
	PnL          *Number `json:"pnl,omitempty"`
	PnLPct       *Number `json:"pnlPct,omitempty"`
}

// Profile is the account snapshot returned by getProfile.
type Profile struct {
	Email           string        `json:"email"`
	Balance         Number        `json:"balance"`
	TotalAssets     Number        `json:"totalAssets"`
	TotalInvestment Number        `json:"totalInvestment"`
	RealizedPnL     Number        `json:"realizedPnL"`
	UnrealizedPnL   Number        `json:"unrealizedPnL"`
	TotalPnL        Number        `json:"totalPnL"`
	TotalFees       Number        `json:"totalFees"`
	Holdings        []Holding     `json:"holdings"`
	RecentHistory   []Transaction `json:"recentHistory,omitempty"`
	Plan            string        `json:"plan,omitempty"`
}

// StockQuote is the getStockData reply.
type StockQuote struct {
	Symbol    string `json:"symbol"`
	Price     Number `json:"price"`
	Change    Number `json:"change"`
	PctChange Number `json:"pctChange"`
	High      Number `json:"high"`
	Low       Number `json:"low"`
	Volume    Number `json:"volume"`
}

// PricePoint is one row of getStockHistory.
type PricePoint struct {
	Date  string `json:"date"`
	Price Number `json:"price"`
}

// OrderRequest is the placeOrder payload.
type OrderRequest struct {
	Symbol   string    `json:"symbol"`
	Quantity float64   `json:"quantity"`
	Type     OrderType `json:"type"`
	Side     Side      `json:"side"`
	Price    float64   `json:"price"`
}

// Notification is an in-app message from the trading backend.
type Notification struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Date    string `json:"date"`
	IsRead  bool   `json:"isRead"`
}
