package collector

import (
	"context"

	"StockSimDesk/internal/model"
)

// TradingBackend covers the actions served by the trading endpoint.
type TradingBackend interface {
	GetProfile(ctx context.Context, email string) (*model.Profile, error)
	GetHoldings(ctx context.Context, email string) ([]model.Holding, error)
	GetHistory(ctx context.Context, email string) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, email, id string) (*model.ActionResult, error)
	GetStockData(ctx context.Context, symbol string) (*model.StockQuote, error)
	GetStockHistory(ctx context.Context, symbol string) ([]model.PricePoint, error)
	PlaceOrder(ctx context.Context, email string, order model.OrderRequest) (*model.ActionResult, error)
	Deposit(ctx context.Context, email string, amount float64) (*model.ActionResult, error)
	AdjustBalance(ctx context.Context, email string, amount float64) (*model.ActionResult, error)
	RefreshStockPrices(ctx context.Context) (*model.ActionResult, error)
	GetNotifications(ctx context.Context, email string) ([]model.Notification, error)
	MarkNotificationsRead(ctx context.Context, email string) (*model.ActionResult, error)
}

// FinanceBackend covers the actions served by the finance endpoint.
type FinanceBackend interface {
	GetFinanceTransactions(ctx context.Context, email string) ([]model.FinanceTransaction, error)
	AddManualTransaction(ctx context.Context, email string, entry model.FinanceEntry) (*model.ActionResult, error)
	UpdateFinanceTransaction(ctx context.Context, email, id string, entry model.FinanceEntry) (*model.ActionResult, error)
	DeleteFinanceTransaction(ctx context.Context, email, id string) (*model.ActionResult, error)
	SyncGmailReceipts(ctx context.Context, email string) (*model.ActionResult, error)
	CheckGmailConnection(ctx context.Context, email string) (*model.GmailStatus, error)
	GetGoogleAuthURL(ctx context.Context, email string) (string, error)
	GetFinanceSummary(ctx context.Context, email string) (*model.FinanceSummary, error)
}

// AccountBackend covers authentication and plan actions.
type AccountBackend interface {
	Login(ctx context.Context, email, password string) (*model.ActionResult, error)
	Register(ctx context.Context, email, password, otp string) (*model.ActionResult, error)
	SendOTP(ctx context.Context, email, purpose string) (*model.ActionResult, error)
	ResetPassword(ctx context.Context, email, password, otp string) (*model.ActionResult, error)
	SubmitUpgradeRequest(ctx context.Context, email string, req model.UpgradeRequest) (*model.ActionResult, error)
}

// Backend is the full action catalog.
type Backend interface {
	TradingBackend
	FinanceBackend
	AccountBackend
}
