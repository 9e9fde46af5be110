package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/model"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Caller issues one backend action. *gateway.Gateway satisfies it.
type Caller interface {
	Call(ctx context.Context, action string, payload map[string]any, target gateway.Target, opts gateway.Options) json.RawMessage
}

// InputError reports a request rejected before it reached the backend.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

// IsInput reports whether err is an *InputError.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Client implements Backend on top of the script endpoints.
type Client struct {
	caller Caller
	quotes *cache.Cache
	log    zerolog.Logger
}

// NewClient creates a Client. Quotes are cached for quoteTTL; zero disables caching.
func NewClient(caller Caller, quoteTTL time.Duration, log zerolog.Logger) *Client {
	c := &Client{
		caller: caller,
		log:    log.With().Str("component", "client").Logger(),
	}
	if quoteTTL > 0 {
		c.quotes = cache.New(quoteTTL, 2*quoteTTL)
	}
	return c
}

var _ Backend = (*Client)(nil)

func (c *Client) call(ctx context.Context, action string, payload map[string]any, target gateway.Target) json.RawMessage {
	return c.caller.Call(ctx, action, payload, target, gateway.Options{})
}

// mutate issues a write action and applies the success convention.
func (c *Client) mutate(ctx context.Context, action string, payload map[string]any, target gateway.Target) (*model.ActionResult, error) {
	raw := c.call(ctx, action, payload, target)
	if err := gateway.CheckSuccess(action, raw); err != nil {
		return nil, err
	}
	res, err := gateway.Decode[model.ActionResult](action, raw, nil)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func emailPayload(email string) map[string]any {
	return map[string]any{"email": email}
}

// ---- trading ----

func (c *Client) GetProfile(ctx context.Context, email string) (*model.Profile, error) {
	raw := c.call(ctx, "getProfile", emailPayload(email), gateway.TargetTrading)
	p, err := gateway.Decode("getProfile", raw, func(p *model.Profile) error {
		return checkHoldings(p.Holdings)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetHoldings(ctx context.Context, email string) ([]model.Holding, error) {
	raw := c.call(ctx, "getHoldings", emailPayload(email), gateway.TargetTrading)
	return gateway.Decode("getHoldings", raw, func(h *[]model.Holding) error {
		return checkHoldings(*h)
	})
}

func checkHoldings(holdings []model.Holding) error {
	for i, h := range holdings {
		if strings.TrimSpace(h.Symbol) == "" {
			return fmt.Errorf("holding %d has no symbol", i)
		}
		if h.Quantity < 0 {
			return fmt.Errorf("holding %s has negative quantity", h.Symbol)
		}
	}
	return nil
}

func (c *Client) GetHistory(ctx context.Context, email string) ([]model.Transaction, error) {
	raw := c.call(ctx, "getHistory", emailPayload(email), gateway.TargetTrading)
	return gateway.Decode[[]model.Transaction]("getHistory", raw, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, email, id string) (*model.ActionResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &InputError{Field: "id", Reason: "required"}
	}
	return c.mutate(ctx, "deleteTransaction", map[string]any{"email": email, "id": id}, gateway.TargetTrading)
}

// GetStockData returns a quote, served from the cache when fresh.
func (c *Client) GetStockData(ctx context.Context, symbol string) (*model.StockQuote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, &InputError{Field: "symbol", Reason: "required"}
	}
	if c.quotes != nil {
		if v, ok := c.quotes.Get(symbol); ok {
			q := v.(model.StockQuote)
			return &q, nil
		}
	}

	raw := c.call(ctx, "getStockData", map[string]any{"symbol": symbol}, gateway.TargetTrading)
	q, err := gateway.Decode("getStockData", raw, func(q *model.StockQuote) error {
		if q.Symbol == "" {
			return errors.New("quote has no symbol")
		}
		if q.Price < 0 {
			return errors.New("negative price")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.quotes != nil {
		c.quotes.SetDefault(symbol, q)
	}
	return &q, nil
}

func (c *Client) GetStockHistory(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, &InputError{Field: "symbol", Reason: "required"}
	}
	raw := c.call(ctx, "getStockHistory", map[string]any{"symbol": symbol}, gateway.TargetTrading)
	res, err := gateway.Decode[struct {
		History []model.PricePoint `json:"history"`
	}]("getStockHistory", raw, nil)
	if err != nil {
		return nil, err
	}
	if res.History == nil {
		return []model.PricePoint{}, nil
	}
	return res.History, nil
}

// ValidateOrder normalizes and checks an order before submission.
func ValidateOrder(o model.OrderRequest) (model.OrderRequest, error) {
	o.Symbol = NormalizeSymbol(o.Symbol)
	o.Side = model.Side(strings.ToUpper(string(o.Side)))
	o.Type = model.OrderType(strings.ToUpper(string(o.Type)))
	switch {
	case o.Symbol == "":
		return o, &InputError{Field: "symbol", Reason: "required"}
	case o.Quantity <= 0:
		return o, &InputError{Field: "quantity", Reason: "must be positive"}
	case o.Side != model.SideBuy && o.Side != model.SideSell:
		return o, &InputError{Field: "side", Reason: "must be BUY or SELL"}
	case o.Type != model.OrderLimit && o.Type != model.OrderMarket:
		return o, &InputError{Field: "type", Reason: "must be LO or MP"}
	case o.Type == model.OrderLimit && o.Price <= 0:
		return o, &InputError{Field: "price", Reason: "limit orders need a positive price"}
	case o.Price < 0:
		return o, &InputError{Field: "price", Reason: "must not be negative"}
	}
	return o, nil
}

func (c *Client) PlaceOrder(ctx context.Context, email string, order model.OrderRequest) (*model.ActionResult, error) {
	order, err := ValidateOrder(order)
	if err != nil {
		return nil, err
	}
	res, err := c.mutate(ctx, "placeOrder", map[string]any{
		"email":    email,
		"symbol":   order.Symbol,
		"quantity": order.Quantity,
		"type":     order.Type,
		"side":     order.Side,
		"price":    order.Price,
	}, gateway.TargetTrading)
	if err != nil {
		return nil, err
	}
	if c.quotes != nil {
		c.quotes.Delete(order.Symbol)
	}
	c.log.Info().Str("symbol", order.Symbol).Str("side", string(order.Side)).Float64("quantity", order.Quantity).Msg("order placed")
	return res, nil
}

func (c *Client) Deposit(ctx context.Context, email string, amount float64) (*model.ActionResult, error) {
	if amount <= 0 {
		return nil, &InputError{Field: "amount", Reason: "must be positive"}
	}
	return c.mutate(ctx, "deposit", map[string]any{"email": email, "amount": amount}, gateway.TargetTrading)
}

func (c *Client) AdjustBalance(ctx context.Context, email string, amount float64) (*model.ActionResult, error) {
	if amount == 0 {
		return nil, &InputError{Field: "amount", Reason: "must not be zero"}
	}
	return c.mutate(ctx, "adjustBalance", map[string]any{"email": email, "amount": amount}, gateway.TargetTrading)
}

// RefreshStockPrices asks the backend to re-pull prices and drops cached quotes.
func (c *Client) RefreshStockPrices(ctx context.Context) (*model.ActionResult, error) {
	res, err := c.mutate(ctx, "refreshStockPrices", nil, gateway.TargetTrading)
	if c.quotes != nil {
		c.quotes.Flush()
	}
	return res, err
}

// GetNotifications never logs failures; it runs on a short poll.
func (c *Client) GetNotifications(ctx context.Context, email string) ([]model.Notification, error) {
	raw := c.caller.Call(ctx, "getNotifications", emailPayload(email), gateway.TargetTrading, gateway.Options{Silent: true})
	return gateway.Decode[[]model.Notification]("getNotifications", raw, nil)
}

func (c *Client) MarkNotificationsRead(ctx context.Context, email string) (*model.ActionResult, error) {
	return c.mutate(ctx, "markNotificationsRead", emailPayload(email), gateway.TargetTrading)
}

// ---- finance ----

func (c *Client) GetFinanceTransactions(ctx context.Context, email string) ([]model.FinanceTransaction, error) {
	raw := c.call(ctx, "getFinanceTransactions", emailPayload(email), gateway.TargetFinance)
	return gateway.Decode[[]model.FinanceTransaction]("getFinanceTransactions", raw, nil)
}

// ValidateEntry normalizes and checks a ledger entry.
func ValidateEntry(e model.FinanceEntry) (model.FinanceEntry, error) {
	e.Type = model.ParseFinanceType(string(e.Type))
	e.Category = strings.TrimSpace(e.Category)
	switch {
	case e.Type == "":
		return e, &InputError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	case e.Amount <= 0:
		return e, &InputError{Field: "amount", Reason: "must be positive"}
	case e.Projected < 0:
		return e, &InputError{Field: "projected", Reason: "must not be negative"}
	}
	return e, nil
}

func entryPayload(email string, e model.FinanceEntry) map[string]any {
	p := map[string]any{
		"email":       email,
		"amount":      e.Amount,
		"type":        e.Type,
		"category":    e.Category,
		"description": e.Description,
		"source":      e.Source,
	}
	if e.Projected > 0 {
		p["projected"] = e.Projected
	}
	if e.Date != "" {
		p["date"] = e.Date
	}
	return p
}

func (c *Client) AddManualTransaction(ctx context.Context, email string, entry model.FinanceEntry) (*model.ActionResult, error) {
	entry, err := ValidateEntry(entry)
	if err != nil {
		return nil, err
	}
	return c.mutate(ctx, "addManualTransaction", entryPayload(email, entry), gateway.TargetFinance)
}

func (c *Client) UpdateFinanceTransaction(ctx context.Context, email, id string, entry model.FinanceEntry) (*model.ActionResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &InputError{Field: "id", Reason: "required"}
	}
	entry, err := ValidateEntry(entry)
	if err != nil {
		return nil, err
	}
	p := entryPayload(email, entry)
	p["id"] = id
	return c.mutate(ctx, "updateFinanceTransaction", p, gateway.TargetFinance)
}

func (c *Client) DeleteFinanceTransaction(ctx context.Context, email, id string) (*model.ActionResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &InputError{Field: "id", Reason: "required"}
	}
	return c.mutate(ctx, "deleteFinanceTransaction", map[string]any{"email": email, "id": id}, gateway.TargetFinance)
}

func (c *Client) SyncGmailReceipts(ctx context.Context, email string) (*model.ActionResult, error) {
	return c.mutate(ctx, "syncGmailReceipts", emailPayload(email), gateway.TargetFinance)
}

func (c *Client) CheckGmailConnection(ctx context.Context, email string) (*model.GmailStatus, error) {
	raw := c.call(ctx, "checkGmailConnection", emailPayload(email), gateway.TargetFinance)
	st, err := gateway.Decode[model.GmailStatus]("checkGmailConnection", raw, nil)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetGoogleAuthURL(ctx context.Context, email string) (string, error) {
	raw := c.call(ctx, "getGoogleAuthUrl", emailPayload(email), gateway.TargetFinance)
	res, err := gateway.Decode("getGoogleAuthUrl", raw, func(r *struct {
		URL string `json:"url"`
	}) error {
		if r.URL == "" {
			return errors.New("missing url")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func (c *Client) GetFinanceSummary(ctx context.Context, email string) (*model.FinanceSummary, error) {
	raw := c.call(ctx, "getFinanceSummary", emailPayload(email), gateway.TargetFinance)
	s, err := gateway.Decode[model.FinanceSummary]("getFinanceSummary", raw, nil)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ---- account ----

func (c *Client) Login(ctx context.Context, email, password string) (*model.ActionResult, error) {
	return c.mutate(ctx, "login", map[string]any{"email": email, "password": password}, gateway.TargetTrading)
}

func (c *Client) Register(ctx context.Context, email, password, otp string) (*model.ActionResult, error) {
	return c.mutate(ctx, "register", map[string]any{"email": email, "password": password, "otp": otp}, gateway.TargetTrading)
}

// SendOTP requests a one-time code. purpose is "register" or "reset".
func (c *Client) SendOTP(ctx context.Context, email, purpose string) (*model.ActionResult, error) {
	return c.mutate(ctx, "sendOTP", map[string]any{"email": email, "type": purpose}, gateway.TargetTrading)
}

func (c *Client) ResetPassword(ctx context.Context, email, password, otp string) (*model.ActionResult, error) {
	return c.mutate(ctx, "resetPassword", map[string]any{"email": email, "password": password, "otp": otp}, gateway.TargetTrading)
}

func (c *Client) SubmitUpgradeRequest(ctx context.Context, email string, req model.UpgradeRequest) (*model.ActionResult, error) {
	if strings.TrimSpace(req.Method) == "" {
		return nil, &InputError{Field: "method", Reason: "required"}
	}
	return c.mutate(ctx, "submitUpgradeRequest", map[string]any{"email": email, "method": req.Method}, gateway.TargetTrading)
}
