package calculator

import (
	"strings"

	"StockSimDesk/internal/model"
)

// CurrentPrice is the holding's current price, falling back to the average price
// when the backend sent none (zero P&L assumed).
func CurrentPrice(h model.Holding) float64 {
	if h.CurrentPrice != nil && h.CurrentPrice.Float() != 0 {
		return h.CurrentPrice.Float()
	}
	return h.AvgPrice.Float()
}

// PositionValue is h.Value when present, otherwise quantity × current price.
func PositionValue(h model.Holding) float64 {
	if h.Value != nil && h.Value.Float() != 0 {
		return h.Value.Float()
	}
	return h.Quantity.Float() * CurrentPrice(h)
}

// PositionCost is quantity × average price.
func PositionCost(h model.Holding) float64 {
	return h.Quantity.Float() * h.AvgPrice.Float()
}

// PositionPnL prefers the backend's pnl, else value − cost.
func PositionPnL(h model.Holding) float64 {
	if h.PnL != nil {
		return h.PnL.Float()
	}
	return PositionValue(h) - PositionCost(h)
}

// PositionPnLPct prefers the backend's pnlPct, else the price change against avgPrice.
func PositionPnLPct(h model.Holding) float64 {
	if h.PnLPct != nil {
		return h.PnLPct.Float()
	}
	avg := h.AvgPrice.Float()
	if avg == 0 {
		return 0
	}
	return (CurrentPrice(h) - avg) / avg * 100
}

// Positions derives display metrics for every holding.
func Positions(holdings []model.Holding) []model.PositionMetrics {
	out := make([]model.PositionMetrics, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, model.PositionMetrics{
			Symbol:       h.Symbol,
			Quantity:     h.Quantity.Float(),
			AvgPrice:     h.AvgPrice.Float(),
			CurrentPrice: CurrentPrice(h),
			Cost:         PositionCost(h),
			Value:        PositionValue(h),
			PnL:          PositionPnL(h),
			PnLPct:       PositionPnLPct(h),
		})
	}
	return out
}

// FindHolding returns the holding for symbol (case-insensitive).
func FindHolding(holdings []model.Holding, symbol string) (model.Holding, bool) {
	for _, h := range holdings {
		if strings.EqualFold(h.Symbol, symbol) {
			return h, true
		}
	}
	return model.Holding{}, false
}

// TradeRowPnL computes the P&L shown next to a history row.
// BUY rows are marked to market against the matching holding's current price
// (execution price when no holding matches); SELL rows use the realized pnl the
// backend reported. ok is false for rows that carry no P&L.
func TradeRowPnL(tx model.Transaction, holdings []model.Holding) (pnl, pct float64, ok bool) {
	if tx.IsDeposit() {
		return 0, 0, false
	}
	price := tx.Price.Float()
	qty := tx.Quantity.Float()

	switch model.Side(strings.ToUpper(string(tx.Side))) {
	case model.SideBuy:
		current := price
		if h, found := FindHolding(holdings, tx.Symbol); found && h.CurrentPrice != nil && h.CurrentPrice.Float() != 0 {
			current = h.CurrentPrice.Float()
		}
		pnl = (current - price) * qty
		if price != 0 {
			pct = (current - price) / price * 100
		}
		return pnl, pct, true
	case model.SideSell:
		if tx.PnL == nil {
			return 0, 0, false
		}
		pnl = tx.PnL.Float()
		if cost := price * qty; cost != 0 {
			pct = pnl / cost * 100
		}
		return pnl, pct, true
	default:
		return 0, 0, false
	}
}

// TradeRows derives P&L for up to limit history rows (limit <= 0 means all).
func TradeRows(history []model.Transaction, holdings []model.Holding, limit int) []model.TradeRowMetrics {
	n := len(history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.TradeRowMetrics, 0, n)
	for _, tx := range history[:n] {
		pnl, pct, ok := TradeRowPnL(tx, holdings)
		out = append(out, model.TradeRowMetrics{
			Transaction: tx,
			HasPnL:      ok,
			Realized:    ok && strings.EqualFold(string(tx.Side), string(model.SideSell)),
			RowPnL:      pnl,
			RowPnLPct:   pct,
		})
	}
	return out
}

// Deposits keeps the history rows that are wallet deposits.
func Deposits(history []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, tx := range history {
		if tx.IsDeposit() {
			out = append(out, tx)
		}
	}
	return out
}
