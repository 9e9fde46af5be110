package server

import (
	"net/http"
	"strconv"

	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/model"

	"github.com/go-chi/chi/v5"
)

// GET /api/portfolio
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	m, err := s.col.Portfolio(s.callCtx(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, m)
}

// GET /api/holdings
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.backend.GetHoldings(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, holdings)
}

// handleHistory returns every history row with its P&L.
// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.col.TradeHistory(s.callCtx(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, rows)
}

// DELETE /api/history/{id}
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.DeleteTransaction(s.callCtx(), sessionFrom(r).Email, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleRecentTrades returns the newest rows, limit defaulting to the dashboard's five.
// GET /api/trades/recent?limit=
func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := collector.DefaultRecentTrades
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, &badRequest{msg: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	rows, err := s.col.TradeHistory(s.callCtx(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	s.writeJSON(w, r, http.StatusOK, rows)
}

// GET /api/quotes/{symbol}
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.backend.GetStockData(s.callCtx(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, q)
}

// GET /api/quotes/{symbol}/history
func (s *Server) handleQuoteHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.backend.GetStockHistory(s.callCtx(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, points)
}

// GET /api/quotes/{symbol}/insight
func (s *Server) handleQuoteInsight(w http.ResponseWriter, r *http.Request) {
	in, err := s.col.QuoteInsight(s.callCtx(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, in)
}

// POST /api/prices/refresh
func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.RefreshStockPrices(s.callCtx())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// POST /api/orders
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var order model.OrderRequest
	if err := decodeBody(w, r, &order); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.backend.PlaceOrder(s.callCtx(), sessionFrom(r).Email, order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// POST /api/wallet/deposit
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.backend.Deposit(s.callCtx(), sessionFrom(r).Email, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleAdjust applies a signed balance correction.
// POST /api/wallet/adjust
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.backend.AdjustBalance(s.callCtx(), sessionFrom(r).Email, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// GET /api/wallet/deposits
func (s *Server) handleDeposits(w http.ResponseWriter, r *http.Request) {
	list, err := s.col.Deposits(s.callCtx(), sessionFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, list)
}

// handleNotifications returns every notification plus the unread count.
// GET /api/notifications
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	all, err := s.backend.GetNotifications(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	unread := 0
	for _, n := range all {
		if !n.IsRead {
			unread++
		}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"notifications": all, "unread": unread})
}

// POST /api/notifications/read
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.MarkNotificationsRead(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}
