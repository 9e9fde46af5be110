package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"StockSimDesk/internal/calculator"
	"StockSimDesk/internal/model"
	"StockSimDesk/internal/scheduler"
	"StockSimDesk/internal/strategy"

	"github.com/go-chi/chi/v5"
)

const dayLayout = "2006-01-02"

// financeRange reads start/end (YYYY-MM-DD) from the query. Missing bounds
// default to the first of the current month and today.
func (s *Server) financeRange(r *http.Request) (calculator.Range, error) {
	loc := s.col.Loc
	def := calculator.MonthToDate(s.col.Now(), loc)
	from, to := def.From, def.To

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		t, err := time.ParseInLocation(dayLayout, v, loc)
		if err != nil {
			return calculator.Range{}, &badRequest{msg: "start must be YYYY-MM-DD"}
		}
		from = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.ParseInLocation(dayLayout, v, loc)
		if err != nil {
			return calculator.Range{}, &badRequest{msg: "end must be YYYY-MM-DD"}
		}
		to = t
	}
	if to.Before(from) {
		return calculator.Range{}, &badRequest{msg: "end is before start"}
	}
	return calculator.NewRange(from, to, loc), nil
}

type financeView struct {
	*model.FinanceMetrics
	Health *model.HealthSignal `json:"health"`
}

// handleFinance aggregates the ledger over a date window and returns one page of rows.
// GET /api/finance?start=&end=&page=
func (s *Server) handleFinance(w http.ResponseWriter, r *http.Request) {
	rng, err := s.financeRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			s.writeError(w, r, &badRequest{msg: "page must be an integer"})
			return
		}
	}
	f, err := s.col.Finance(s.callCtx(), sessionFrom(r), rng, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, financeView{FinanceMetrics: f, Health: strategy.Evaluate(nil, f.CashFlow)})
}

// GET /api/finance/trend?months=
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months := s.months
	if months <= 0 {
		months = scheduler.DefaultTrendMonths
	}
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > calculator.MaxTrendMonths {
			s.writeError(w, r, &badRequest{msg: fmt.Sprintf("months must be an integer between 1 and %d", calculator.MaxTrendMonths)})
			return
		}
		months = n
	}
	trend, err := s.col.Trend(s.callCtx(), sessionFrom(r), months)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, trend)
}

// GET /api/finance/summary
func (s *Server) handleFinanceSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.backend.GetFinanceSummary(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sum)
}

// POST /api/finance/transactions
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.FinanceEntry
	if err := decodeBody(w, r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.backend.AddManualTransaction(s.callCtx(), sessionFrom(r).Email, entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, res)
}

// PUT /api/finance/transactions/{id}
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var entry model.FinanceEntry
	if err := decodeBody(w, r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.backend.UpdateFinanceTransaction(s.callCtx(), sessionFrom(r).Email, chi.URLParam(r, "id"), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// DELETE /api/finance/transactions/{id}
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.DeleteFinanceTransaction(s.callCtx(), sessionFrom(r).Email, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleGmailSync imports bank receipts from the linked mailbox.
// POST /api/finance/sync
func (s *Server) handleGmailSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.SyncGmailReceipts(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// GET /api/finance/gmail
func (s *Server) handleGmailStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.CheckGmailConnection(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, st)
}

// GET /api/finance/gmail/auth-url
func (s *Server) handleGmailAuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.backend.GetGoogleAuthURL(s.callCtx(), sessionFrom(r).Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"url": url})
}
