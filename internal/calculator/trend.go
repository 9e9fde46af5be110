package calculator

import (
	"math"
	"time"

	"StockSimDesk/internal/model"
)

// MaxTrendMonths bounds the trailing window of a trend.
const MaxTrendMonths = 24

// Growth is the month-over-month change of current against previous, in percent.
// A zero base yields 100 when current is positive and 0 otherwise.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}

// MonthWindows returns the n calendar months ending with the month of now, oldest first.
func MonthWindows(now time.Time, n int, loc *time.Location) []Range {
	if n <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	out := make([]Range, n)
	for i := 0; i < n; i++ {
		out[i] = MonthRange(current.AddDate(0, i-(n-1), 0), loc)
	}
	return out
}

// MonthlyTrend sums income and expense per calendar month over the trailing n months
// and computes month-over-month growth. The month before the first window is used as
// the first month's base.
func MonthlyTrend(rows []model.FinanceTransaction, now time.Time, n int, loc *time.Location) []model.MonthTrend {
	windows := MonthWindows(now, n+1, loc)
	if len(windows) < 2 {
		return nil
	}

	flows := make([]model.CashFlow, len(windows))
	for i, w := range windows {
		flows[i] = Totals(FilterByRange(rows, w))
	}

	out := make([]model.MonthTrend, 0, n)
	for i := 1; i < len(windows); i++ {
		cur, prev := flows[i], flows[i-1]
		profit, prevProfit := cur.Inflow-cur.Outflow, prev.Inflow-prev.Outflow
		out = append(out, model.MonthTrend{
			Month:         windows[i].From,
			Label:         windows[i].From.Format("2006-01"),
			Income:        cur.Inflow,
			Expense:       cur.Outflow,
			Profit:        profit,
			BurnRate:      cur.BurnRate,
			IncomeGrowth:  Growth(cur.Inflow, prev.Inflow),
			ExpenseGrowth: Growth(cur.Outflow, prev.Outflow),
			ProfitGrowth:  Growth(profit, prevProfit),
		})
	}
	return out
}
