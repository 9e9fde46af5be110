package calculator

import (
	"math"
	"sort"
	"strings"

	"StockSimDesk/internal/model"

	"github.com/shopspring/decimal"
)

// Income categories broken out on the finance dashboard.
const (
	CategorySalary   = "Lương"
	CategoryBusiness = "Kinh doanh"
)

// money converts f to a decimal. Non-finite values count as zero.
func money(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Totals sums the effective amount of each row by type. Rows of unknown type are ignored.
func Totals(rows []model.FinanceTransaction) model.CashFlow {
	var inflow, outflow, salary, business decimal.Decimal
	count := 0
	for _, t := range rows {
		amt := money(t.EffectiveAmount())
		switch t.Kind() {
		case model.Income:
			inflow = inflow.Add(amt)
			switch strings.TrimSpace(t.Category) {
			case CategorySalary:
				salary = salary.Add(amt)
			case CategoryBusiness:
				business = business.Add(amt)
			}
		case model.Expense:
			outflow = outflow.Add(amt)
		default:
			continue
		}
		count++
	}

	in := inflow.InexactFloat64()
	out := outflow.InexactFloat64()
	return model.CashFlow{
		Inflow:      in,
		Outflow:     out,
		Salary:      salary.InexactFloat64(),
		Business:    business.InexactFloat64(),
		OtherIncome: inflow.Sub(salary).Sub(business).InexactFloat64(),
		Balance:     inflow.Sub(outflow).InexactFloat64(),
		BurnRate:    BurnRate(in, out),
		Count:       count,
	}
}

// BurnRate is outflow as a percentage of inflow. With no inflow it is 100 when
// anything was spent and 0 otherwise.
func BurnRate(inflow, outflow float64) float64 {
	if inflow == 0 {
		if outflow > 0 {
			return 100
		}
		return 0
	}
	return outflow / inflow * 100
}

// Variance is positive when the actual amount beat the plan: income above
// projection, or expense below budget.
func Variance(t model.FinanceType, projected, actual float64) float64 {
	if t == model.Expense {
		return projected - actual
	}
	return actual - projected
}

// Variances totals projected and actual amounts per type.
func Variances(rows []model.FinanceTransaction) model.VarianceSummary {
	var incP, incA, expP, expA decimal.Decimal
	for _, t := range rows {
		p := money(t.PlannedAmount())
		a := money(t.EffectiveAmount())
		switch t.Kind() {
		case model.Income:
			incP, incA = incP.Add(p), incA.Add(a)
		case model.Expense:
			expP, expA = expP.Add(p), expA.Add(a)
		}
	}
	s := model.VarianceSummary{
		IncomeProjected:  incP.InexactFloat64(),
		IncomeActual:     incA.InexactFloat64(),
		ExpenseProjected: expP.InexactFloat64(),
		ExpenseActual:    expA.InexactFloat64(),
	}
	s.IncomeVariance = Variance(model.Income, s.IncomeProjected, s.IncomeActual)
	s.ExpenseVariance = Variance(model.Expense, s.ExpenseProjected, s.ExpenseActual)
	return s
}

// CategoryBreakdown totals expenses per category, largest first, ties by name.
func CategoryBreakdown(rows []model.FinanceTransaction) []model.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, t := range rows {
		if t.Kind() != model.Expense {
			continue
		}
		name := strings.TrimSpace(t.Category)
		if name == "" {
			name = "Other"
		}
		sums[name] = sums[name].Add(money(t.EffectiveAmount()))
	}
	out := make([]model.CategoryAmount, 0, len(sums))
	for name, sum := range sums {
		out = append(out, model.CategoryAmount{Name: name, Amount: sum.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
