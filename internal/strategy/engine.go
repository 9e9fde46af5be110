package strategy

import "StockSimDesk/internal/model"

// Tiers maps the burn rate (expense as a share of income) to a health label.
var Tiers = []model.HealthTier{
	{Label: "SAVING", MaxBurn: 50},
	{Label: "BALANCED", MaxBurn: 80},
	{Label: "TIGHT", MaxBurn: 100},
}

// DefaultTier applies above the last tier. MaxBurn is 0 because it has no upper bound.
var DefaultTier = model.HealthTier{Label: "OVERSPENDING"}

// mapTier maps a burn rate to a HealthTier.
func mapTier(burnRate float64) model.HealthTier {
	for _, t := range Tiers {
		if burnRate <= t.MaxBurn {
			return t
		}
	}
	return DefaultTier
}

// Evaluate computes the health signal for a period's cash flow and, when
// available, the current portfolio.
func Evaluate(p *model.PortfolioMetrics, cf model.CashFlow) *model.HealthSignal {
	sig := &model.HealthSignal{
		Tier:     mapTier(cf.BurnRate),
		BurnRate: cf.BurnRate,
	}
	if p != nil {
		sig.CashWeight = p.CashWeight
	}

	for _, check := range checks {
		if msg := check(p, cf); msg != "" {
			sig.Warnings = append(sig.Warnings, msg)
		}
	}
	return sig
}
