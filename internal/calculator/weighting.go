package calculator

// CashWeight returns balance as a percentage of totalAssets, clamped to [0,100].
// An empty account (totalAssets <= 0) is all cash.
func CashWeight(balance, totalAssets float64) float64 {
	if totalAssets <= 0 {
		return 100
	}
	return clampPct(balance / totalAssets * 100)
}

// StockWeight is the complement of CashWeight.
func StockWeight(balance, totalAssets float64) float64 {
	return 100 - CashWeight(balance, totalAssets)
}

// StockValue is the market value of holdings implied by the profile totals.
func StockValue(balance, totalAssets float64) float64 {
	return totalAssets - balance
}

// RatioPct returns part/whole*100, or 0 when whole is not positive.
func RatioPct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// RealizedPct is realized P&L relative to the capital deposited.
func RealizedPct(realizedPnL, totalInvestment float64) float64 {
	return RatioPct(realizedPnL, totalInvestment)
}

// FeePct is total fees relative to the capital deposited.
func FeePct(totalFees, totalInvestment float64) float64 {
	return RatioPct(totalFees, totalInvestment)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
