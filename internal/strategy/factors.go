package strategy

import (
	"fmt"

	"StockSimDesk/internal/model"
)

const (
	// IdleCashWeight is the cash share at or above which money counts as idle.
	IdleCashWeight = 90.0
	// LossThresholdPct is the unrealized loss, relative to invested capital, that raises a warning.
	LossThresholdPct = 10.0
)

type check func(p *model.PortfolioMetrics, cf model.CashFlow) string

var checks = []check{checkIdleCash, checkUnrealizedLoss, checkOverspending}

// checkIdleCash warns when nearly all assets sit in cash.
func checkIdleCash(p *model.PortfolioMetrics, _ model.CashFlow) string {
	if p == nil || p.TotalAssets <= 0 || p.CashWeight < IdleCashWeight {
		return ""
	}
	return fmt.Sprintf("Tiền mặt chiếm %.1f%% tài sản, vốn đang nhàn rỗi", p.CashWeight)
}

// checkUnrealizedLoss warns when open positions lose more than LossThresholdPct of invested capital.
func checkUnrealizedLoss(p *model.PortfolioMetrics, _ model.CashFlow) string {
	if p == nil || p.TotalInvestment <= 0 || p.UnrealizedPnL >= 0 {
		return ""
	}
	lossPct := -p.UnrealizedPnL / p.TotalInvestment * 100
	if lossPct <= LossThresholdPct {
		return ""
	}
	return fmt.Sprintf("Lỗ chưa chốt %.1f%% vốn đầu tư", lossPct)
}

// checkOverspending warns when expenses exceed income in the period.
func checkOverspending(_ *model.PortfolioMetrics, cf model.CashFlow) string {
	if cf.Outflow <= cf.Inflow {
		return ""
	}
	return fmt.Sprintf("Chi tiêu vượt thu nhập %.0f", cf.Outflow-cf.Inflow)
}
