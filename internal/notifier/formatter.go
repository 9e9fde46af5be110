package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"StockSimDesk/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
)

// strict strips every tag and escapes the rest, making text safe for HTML parse mode.
var strict = bluemonday.StrictPolicy()

// Sanitize makes backend-provided text safe to embed in an HTML message.
func Sanitize(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// FormatVND renders an amount as 1.300.000 ₫.
func FormatVND(v float64) string {
	return strings.ReplaceAll(humanize.Comma(int64(math.Round(v))), ",", ".") + " ₫"
}

// signedVND prefixes non-negative amounts with +.
func signedVND(v float64) string {
	if v >= 0 {
		return "+" + FormatVND(v)
	}
	return FormatVND(v)
}

func pnlIcon(v float64) string {
	if v >= 0 {
		return "🟢"
	}
	return "🔴"
}

// FormatPortfolio formats the dashboard metrics.
func FormatPortfolio(m *model.PortfolioMetrics) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Danh mục</b> | %s\n\n", m.FetchedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Tổng tài sản: %s\n", FormatVND(m.TotalAssets)))
	b.WriteString(fmt.Sprintf("Tiền mặt: %s (%.1f%%)\n", FormatVND(m.Balance), m.CashWeight))
	b.WriteString(fmt.Sprintf("Cổ phiếu: %s (%.1f%%)\n", FormatVND(m.StockValue), m.StockWeight))
	b.WriteString(fmt.Sprintf("Vốn đầu tư: %s\n", FormatVND(m.TotalInvestment)))
	b.WriteString(fmt.Sprintf("Lãi/lỗ đã chốt: %s (%+.2f%%)\n", signedVND(m.RealizedPnL), m.RealizedPct))
	b.WriteString(fmt.Sprintf("Lãi/lỗ tạm tính: %s\n", signedVND(m.UnrealizedPnL)))
	b.WriteString(fmt.Sprintf("Phí giao dịch: %s (%.2f%%)\n", FormatVND(m.TotalFees), m.FeePct))

	if len(m.Positions) > 0 {
		b.WriteString("\n📈 <b>Nắm giữ:</b>\n")
		for _, p := range m.Positions {
			b.WriteString(fmt.Sprintf("  %s %s ×%s @%s → %s (%+.2f%%)\n",
				pnlIcon(p.PnL), Sanitize(p.Symbol), humanize.Commaf(p.Quantity),
				FormatVND(p.CurrentPrice), signedVND(p.PnL), p.PnLPct))
		}
	}
	return b.String()
}

// FormatTrades formats history rows with their P&L.
func FormatTrades(rows []model.TradeRowMetrics) string {
	if len(rows) == 0 {
		return "📜 Chưa có giao dịch nào."
	}
	var b strings.Builder
	b.WriteString("📜 <b>Giao dịch gần đây</b>\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%s %s %s ×%s @%s",
			shortDate(r.Date), Sanitize(string(r.Side)), Sanitize(r.Symbol),
			humanize.Commaf(r.Quantity.Float()), FormatVND(r.Price.Float())))
		if r.HasPnL {
			tag := ""
			if r.Realized {
				tag = " đã chốt"
			}
			b.WriteString(fmt.Sprintf(" → %s (%+.2f%%)%s", signedVND(r.RowPnL), r.RowPnLPct, tag))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatDeposits formats wallet deposits.
func FormatDeposits(list []model.Transaction) string {
	if len(list) == 0 {
		return "💳 Chưa có lần nạp tiền nào."
	}
	var b strings.Builder
	total := 0.0
	b.WriteString("💳 <b>Lịch sử nạp tiền</b>\n\n")
	for _, tx := range list {
		total += tx.Total.Float()
		b.WriteString(fmt.Sprintf("%s  %s\n", shortDate(tx.Date), FormatVND(tx.Total.Float())))
	}
	b.WriteString(fmt.Sprintf("\nTổng: %s\n", FormatVND(total)))
	return b.String()
}

// FormatFinance formats the cash flow of one window.
func FormatFinance(m *model.FinanceMetrics, sig *model.HealthSignal) string {
	var b strings.Builder
	cf := m.CashFlow

	b.WriteString(fmt.Sprintf("💰 <b>Thu chi</b> | %s → %s\n\n", m.From.Format("02/01"), m.To.Format("02/01/2006")))
	b.WriteString(fmt.Sprintf("Thu: %s\n", FormatVND(cf.Inflow)))
	if cf.Salary > 0 || cf.Business > 0 {
		b.WriteString(fmt.Sprintf("  Lương %s | Kinh doanh %s | Khác %s\n",
			FormatVND(cf.Salary), FormatVND(cf.Business), FormatVND(cf.OtherIncome)))
	}
	b.WriteString(fmt.Sprintf("Chi: %s\n", FormatVND(cf.Outflow)))
	b.WriteString(fmt.Sprintf("Còn lại: %s\n", signedVND(cf.Balance)))
	b.WriteString(fmt.Sprintf("Tỷ lệ chi/thu: %.1f%%\n", cf.BurnRate))

	v := m.Variance
	if v.IncomeProjected > 0 || v.ExpenseProjected > 0 {
		b.WriteString(fmt.Sprintf("Chênh lệch kế hoạch: thu %s | chi %s\n",
			signedVND(v.IncomeVariance), signedVND(v.ExpenseVariance)))
	}

	if len(m.Categories) > 0 {
		b.WriteString("\n🧾 <b>Chi theo danh mục:</b>\n")
		for i, c := range m.Categories {
			if i == 5 {
				b.WriteString(fmt.Sprintf("  … và %d danh mục khác\n", len(m.Categories)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", Sanitize(c.Name), FormatVND(c.Amount)))
		}
	}

	if sig != nil {
		b.WriteString("\n")
		b.WriteString(FormatHealth(sig))
	}
	return b.String()
}

// FormatHealth formats the health tier and its warnings.
func FormatHealth(sig *model.HealthSignal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🩺 <b>Sức khỏe tài chính:</b> %s\n", sig.Tier.Label))
	for _, w := range sig.Warnings {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", Sanitize(w)))
	}
	return b.String()
}

// FormatTrend formats a trailing monthly trend, oldest first.
func FormatTrend(trend []model.MonthTrend) string {
	if len(trend) == 0 {
		return "📈 Chưa đủ dữ liệu xu hướng."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Xu hướng %d tháng</b>\n\n", len(trend)))
	for _, t := range trend {
		b.WriteString(fmt.Sprintf("<b>%s</b>  thu %s (%+.1f%%)  chi %s (%+.1f%%)  lãi %s\n",
			t.Label, FormatVND(t.Income), t.IncomeGrowth,
			FormatVND(t.Expense), t.ExpenseGrowth, signedVND(t.Profit)))
	}
	return b.String()
}

// FormatNotification formats one relayed notification.
func FormatNotification(n model.Notification) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s</b>\n", Sanitize(n.Title)))
	if msg := Sanitize(n.Message); msg != "" {
		b.WriteString(msg)
		b.WriteString("\n")
	}
	if d := shortDate(n.Date); d != "" {
		b.WriteString(fmt.Sprintf("<i>%s</i>\n", d))
	}
	return b.String()
}

// FormatNotifications formats the unread list.
func FormatNotifications(list []model.Notification) string {
	if len(list) == 0 {
		return "🔕 Không có thông báo mới."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%d thông báo chưa đọc</b>\n\n", len(list)))
	for _, n := range list {
		b.WriteString(fmt.Sprintf("• <b>%s</b>: %s\n", Sanitize(n.Title), Sanitize(n.Message)))
	}
	return b.String()
}

// FormatQuote formats a stock quote.
func FormatQuote(q *model.StockQuote) string {
	icon := "🟢"
	if q.Change < 0 {
		icon = "🔴"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s (%+.2f%%)\n", icon, Sanitize(q.Symbol), FormatVND(q.Price.Float()), q.PctChange.Float()))
	b.WriteString(fmt.Sprintf("Thay đổi: %s\n", signedVND(q.Change.Float())))
	b.WriteString(fmt.Sprintf("Cao/Thấp: %s / %s\n", FormatVND(q.High.Float()), FormatVND(q.Low.Float())))
	b.WriteString(fmt.Sprintf("Khối lượng: %s\n", humanize.Comma(int64(q.Volume.Float()))))
	return b.String()
}

// FormatInsight formats a quote with its history indicators.
func FormatInsight(in *model.QuoteInsight) string {
	var b strings.Builder
	b.WriteString(FormatQuote(&in.Quote))
	if in.Points == 0 {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("\n📐 <b>%d phiên gần nhất</b>\n", in.Points))
	if in.SMA5 > 0 {
		b.WriteString(fmt.Sprintf("SMA5: %s", FormatVND(in.SMA5)))
		if in.SMA20 > 0 {
			b.WriteString(fmt.Sprintf(" | SMA20: %s | EMA20: %s", FormatVND(in.SMA20), FormatVND(in.EMA20)))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("RSI14: %.1f\n", in.RSI14))
	b.WriteString(fmt.Sprintf("Vùng giá: %s → %s (vị trí %.0f%%)\n", FormatVND(in.Low), FormatVND(in.High), in.Position*100))
	return b.String()
}

// FormatDigest formats the daily digest. Either part may be nil when it failed to load.
func FormatDigest(now time.Time, p *model.PortfolioMetrics, f *model.FinanceMetrics, sig *model.HealthSignal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>Tổng kết ngày</b> | %s\n\n", now.Format("2006-01-02")))
	if p != nil {
		b.WriteString(fmt.Sprintf("Tổng tài sản: %s\n", FormatVND(p.TotalAssets)))
		b.WriteString(fmt.Sprintf("Lãi/lỗ tạm tính: %s\n", signedVND(p.UnrealizedPnL)))
		b.WriteString(fmt.Sprintf("Tỷ trọng tiền mặt: %.1f%%\n", p.CashWeight))
	} else {
		b.WriteString("Danh mục: không tải được\n")
	}
	if f != nil {
		b.WriteString(fmt.Sprintf("Thu tháng này: %s\n", FormatVND(f.CashFlow.Inflow)))
		b.WriteString(fmt.Sprintf("Chi tháng này: %s\n", FormatVND(f.CashFlow.Outflow)))
	} else {
		b.WriteString("Thu chi: không tải được\n")
	}
	if sig != nil {
		b.WriteString("\n")
		b.WriteString(FormatHealth(sig))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>Lệnh hỗ trợ</b>",
		"/portfolio - tổng quan danh mục",
		"/trades - giao dịch gần đây",
		"/deposits - lịch sử nạp tiền",
		"/quote MÃ - giá cổ phiếu",
		"/refresh - cập nhật giá",
		"/finance - thu chi tháng này",
		"/trend - xu hướng thu chi",
		"/sync - đồng bộ hóa đơn Gmail",
		"/notifications - thông báo chưa đọc",
		"/markread - đánh dấu đã đọc",
		"/help - trợ giúp",
	}, "\n")
}

// shortDate renders a backend date as dd/mm/yyyy, or the raw value when it is not a known layout.
func shortDate(s string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return Sanitize(s)
}
