package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"StockSimDesk/internal/calculator"
	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/notifier"
	"StockSimDesk/internal/session"
	"StockSimDesk/internal/strategy"
)

// maxTradeRows bounds /trades output.
const maxTradeRows = 10

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "/help", "/start":
		return notifier.FormatHelp()
	}

	sess, err := s.Sessions.Current()
	if err != nil {
		return "🔒 Chưa đăng nhập. Hãy đăng nhập trên bảng điều khiển."
	}

	reply, err := s.runCommand(ctx, sess, cmd, args)
	if err != nil {
		s.log.Warn().Err(err).Str("command", cmd).Msg("command failed")
		return "❌ " + errorText(err)
	}
	return reply
}

func (s *Scheduler) runCommand(ctx context.Context, sess *session.Session, cmd string, args []string) (string, error) {
	col := s.Collector
	switch cmd {
	case "/portfolio":
		p, err := col.Portfolio(ctx, sess)
		if err != nil {
			return "", err
		}
		return notifier.FormatPortfolio(p), nil

	case "/trades":
		rows, err := col.TradeHistory(ctx, sess)
		if err != nil {
			return "", err
		}
		if len(rows) > maxTradeRows {
			rows = rows[:maxTradeRows]
		}
		return notifier.FormatTrades(rows), nil

	case "/deposits":
		list, err := col.Deposits(ctx, sess)
		if err != nil {
			return "", err
		}
		return notifier.FormatDeposits(list), nil

	case "/quote":
		if len(args) == 0 {
			return "Cú pháp: /quote MÃ (ví dụ /quote HPG)", nil
		}
		in, err := col.QuoteInsight(ctx, args[0])
		if err != nil {
			return "", err
		}
		return notifier.FormatInsight(in), nil

	case "/refresh":
		if _, err := col.Backend.RefreshStockPrices(ctx); err != nil {
			return "", err
		}
		return "✅ Đã cập nhật giá cổ phiếu", nil

	case "/finance":
		f, err := col.MonthToDate(ctx, sess)
		if err != nil {
			return "", err
		}
		p, err := col.Portfolio(ctx, sess)
		if err != nil {
			s.log.Warn().Err(err).Msg("portfolio unavailable for health check")
		}
		return notifier.FormatFinance(f, strategy.Evaluate(p, f.CashFlow)), nil

	case "/trend":
		months := s.trendMonths()
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > calculator.MaxTrendMonths {
				return "Cú pháp: /trend [1-24]", nil
			}
			months = n
		}
		trend, err := col.Trend(ctx, sess, months)
		if err != nil {
			return "", err
		}
		return notifier.FormatTrend(trend), nil

	case "/sync":
		res, err := col.Backend.SyncGmailReceipts(ctx, sess.Email)
		if err != nil {
			return "", err
		}
		s.State.RecordSync(col.Now(), res.SyncCount)
		return fmt.Sprintf("✅ Đã đồng bộ %d hóa đơn", res.SyncCount), nil

	case "/notifications":
		unread, err := col.Unread(ctx, sess)
		if err != nil {
			return "", err
		}
		return notifier.FormatNotifications(unread), nil

	case "/markread":
		if _, err := col.Backend.MarkNotificationsRead(ctx, sess.Email); err != nil {
			return "", err
		}
		return "✅ Đã đánh dấu tất cả thông báo là đã đọc", nil

	default:
		return notifier.FormatHelp(), nil
	}
}

// errorText renders an error for chat users.
func errorText(err error) string {
	var ge *gateway.Error
	switch {
	case errors.As(err, &ge) && ge.Kind == gateway.KindConnection:
		return "Không kết nối được máy chủ, thử lại sau"
	case errors.As(err, &ge) && ge.Kind == gateway.KindBackend:
		return notifier.Sanitize(ge.Message)
	case errors.As(err, &ge):
		return "Máy chủ trả về dữ liệu không hợp lệ"
	case collector.IsInput(err):
		return notifier.Sanitize(err.Error())
	case errors.Is(err, session.ErrNoSession):
		return "Chưa đăng nhập"
	default:
		return "Lỗi không xác định"
	}
}
