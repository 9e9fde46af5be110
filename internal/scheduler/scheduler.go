package scheduler

import (
	"context"
	"fmt"
	"time"

	"StockSimDesk/internal/calculator"
	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/model"
	"StockSimDesk/internal/notifier"
	"StockSimDesk/internal/recorder"
	"StockSimDesk/internal/session"
	"StockSimDesk/internal/state"
	"StockSimDesk/internal/strategy"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sender delivers a formatted message. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string) error
}

// SessionSource yields the signed-in user. *session.Manager satisfies it.
type SessionSource interface {
	Current() (*session.Session, error)
}

// Schedule holds the cron expressions (with seconds). An empty expression disables the task.
type Schedule struct {
	NotificationPoll string
	DailyDigest      string
	MonthlyReport    string
}

// DefaultTrendMonths is the trailing window of the monthly report and /trend.
const DefaultTrendMonths = 6

// Scheduler manages all cron tasks and answers bot commands.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Sessions    SessionSource
	State       *state.Manager
	Notifier    Sender // nil disables delivery
	Recorder    recorder.Recorder
	TrendMonths int
	Ctx         context.Context
	log         zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping runs of the same task are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, sessions SessionSource, st *state.Manager, sender Sender, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cronLog := cron.PrintfLogger(&log)
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(col.Loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Collector:   col,
		Sessions:    sessions,
		State:       st,
		Notifier:    sender,
		Recorder:    rec,
		TrendMonths: DefaultTrendMonths,
		Ctx:         ctx,
		log:         log,
	}
}

// RegisterAll registers the notification poll, daily digest and monthly report.
func (s *Scheduler) RegisterAll(sched Schedule) error {
	tasks := []struct {
		name string
		spec string
		fn   func()
	}{
		{"notification poll", sched.NotificationPoll, s.PollNotifications},
		{"daily digest", sched.DailyDigest, s.DailyDigest},
		{"monthly report", sched.MonthlyReport, s.MonthlyReport},
	}
	for _, t := range tasks {
		if t.spec == "" {
			s.log.Info().Str("task", t.name).Msg("task disabled")
			continue
		}
		if _, err := s.Cron.AddFunc(t.spec, t.fn); err != nil {
			return fmt.Errorf("register %s: %w", t.name, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// PollNotifications relays unread notifications that were not relayed before.
// Failures are not logged above debug level; the next tick tries again.
func (s *Scheduler) PollNotifications() {
	if s.Notifier == nil {
		return
	}
	sess, err := s.Sessions.Current()
	if err != nil {
		return
	}
	unread, err := s.Collector.Unread(s.Ctx, sess)
	if err != nil {
		s.log.Debug().Err(err).Msg("notification poll failed")
		return
	}

	for _, n := range s.State.Unseen(unread) {
		err := s.Notifier.SendWithRetry(s.Ctx, notifier.FormatNotification(n))
		if err != nil {
			s.log.Error().Err(err).Str("notification", n.ID).Msg("relay notification")
		} else {
			s.State.MarkRelayed(n.ID)
		}
		if rerr := s.Recorder.RecordNotification(&recorder.NotificationEvent{
			NotificationID: n.ID, Title: n.Title, Delivered: err == nil,
		}); rerr != nil {
			s.log.Error().Err(rerr).Msg("record notification")
		}
	}
}

// DailyDigest sends portfolio and month-to-date figures and records snapshots.
func (s *Scheduler) DailyDigest() {
	sess, err := s.Sessions.Current()
	if err != nil {
		s.log.Info().Msg("daily digest skipped: no session")
		return
	}
	s.log.Info().Msg("running daily digest")

	p, err := s.Collector.Portfolio(s.Ctx, sess)
	if err != nil {
		s.log.Error().Err(err).Msg("digest portfolio")
	}
	f, err := s.Collector.MonthToDate(s.Ctx, sess)
	if err != nil {
		s.log.Error().Err(err).Msg("digest finance")
	}
	if p == nil && f == nil {
		s.trySend("❌ Tổng kết ngày thất bại: không tải được dữ liệu")
		return
	}

	var sig *model.HealthSignal
	if f != nil {
		sig = strategy.Evaluate(p, f.CashFlow)
	}
	now := s.Collector.Now()
	s.trySend(notifier.FormatDigest(now, p, f, sig))

	if p != nil {
		if err := s.Recorder.RecordPortfolio(&recorder.PortfolioSnapshot{Metrics: p, Health: sig}); err != nil {
			s.log.Error().Err(err).Msg("record portfolio")
		}
	}
	if f != nil {
		s.recordCashFlow(calculator.NewRange(f.From, f.To, s.Collector.Loc).Label(), f, sig)
	}
	s.State.RecordDigest(now)
}

// MonthlyReport sends last month's cash flow and the trailing trend.
func (s *Scheduler) MonthlyReport() {
	sess, err := s.Sessions.Current()
	if err != nil {
		s.log.Info().Msg("monthly report skipped: no session")
		return
	}
	s.log.Info().Msg("running monthly report")

	now := s.Collector.Now()
	lastMonth := calculator.MonthRange(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.Collector.Loc).AddDate(0, -1, 0), s.Collector.Loc)
	f, err := s.Collector.Finance(s.Ctx, sess, lastMonth, 1)
	if err != nil {
		s.log.Error().Err(err).Msg("monthly finance")
		s.trySend(fmt.Sprintf("❌ Báo cáo tháng thất bại: %s", errorText(err)))
		return
	}
	sig := strategy.Evaluate(nil, f.CashFlow)

	report := notifier.FormatFinance(f, sig)
	if trend, err := s.Collector.Trend(s.Ctx, sess, s.trendMonths()); err != nil {
		s.log.Warn().Err(err).Msg("monthly trend unavailable")
	} else {
		report += "\n" + notifier.FormatTrend(trend)
	}
	s.trySend(report)

	s.recordCashFlow(lastMonth.From.Format("2006-01"), f, sig)
	s.State.RecordMonthly(now)
}

func (s *Scheduler) recordCashFlow(period string, f *model.FinanceMetrics, sig *model.HealthSignal) {
	tier := ""
	if sig != nil {
		tier = sig.Tier.Label
	}
	if err := s.Recorder.RecordCashFlow(&recorder.CashFlowSnapshot{
		Period: period, CashFlow: f.CashFlow, Variance: f.Variance, Tier: tier,
	}); err != nil {
		s.log.Error().Err(err).Msg("record cash flow")
	}
}

func (s *Scheduler) trendMonths() int {
	if s.TrendMonths > 0 {
		return s.TrendMonths
	}
	return DefaultTrendMonths
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
