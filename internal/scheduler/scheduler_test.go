package scheduler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"StockSimDesk/internal/collector"
	"StockSimDesk/internal/gateway"
	"StockSimDesk/internal/recorder"
	"StockSimDesk/internal/retry"
	"StockSimDesk/internal/session"
	"StockSimDesk/internal/state"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*3600)

// 2024-03-15 18:00 local time.
var fixedNow = time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("telegram down")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type memRecorder struct {
	recorder.NoopRecorder
	portfolios    int
	cashflows     []string
	notifications []recorder.NotificationEvent
}

func (m *memRecorder) RecordPortfolio(*recorder.PortfolioSnapshot) error {
	m.portfolios++
	return nil
}

func (m *memRecorder) RecordCashFlow(s *recorder.CashFlowSnapshot) error {
	m.cashflows = append(m.cashflows, s.Period)
	return nil
}

func (m *memRecorder) RecordNotification(e *recorder.NotificationEvent) error {
	m.notifications = append(m.notifications, *e)
	return nil
}

type noSession struct{}

func (noSession) Current() (*session.Session, error) { return nil, session.ErrNoSession }

func newTestScheduler(t *testing.T, loggedIn bool) (*Scheduler, *fakeSender, *memRecorder) {
	t.Helper()
	gw := gateway.New(gateway.Endpoints{Trading: "http://mock/t", Finance: "http://mock/f"},
		"secret", "", time.Second, retry.DefaultPolicy(), zerolog.Nop())
	gw.Client = &http.Client{Transport: &collector.MockTransport{Now: func() time.Time { return fixedNow }}}
	client := collector.NewClient(gw, time.Minute, zerolog.Nop())
	col := collector.NewCollector(client, ict, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })

	var sessions SessionSource = noSession{}
	if loggedIn {
		m := session.NewManager(client, zerolog.Nop())
		_, err := m.Login(context.Background(), "demo@example.com", "pw")
		require.NoError(t, err)
		sessions = m
	}

	st, err := state.NewManager("", zerolog.Nop())
	require.NoError(t, err)
	sender := &fakeSender{}
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), col, sessions, st, sender, rec, zerolog.Nop())
	return s, sender, rec
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, true)
	require.NoError(t, s.RegisterAll(Schedule{
		NotificationPoll: "@every 30s",
		DailyDigest:      "0 0 18 * * 1-5",
		MonthlyReport:    "",
	}))
	assert.Len(t, s.Cron.Entries(), 2)

	err := s.RegisterAll(Schedule{DailyDigest: "not a cron"})
	assert.Error(t, err)
}

func TestPollNotifications_RelaysOnce(t *testing.T) {
	s, sender, rec := newTestScheduler(t, true)

	s.PollNotifications()
	s.PollNotifications()

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Khớp lệnh")
	require.Len(t, rec.notifications, 1)
	assert.True(t, rec.notifications[0].Delivered)
	assert.Equal(t, []string{"N-1"}, s.State.GetState().RelayedIDs)
}

func TestPollNotifications_RetriesUndelivered(t *testing.T) {
	s, sender, rec := newTestScheduler(t, true)
	sender.fail = true
	s.PollNotifications()
	assert.Empty(t, s.State.GetState().RelayedIDs)
	require.Len(t, rec.notifications, 1)
	assert.False(t, rec.notifications[0].Delivered)

	sender.fail = false
	s.PollNotifications()
	assert.Len(t, sender.messages(), 1)
}

func TestPollNotifications_NoSession(t *testing.T) {
	s, sender, _ := newTestScheduler(t, false)
	s.PollNotifications()
	assert.Empty(t, sender.messages())
}

func TestDailyDigest(t *testing.T) {
	s, sender, rec := newTestScheduler(t, true)
	s.DailyDigest()

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Tổng kết ngày")
	assert.Contains(t, msgs[0], "158.220.000 ₫")
	assert.Contains(t, msgs[0], "SAVING")
	assert.Equal(t, 1, rec.portfolios)
	assert.Equal(t, []string{"2024-03-01..2024-03-15"}, rec.cashflows)
	assert.True(t, s.State.GetState().LastDigestAt.Equal(fixedNow))
}

func TestMonthlyReport(t *testing.T) {
	s, sender, rec := newTestScheduler(t, true)
	s.TrendMonths = 3
	s.MonthlyReport()

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "01/02 → 29/02/2024")
	assert.Contains(t, msgs[0], "Xu hướng 3 tháng")
	assert.Equal(t, []string{"2024-02"}, rec.cashflows)
}

func TestHandleCommand(t *testing.T) {
	s, _, _ := newTestScheduler(t, true)
	ctx := context.Background()

	cases := []struct {
		cmd  string
		want string
	}{
		{"/help", "Lệnh hỗ trợ"},
		{"/portfolio", "Danh mục"},
		{"/portfolio@stocksim_bot", "Danh mục"},
		{"/trades", "BUY HPG"},
		{"/deposits", "100.000.000 ₫"},
		{"/quote hpg", "HPG"},
		{"/quote", "Cú pháp"},
		{"/quote zzz", "❌ Not found"},
		{"/refresh", "Đã cập nhật"},
		{"/finance", "Thu chi"},
		{"/trend 2", "Xu hướng 2 tháng"},
		{"/trend abc", "Cú pháp"},
		{"/notifications", "1 thông báo chưa đọc"},
		{"/markread", "đã đọc"},
		{"/sync", "Đã đồng bộ 1 hóa đơn"},
		{"/unknown", "Lệnh hỗ trợ"},
		{"", "Lệnh hỗ trợ"},
	}
	for _, c := range cases {
		got := s.HandleCommand(ctx, c.cmd)
		assert.True(t, strings.Contains(got, c.want), "%q -> %q", c.cmd, got)
	}
	assert.Equal(t, 1, s.State.GetState().LastSyncCount)
}

func TestHandleCommand_RequiresSession(t *testing.T) {
	s, _, _ := newTestScheduler(t, false)
	assert.Contains(t, s.HandleCommand(context.Background(), "/portfolio"), "Chưa đăng nhập")
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "Lệnh hỗ trợ")
}

func TestErrorText(t *testing.T) {
	assert.Contains(t, errorText(&gateway.Error{Kind: gateway.KindConnection}), "Không kết nối")
	assert.Equal(t, "Sai mã", errorText(&gateway.Error{Kind: gateway.KindBackend, Message: "Sai mã"}))
	assert.Contains(t, errorText(&gateway.Error{Kind: gateway.KindParse}), "không hợp lệ")
	assert.Contains(t, errorText(errors.New("x")), "không xác định")
}
