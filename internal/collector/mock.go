package collector

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// MockTransport answers backend actions with fixed demo data so the whole
// stack runs without the script endpoints. It ignores the target URL.
type MockTransport struct {
	Latency time.Duration
	Now     func() time.Time
}

var mockStocks = map[string]map[string]any{
	"HPG": {"symbol": "HPG", "price": 28500, "change": 450, "pctChange": 1.6, "high": 28700, "low": 28100, "volume": 15200000},
	"TCB": {"symbol": "TCB", "price": 35200, "change": -200, "pctChange": -0.57, "high": 35500, "low": 34900, "volume": 8400000},
	"VNM": {"symbol": "VNM", "price": 68100, "change": 100, "pctChange": 0.15, "high": 68500, "low": 67900, "volume": 3200000},
	"FPT": {"symbol": "FPT", "price": 115000, "change": 2100, "pctChange": 1.86, "high": 116000, "low": 113000, "volume": 2100000},
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body map[string]any
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		_ = json.Unmarshal(data, &body)
	}

	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		select {
		case <-req.Context().Done():
			t.Stop()
			return nil, req.Context().Err()
		case <-t.C:
		}
	}

	action, _ := body["action"].(string)
	reply, err := json.Marshal(m.reply(action, body))
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(reply)),
		ContentLength: int64(len(reply)),
		Request:       req,
	}, nil
}

func (m *MockTransport) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockTransport) reply(action string, body map[string]any) any {
	now := m.now().UTC().Format(time.RFC3339)
	ok := map[string]any{"success": true}

	switch action {
	case "getProfile":
		return map[string]any{"email": "demo@example.com", "balance": 125450000, "totalAssets": 158220000}
	case "getHoldings":
		return []map[string]any{
			{"symbol": "HPG", "quantity": 1000, "avgPrice": 27200, "currentPrice": 28500},
			{"symbol": "VNM", "quantity": 500, "avgPrice": 69500, "currentPrice": 68100},
		}
	case "getHistory":
		return []map[string]any{
			{"id": "T-1", "date": now, "symbol": "HPG", "side": "BUY", "type": "LO", "quantity": 1000, "price": 27200, "total": 27200000},
			{"id": "T-2", "date": now, "symbol": "VNM", "side": "BUY", "type": "MP", "quantity": 500, "price": 69500, "total": 34750000},
			{"id": "T-3", "date": now, "symbol": "DEPOSIT", "side": "DEPOSIT", "quantity": 0, "price": 0, "total": 100000000},
		}
	case "getStockData":
		sym, _ := body["symbol"].(string)
		if q, found := mockStocks[strings.ToUpper(sym)]; found {
			return q
		}
		return map[string]any{"error": "Not found"}
	case "getStockHistory":
		sym, _ := body["symbol"].(string)
		q, found := mockStocks[strings.ToUpper(sym)]
		if !found {
			return map[string]any{"error": "Not found"}
		}
		price := float64(q["price"].(int))
		points := make([]map[string]any, 0, 30)
		for i := 29; i >= 0; i-- {
			day := m.now().AddDate(0, 0, -i).UTC().Format("2006-01-02")
			points = append(points, map[string]any{"date": day, "price": price * (1 - 0.002*float64(i))})
		}
		return map[string]any{"history": points}
	case "placeOrder":
		return map[string]any{"success": true, "balance": 120000000}
	case "deposit":
		return map[string]any{"success": true, "newBalance": 150000000}
	case "adjustBalance":
		return map[string]any{"success": true, "newBalance": 125450000}
	case "getNotifications":
		return []map[string]any{
			{"id": "N-1", "title": "Khớp lệnh", "message": "Lệnh MUA 1000 HPG đã khớp", "type": "ORDER", "date": now, "isRead": false},
			{"id": "N-2", "title": "Chào mừng", "message": "Tài khoản demo đã sẵn sàng", "type": "SYSTEM", "date": now, "isRead": true},
		}
	case "getFinanceSummary":
		return map[string]any{
			"monthlyIncome":  5240,
			"monthlyExpense": 2360,
			"balance":        2880,
			"categories": []map[string]any{
				{"name": "Dining", "amount": 458.20},
				{"name": "Shopping", "amount": 1240.50},
				{"name": "Transport", "amount": 215.00},
				{"name": "Fixed Bills", "amount": 890.00},
			},
		}
	case "getFinanceTransactions":
		return []map[string]any{
			{"id": "VCB-12773585043", "date": now, "amount": 35000, "type": "EXPENSE", "category": "Bank Transfer", "description": "NGUYEN BA THONG chuyen tien", "source": "Vietcombank", "status": "SYNCED"},
			{"id": "MANUAL-1", "date": now, "amount": 150000, "type": "EXPENSE", "category": "Dining", "description": "Lunch at Kichi Kichi", "source": "Manual", "status": "MANUAL"},
			{"id": "MANUAL-2", "date": now, "amount": 5000000, "type": "INCOME", "category": "Salary", "description": "January Salary", "source": "System", "status": "MANUAL"},
		}
	case "syncGmailReceipts":
		return map[string]any{"success": true, "syncCount": 1}
	case "checkGmailConnection":
		return map[string]any{"connected": false}
	case "getGoogleAuthUrl":
		return map[string]any{"url": "https://accounts.google.com/o/oauth2/v2/auth?mock=1"}
	case "markNotificationsRead", "deleteTransaction", "refreshStockPrices",
		"addManualTransaction", "updateFinanceTransaction", "deleteFinanceTransaction",
		"login", "register", "sendOTP", "resetPassword", "submitUpgradeRequest":
		return ok
	default:
		return map[string]any{"error": "Unknown action"}
	}
}
