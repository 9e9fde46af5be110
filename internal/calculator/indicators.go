package calculator

import (
	"errors"
	"math"

	"StockSimDesk/internal/model"

	"github.com/markcheno/go-talib"
)

// closes extracts the prices of a history, oldest first.
func closes(points []model.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price.Float()
	}
	return out
}

// last returns the final value of a talib output series.
func last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	v := series[len(series)-1]
	return v, !math.IsNaN(v)
}

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	v, ok := last(talib.Sma(prices, period))
	if !ok {
		return 0, errors.New("SMA undefined")
	}
	return v, nil
}

// EMA computes the exponential moving average, seeded with the SMA of the first period prices.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for EMA calculation")
	}
	v, ok := last(talib.Ema(prices, period))
	if !ok {
		return 0, errors.New("EMA undefined")
	}
	return v, nil
}

// RSI computes the Wilder-smoothed RSI over period. It returns 50 when
// there are fewer than period+1 prices.
func RSI(prices []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(prices) < period+1 {
		return 50, nil
	}
	v, ok := last(talib.Rsi(prices, period))
	if !ok {
		return 50, nil
	}
	return v, nil
}

// PriceRange returns the highest and lowest price.
func PriceRange(prices []float64) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, p := range prices {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0..1.
// A flat range yields 0.5.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Min(1, math.Max(0, pos)), nil
}

// Insight computes the indicators of a quote over its price history. Indicators
// that need more history than available are left at zero (RSI at 50). Without
// history the range collapses to the current price.
func Insight(q model.StockQuote, history []model.PricePoint) model.QuoteInsight {
	prices := closes(history)
	out := model.QuoteInsight{Quote: q, Points: len(prices), RSI14: 50}

	if v, err := SMA(prices, 5); err == nil {
		out.SMA5 = v
	}
	if v, err := SMA(prices, 20); err == nil {
		out.SMA20 = v
	}
	if v, err := EMA(prices, 20); err == nil {
		out.EMA20 = v
	}
	if v, err := RSI(prices, 14); err == nil {
		out.RSI14 = v
	}

	current := q.Price.Float()
	out.High, out.Low = current, current
	if high, low, err := PriceRange(prices); err == nil {
		out.High, out.Low = math.Max(high, current), math.Min(low, current)
	}
	out.Position, _ = RangePosition(current, out.High, out.Low)
	return out
}
