package model

// QuoteInsight is a quote plus indicators computed over its daily price history.
type QuoteInsight struct {
	Quote    StockQuote `json:"quote"`
	Points   int        `json:"points"` // history length the indicators were computed on
	SMA5     float64    `json:"sma5"`
	SMA20    float64    `json:"sma20"`
	EMA20    float64    `json:"ema20"`
	RSI14    float64    `json:"rsi14"`
	High     float64    `json:"high"`
	Low      float64    `json:"low"`
	Position float64    `json:"position"` // 0.0 ~ 1.0 within [Low, High]
}
