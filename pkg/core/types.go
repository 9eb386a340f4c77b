package core

import (
	"math"
	"time"
)

// KlineCandle is one OHLCV bar. OpenTimeMs is milliseconds since the Unix epoch.
type KlineCandle struct {
	OpenTimeMs int64   `json:"open_time_ms"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
}

// OpenTime returns the bar's open time in UTC.
func (k KlineCandle) OpenTime() time.Time {
	return time.UnixMilli(k.OpenTimeMs).UTC()
}

// Finite reports whether every price and volume field is a finite number.
func (k KlineCandle) Finite() bool {
	for _, v := range [...]float64{k.Open, k.High, k.Low, k.Close, k.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TickerUpdate is the best bid and ask for a symbol at one instant.
type TickerUpdate struct {
	Symbol   string  `json:"symbol"`
	BidPrice float64 `json:"bid_price"`
	AskPrice float64 `json:"ask_price"`
}

// Spread returns ask minus bid.
func (t TickerUpdate) Spread() float64 {
	return t.AskPrice - t.BidPrice
}

// Mid returns the midpoint between bid and ask.
func (t TickerUpdate) Mid() float64 {
	return (t.BidPrice + t.AskPrice) / 2
}
