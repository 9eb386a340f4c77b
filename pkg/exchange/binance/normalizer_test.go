package binance

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradedesk/pkg/core"
)

func TestNormalizer_BookTicker(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name  string
		frame string
		want  core.TickerUpdate
		ok    bool
	}{
		{"string prices", `{"u":400900217,"s":"BTCUSDT","b":"10","B":"31.2","a":"11","A":"40.6"}`, core.TickerUpdate{Symbol: "BTCUSDT", BidPrice: 10, AskPrice: 11}, true},
		{"numeric prices", `{"s":"ETHUSDT","b":2500.5,"a":2500.75}`, core.TickerUpdate{Symbol: "ETHUSDT", BidPrice: 2500.5, AskPrice: 2500.75}, true},
		{"missing bid and ask", `{"s":"BTCUSDT"}`, core.TickerUpdate{}, false},
		{"missing symbol", `{"b":"10","a":"11"}`, core.TickerUpdate{}, false},
		{"empty symbol", `{"s":"","b":"10","a":"11"}`, core.TickerUpdate{}, false},
		{"non numeric bid", `{"s":"BTCUSDT","b":"ten","a":"11"}`, core.TickerUpdate{}, false},
		{"not an object", `["BTCUSDT","10","11"]`, core.TickerUpdate{}, false},
		{"null", `null`, core.TickerUpdate{}, false},
		{"invalid json", `{"s":`, core.TickerUpdate{}, false},
		{"subscription ack", `{"result":null,"id":1}`, core.TickerUpdate{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.BookTicker([]byte(tt.frame))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{" 42 ", 42, true},
		{"1e3", 1000, true},
		{json.Number("0.00012"), 0.00012, true},
		{3.25, 3.25, true},
		{"NaN", 0, false},
		{"Infinity", 0, false},
		{"1e400", 0, false},
		{math.Inf(1), 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-12, "input %v", tt.in)
		}
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{json.Number("1700000000000"), 1700000000000, true},
		{json.Number("1.7e12"), 1700000000000, true},
		{"1700000000000", 1700000000000, true},
		{json.Number("1700000000000.5"), 0, false},
		{"soon", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := toInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestTryParseKline(t *testing.T) {
	c, ok := tryParseKline([]any{json.Number("60000"), "1", "2", "0.5", "1.5", "100"})
	assert.True(t, ok)
	assert.Equal(t, core.KlineCandle{OpenTimeMs: 60000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}, c)

	_, ok = tryParseKline([]any{json.Number("60000"), "1", "2", "0.5", "1.5"})
	assert.False(t, ok)

	_, ok = tryParseKline(map[string]any{"t": 1})
	assert.False(t, ok)

	_, ok = tryParseKline([]any{"x", "1", "2", "0.5", "1.5", "100"})
	assert.False(t, ok)
}
