package symbol

import "strings"

// DefaultTradingViewInterval is used for tokens missing from the lookup table.
const DefaultTradingViewInterval = "60"

var tradingViewIntervals = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"6h":  "360",
	"8h":  "480",
	"12h": "720",
	"1d":  "1D",
	"3d":  "3D",
	"1w":  "1W",
	"1mo": "1M",
}

var standardIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w"}

// TradingViewInterval maps an interval token to the TradingView widget
// vocabulary. The token is trimmed and lowercased first.
func TradingViewInterval(token string) string {
	if v, ok := tradingViewIntervals[strings.ToLower(strings.TrimSpace(token))]; ok {
		return v
	}
	return DefaultTradingViewInterval
}

// Intervals returns the interval tokens offered for chart and candle queries.
func Intervals() []string {
	return append([]string(nil), standardIntervals...)
}
