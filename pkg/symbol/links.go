package symbol

import (
	"fmt"
	"strings"
	"unicode"

	"tradedesk/pkg/core"
)

const (
	binanceSpotTradeURL    = "https://www.binance.com/en/trade/%s?type=spot"
	binanceFuturesTradeURL = "https://www.binance.com/en/futures/%s"
	tradingViewChartURL    = "https://www.tradingview.com/chart/?symbol=BINANCE:%s&interval=%s"
)

// BinanceWebURL returns the exchange trade page for symbol. A non-blank
// interval is appended as the interval query parameter.
func BinanceWebURL(s, interval string, account core.AccountKind) string {
	sym := Canonical(s)

	var u string
	if account == core.AccountSpot {
		u = fmt.Sprintf(binanceSpotTradeURL, SpotDisplay(sym))
	} else {
		u = fmt.Sprintf(binanceFuturesTradeURL, sym)
	}

	if iv := Compact(interval); iv != "" {
		if strings.Contains(u, "?") {
			u += "&"
		} else {
			u += "?"
		}
		u += "interval=" + iv
	}
	return u
}

// TradingViewURL returns the TradingView chart page for symbol.
func TradingViewURL(s, interval string) string {
	return fmt.Sprintf(tradingViewChartURL, Canonical(s), TradingViewInterval(interval))
}

// Compact removes all whitespace from s.
func Compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
