// Package symbol converts tickers and interval tokens between the canonical
// exchange form and the forms used by the exchange web UI and TradingView.
package symbol

import (
	"strings"

	"tradedesk/pkg/core"
)

// FuturesSuffix marks a perpetual futures symbol in display form.
const FuturesSuffix = ".P"

// quoteAssets is ordered so that longer quotes sharing a suffix with a
// shorter one ("USDT" vs "USD") are tried first.
var quoteAssets = []string{
	"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "DAI", "USD", "BTC", "ETH", "BNB",
	"EUR", "TRY", "GBP", "AUD", "BRL", "RUB", "IDR", "UAH", "ZAR", "BIDR", "PAX",
}

// QuoteAssets returns a copy of the ordered quote asset table.
func QuoteAssets() []string {
	return append([]string(nil), quoteAssets...)
}

// Canonical trims, uppercases, removes "/" and drops a trailing ".P".
func Canonical(s string) string {
	out := strings.ToUpper(strings.TrimSpace(s))
	out = strings.ReplaceAll(out, "/", "")
	return strings.TrimSuffix(out, FuturesSuffix)
}

// FuturesDisplay returns the perpetual display form, e.g. BTCUSDT.P.
func FuturesDisplay(s string) string {
	return Canonical(s) + FuturesSuffix
}

// SpotDisplay inserts "_" before the first matching quote asset, e.g.
// BTCUSDT -> BTC_USDT. Symbols that already contain "_" or match no quote
// are returned unchanged.
func SpotDisplay(s string) string {
	if strings.Contains(s, "_") {
		return s
	}
	if base, quote, ok := SplitQuote(s); ok {
		return base + "_" + quote
	}
	return s
}

// SplitQuote splits s into base and quote asset using the quote table.
// The base must be non-empty.
func SplitQuote(s string) (base, quote string, ok bool) {
	for _, q := range quoteAssets {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return s[:len(s)-len(q)], q, true
		}
	}
	return "", "", false
}

// Display returns the display form of s for the given account kind.
func Display(s string, account core.AccountKind) string {
	if account == core.AccountFutures {
		return FuturesDisplay(s)
	}
	return SpotDisplay(Canonical(s))
}
