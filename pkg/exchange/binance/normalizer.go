package binance

import (
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"tradedesk/pkg/core"
)

const quoteAsset = "USDT"

// numbers keeps frame and row numbers as json.Number so they can be
// validated before conversion.
var numbers = sonic.Config{UseNumber: true}.Froze()

// futuresBalanceFields is the order in which a futures USDT asset entry is
// searched for a balance.
var futuresBalanceFields = []string{"walletBalance", "marginBalance", "availableBalance"}

var (
	tradableStatuses = []string{"TRADING", "PENDING_TRADING"}
	contractTypes    = []string{"PERPETUAL", "CURRENT_QUARTER", "NEXT_QUARTER"}
)

// Normalizer converts Binance payloads to canonical core types. Individual
// records that fail validation are skipped, never coerced.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Balance returns the USDT balance from an account payload.
func (n *Normalizer) Balance(account map[string]any, kind core.AccountKind) (float64, bool) {
	if kind == core.AccountFutures {
		for _, entry := range objects(account["assets"]) {
			if !isQuote(entry["asset"]) {
				continue
			}
			for _, field := range futuresBalanceFields {
				if v, ok := toFloat(entry[field]); ok {
					return v, true
				}
			}
		}
		return 0, false
	}

	for _, entry := range objects(account["balances"]) {
		if !isQuote(entry["asset"]) {
			continue
		}
		if v, ok := toFloat(entry["free"]); ok {
			return v, true
		}
	}
	return 0, false
}

// Symbols returns the deduplicated, sorted tradable USDT symbols of an
// exchangeInfo payload. ok is false when the payload has no symbols array.
func (n *Normalizer) Symbols(info map[string]any, kind core.AccountKind) (symbols []string, ok bool) {
	entries, ok := info["symbols"].([]any)
	if !ok {
		return nil, false
	}

	seen := make(map[string]struct{}, len(entries))
	symbols = make([]string, 0, len(entries))
	for _, raw := range entries {
		entry, isObj := raw.(map[string]any)
		if !isObj || !n.tradable(entry, kind) {
			continue
		}
		name := strings.TrimSpace(stringOf(entry["symbol"]))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		symbols = append(symbols, name)
	}
	slices.Sort(symbols)
	return symbols, true
}

func (n *Normalizer) tradable(entry map[string]any, kind core.AccountKind) bool {
	if stringOf(entry["quoteAsset"]) != quoteAsset {
		return false
	}
	if !slices.Contains(tradableStatuses, strings.ToUpper(stringOf(entry["status"]))) {
		return false
	}
	if kind == core.AccountFutures {
		return slices.Contains(contractTypes, strings.ToUpper(stringOf(entry["contractType"])))
	}
	return true
}

// Klines converts kline rows to candles. Rows that fail tryParseKline, and
// rows opening before the previously kept one, are dropped.
func (n *Normalizer) Klines(rows []any) []core.KlineCandle {
	candles := make([]core.KlineCandle, 0, len(rows))
	for _, row := range rows {
		c, ok := tryParseKline(row)
		if !ok {
			continue
		}
		if len(candles) > 0 && c.OpenTimeMs < candles[len(candles)-1].OpenTimeMs {
			continue
		}
		candles = append(candles, c)
	}
	return candles
}

// tryParseKline reads [openTime, open, high, low, close, volume, ...].
func tryParseKline(row any) (core.KlineCandle, bool) {
	fields, ok := row.([]any)
	if !ok || len(fields) < 6 {
		return core.KlineCandle{}, false
	}

	openTime, ok := toInt64(fields[0])
	if !ok {
		return core.KlineCandle{}, false
	}

	var ohlcv [5]float64
	for i := range ohlcv {
		v, ok := toFloat(fields[i+1])
		if !ok {
			return core.KlineCandle{}, false
		}
		ohlcv[i] = v
	}

	return core.KlineCandle{
		OpenTimeMs: openTime,
		Open:       ohlcv[0],
		High:       ohlcv[1],
		Low:        ohlcv[2],
		Close:      ohlcv[3],
		Volume:     ohlcv[4],
	}, true
}

// BookTicker decodes a bookTicker frame. Frames that are not objects or
// lack a symbol, bid or ask are rejected.
func (n *Normalizer) BookTicker(data []byte) (core.TickerUpdate, bool) {
	var frame map[string]any
	if err := numbers.Unmarshal(data, &frame); err != nil || frame == nil {
		return core.TickerUpdate{}, false
	}

	sym, _ := frame["s"].(string)
	if sym == "" {
		return core.TickerUpdate{}, false
	}
	bid, ok := toFloat(frame["b"])
	if !ok {
		return core.TickerUpdate{}, false
	}
	ask, ok := toFloat(frame["a"])
	if !ok {
		return core.TickerUpdate{}, false
	}
	return core.TickerUpdate{Symbol: sym, BidPrice: bid, AskPrice: ask}, true
}

// envelope returns the exchange error carried by an object body, if any.
func envelope(body map[string]any) (code, msg string, ok bool) {
	raw, present := body["msg"]
	if !present {
		return "", "", false
	}
	msg = stringOf(raw)
	if msg == "" {
		msg = "Binance error"
	}
	return stringOf(body["code"]), msg, true
}

// toFloat accepts numbers and numeric strings. Binance sends prices as
// strings; NaN and infinities are rejected.
func toFloat(v any) (float64, bool) {
	var text string
	switch x := v.(type) {
	case json.Number:
		text = x.String()
	case string:
		text = strings.TrimSpace(x)
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	default:
		return 0, false
	}

	d, _, err := apd.NewFromString(text)
	if err != nil || d.Form != apd.Finite {
		return 0, false
	}
	f, err := d.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 accepts integral numbers, including integral values written with
// a fraction or exponent.
func toInt64(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func isQuote(v any) bool {
	return stringOf(v) == quoteAsset
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}
