package exchange

import (
	"context"

	"tradedesk/pkg/core"
	"tradedesk/pkg/stream"
)

// Exchange defines the interface the UI uses to talk to one exchange:
// three one-shot REST queries and a factory for single-symbol ticker streams.
// Every query returns either a value or a *core.Error and never retries.
type Exchange interface {
	Name() string

	// FetchBalance returns the USDT balance of the account behind creds.
	FetchBalance(ctx context.Context, creds core.Credentials, opts ...Option) (float64, error)
	// FetchSymbols returns the sorted, deduplicated tradable USDT symbols.
	FetchSymbols(ctx context.Context, opts ...Option) ([]string, error)
	// FetchKlines returns candles for symbol and interval in ascending open time.
	FetchKlines(ctx context.Context, symbol, interval string, opts ...Option) ([]core.KlineCandle, error)

	// NewTickerStream returns an idle stream that reports to handler.
	NewTickerStream(handler stream.Handler) TickerStream

	Close() error
}

// TickerStream holds at most one live best bid/ask subscription.
type TickerStream interface {
	Connect(ctx context.Context, symbol string, market core.MarketSelector) error
	Disconnect() error
	State() stream.ConnState
}
