package binance

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"tradedesk/pkg/core"
	"tradedesk/pkg/stream"
	"tradedesk/pkg/symbol"
)

const bookTickerSuffix = "@bookTicker"

// BookTickerStream subscribes to the best bid/ask of one symbol at a time.
// It never reconnects on its own.
type BookTickerStream struct {
	stream  *stream.TickerStream
	handler stream.Handler
	baseURL func(core.MarketSelector) string
	logger  zerolog.Logger
}

// NewBookTickerStream returns an idle stream. baseURL maps a market to the
// websocket base, e.g. "wss://fstream.binance.com/ws".
func NewBookTickerStream(handler stream.Handler, baseURL func(core.MarketSelector) string, config stream.TickerStreamConfig) *BookTickerStream {
	if handler == nil {
		handler = stream.HandlerFuncs{}
	}
	return &BookTickerStream{
		stream:  stream.NewTickerStream(handler, NewNormalizer().BookTicker, config),
		handler: handler,
		baseURL: baseURL,
		logger:  zerolog.Nop(),
	}
}

func (b *BookTickerStream) SetLogger(logger zerolog.Logger) {
	b.logger = logger
	b.stream.SetLogger(logger)
}

// StreamName returns the bookTicker stream name for s, e.g. "btcusdt@bookTicker".
// It is empty when s has no non-space characters.
func StreamName(s string) string {
	name := strings.ToLower(symbol.Compact(s))
	if name == "" {
		return ""
	}
	return name + bookTickerSuffix
}

// Connect replaces any open subscription with one for sym on market. An
// empty symbol is reported through OnError and leaves the current
// subscription untouched.
func (b *BookTickerStream) Connect(ctx context.Context, sym string, market core.MarketSelector) error {
	name := StreamName(sym)
	if name == "" {
		err := core.NewError(core.ErrorTypeInvalidArgument, MsgSymbolEmpty).
			WithOp(core.OpStreamBookTicker).
			WithExchange(Name)
		b.handler.OnError(err)
		return err
	}

	url := b.baseURL(market) + "/" + name
	b.logger.Debug().Str("stream", name).Str("market", market.String()).Msg("connecting book ticker")
	err := b.stream.Open(ctx, url)
	var e *core.Error
	if errors.As(err, &e) {
		return e.WithExchange(Name)
	}
	return err
}

// Disconnect closes the subscription if one is open.
func (b *BookTickerStream) Disconnect() error {
	return b.stream.Close()
}

func (b *BookTickerStream) State() stream.ConnState {
	return b.stream.State()
}

// URL returns the address of the current or last subscription.
func (b *BookTickerStream) URL() string {
	return b.stream.URL()
}
