package core

// Operation represents a type of action that can be performed on an exchange.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpUnknown is the zero value for errors raised outside a query.
	OpUnknown Operation = iota
	// OpGetBalance retrieves the USDT balance of the account.
	OpGetBalance
	// OpGetSymbols retrieves the tradable USDT symbol catalog.
	OpGetSymbols
	// OpGetKlines retrieves candlestick/OHLCV data.
	OpGetKlines
	// OpStreamBookTicker subscribes to best bid/ask updates for one symbol.
	OpStreamBookTicker
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return [...]string{
		"UNKNOWN",
		"GET_BALANCE",
		"GET_SYMBOLS",
		"GET_KLINES",
		"STREAM_BOOK_TICKER",
	}[o]
}

// RequiresAuth reports whether the operation needs signed credentials.
func (o Operation) RequiresAuth() bool {
	return o == OpGetBalance
}
