package core

// Document is a parsed JSON response body as seen by a Protocol.
type Document interface {
	// Value returns the decoded body: map[string]any, []any, string,
	// json.Number, bool or nil.
	Value() any
	// Raw returns the body bytes.
	Raw() []byte
}

// Protocol defines the interface for exchange-specific protocol implementations.
// Each exchange must implement this interface to handle request building,
// response parsing and authentication.
type Protocol interface {
	// Name returns the exchange identifier (e.g., "binance").
	Name() string

	// BaseURL returns the REST base URL for the given market.
	BaseURL(market MarketSelector) string

	// StreamURL returns the streaming base URL for the given market.
	StreamURL(market MarketSelector) string

	// BuildRequest constructs a request for the specified operation.
	// The params map contains operation-specific parameters.
	BuildRequest(op Operation, market MarketSelector, params Params) (*Request, error)

	// SignRequest adds the authentication header and signature to the request.
	SignRequest(req *Request, creds Credentials, nowMs int64) error

	// ParseResponse converts a decoded body into the canonical result for op:
	// float64 for OpGetBalance, []string for OpGetSymbols, []KlineCandle for OpGetKlines.
	ParseResponse(op Operation, market MarketSelector, params Params, doc Document) (any, error)

	// SupportedOperations returns the list of operations this protocol supports.
	SupportedOperations() []Operation
}
