package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"tradedesk/pkg/core"
)

const (
	FuturesURL        = "https://fapi.binance.com"
	FuturesTestnetURL = "https://testnet.binancefuture.com"
	SpotURL           = "https://api.binance.com"
	SpotTestnetURL    = "https://testnet.binance.vision"

	FuturesStreamURL        = "wss://fstream.binance.com"
	FuturesTestnetStreamURL = "wss://stream.binancefuture.com"
	SpotStreamURL           = "wss://stream.binance.com:9443"
	SpotTestnetStreamURL    = "wss://testnet.binance.vision"
)

// APIKeyHeader carries the API key of signed requests.
const APIKeyHeader = "X-MBX-APIKEY"

// Kline limits accepted by the exchange.
const (
	MinKlineLimit = 10
	MaxKlineLimit = 1000
)

// Messages reported to the UI verbatim.
const (
	MsgMissingCredentials = "Missing API credentials"
	MsgUnexpectedResponse = "Unexpected Binance response"
	MsgUnexpectedKlines   = "Unexpected Binance kline response"
	MsgBalanceNotFound    = "USDT balance not found"
	MsgSymbolRequired     = "Symbol is required"
	MsgIntervalRequired   = "Interval is required"
	MsgSymbolEmpty        = "Symbol is empty."
)

type endpoints struct {
	account, exchangeInfo, klines string
}

var (
	spotEndpoints    = endpoints{"/api/v3/account", "/api/v3/exchangeInfo", "/api/v3/klines"}
	futuresEndpoints = endpoints{"/fapi/v2/account", "/fapi/v1/exchangeInfo", "/fapi/v1/klines"}
)

// Protocol implements the core.Protocol interface for Binance spot and
// USD-M futures. It builds, signs and parses requests but performs no I/O.
type Protocol struct {
	normalizer *Normalizer
}

// NewProtocol creates a new Binance protocol instance.
func NewProtocol() *Protocol {
	return &Protocol{normalizer: NewNormalizer()}
}

// Name returns the protocol identifier "binance".
func (p *Protocol) Name() string {
	return Name
}

// BaseURL returns the REST host for the market.
func (p *Protocol) BaseURL(market core.MarketSelector) string {
	switch {
	case market.IsFutures() && market.IsTestnet():
		return FuturesTestnetURL
	case market.IsFutures():
		return FuturesURL
	case market.IsTestnet():
		return SpotTestnetURL
	default:
		return SpotURL
	}
}

// StreamURL returns the websocket host for the market.
func (p *Protocol) StreamURL(market core.MarketSelector) string {
	switch {
	case market.IsFutures() && market.IsTestnet():
		return FuturesTestnetStreamURL
	case market.IsFutures():
		return FuturesStreamURL
	case market.IsTestnet():
		return SpotTestnetStreamURL
	default:
		return SpotStreamURL
	}
}

// SupportedOperations returns the list of operations supported by this protocol.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpGetBalance,
		core.OpGetSymbols,
		core.OpGetKlines,
		core.OpStreamBookTicker,
	}
}

func paths(market core.MarketSelector) endpoints {
	if market.IsFutures() {
		return futuresEndpoints
	}
	return spotEndpoints
}

// BuildRequest constructs the unsigned request for op.
func (p *Protocol) BuildRequest(op core.Operation, market core.MarketSelector, params core.Params) (*core.Request, error) {
	switch op {
	case core.OpGetBalance:
		return p.buildGetBalanceRequest(market), nil
	case core.OpGetSymbols:
		return p.buildGetSymbolsRequest(market), nil
	case core.OpGetKlines:
		return p.buildGetKlinesRequest(market, params)
	default:
		return nil, core.WrapError(core.ErrorTypeInvalidArgument, fmt.Sprintf("unsupported operation: %s", op), core.ErrUnsupported)
	}
}

func (p *Protocol) buildGetBalanceRequest(market core.MarketSelector) *core.Request {
	req := core.NewGet(paths(market).account).SetRequireAuth(true)
	if market.IsFutures() {
		return req.SetWeight(5)
	}
	return req.SetWeight(20)
}

func (p *Protocol) buildGetSymbolsRequest(market core.MarketSelector) *core.Request {
	req := core.NewGet(paths(market).exchangeInfo)
	if market.IsFutures() {
		return req.SetWeight(1)
	}
	return req.SetWeight(20)
}

func (p *Protocol) buildGetKlinesRequest(market core.MarketSelector, params core.Params) (*core.Request, error) {
	symbol := strings.ToUpper(strings.TrimSpace(stringParam(params, "symbol")))
	if symbol == "" {
		return nil, core.NewError(core.ErrorTypeInvalidArgument, MsgSymbolRequired)
	}
	interval := strings.TrimSpace(stringParam(params, "interval"))
	if interval == "" {
		return nil, core.NewError(core.ErrorTypeInvalidArgument, MsgIntervalRequired)
	}
	limit := ClampKlineLimit(intParam(params, "limit"))

	req := core.NewGet(paths(market).klines).
		SetQuery("symbol", symbol).
		SetQuery("interval", interval).
		SetQuery("limit", limit)
	if market.IsFutures() {
		return req.SetWeight(futuresKlineWeight(limit)), nil
	}
	return req.SetWeight(2), nil
}

// ClampKlineLimit bounds a requested candle count to what the exchange serves.
func ClampKlineLimit(limit int) int {
	return min(max(limit, MinKlineLimit), MaxKlineLimit)
}

func futuresKlineWeight(limit int) int {
	switch {
	case limit < 100:
		return 1
	case limit < 500:
		return 2
	default:
		return 5
	}
}

// SignRequest stamps req with the current time, signs its canonical query
// and adds the API key header.
func (p *Protocol) SignRequest(req *core.Request, creds core.Credentials, nowMs int64) error {
	if creds.Blank() {
		return core.NewError(core.ErrorTypeCredentialsMissing, MsgMissingCredentials)
	}
	req.SetQuery("timestamp", nowMs)
	req.SetSignature(Sign(strings.TrimSpace(creds.APISecret), req.QueryString()))
	req.SetHeader(APIKeyHeader, strings.TrimSpace(creds.APIKey))
	return nil
}

// Sign returns the hex HMAC-SHA256 of query keyed by secret. query must be
// the exact text that is transmitted.
func Sign(secret, query string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// ParseResponse converts a decoded body into the result for op.
func (p *Protocol) ParseResponse(op core.Operation, market core.MarketSelector, params core.Params, doc core.Document) (any, error) {
	switch op {
	case core.OpGetBalance:
		return p.parseBalance(market, doc)
	case core.OpGetSymbols:
		return p.parseSymbols(market, doc)
	case core.OpGetKlines:
		return p.parseKlines(params, doc)
	default:
		return nil, core.WrapError(core.ErrorTypeInvalidArgument, fmt.Sprintf("unsupported operation: %s", op), core.ErrUnsupported)
	}
}

func (p *Protocol) parseBalance(market core.MarketSelector, doc core.Document) (float64, error) {
	body, ok := doc.Value().(map[string]any)
	if !ok {
		return 0, core.NewError(core.ErrorTypeProtocol, MsgUnexpectedResponse)
	}
	if err := exchangeError(body); err != nil {
		return 0, err
	}
	balance, ok := p.normalizer.Balance(body, market.Account)
	if !ok {
		return 0, core.NewError(core.ErrorTypeData, MsgBalanceNotFound)
	}
	return balance, nil
}

func (p *Protocol) parseSymbols(market core.MarketSelector, doc core.Document) ([]string, error) {
	body, ok := doc.Value().(map[string]any)
	if !ok {
		return nil, core.NewError(core.ErrorTypeProtocol, MsgUnexpectedResponse)
	}
	if err := exchangeError(body); err != nil {
		return nil, err
	}
	symbols, ok := p.normalizer.Symbols(body, market.Account)
	if !ok {
		return nil, core.NewError(core.ErrorTypeProtocol, MsgUnexpectedResponse)
	}
	return symbols, nil
}

func (p *Protocol) parseKlines(params core.Params, doc core.Document) ([]core.KlineCandle, error) {
	switch body := doc.Value().(type) {
	case map[string]any:
		if err := exchangeError(body); err != nil {
			return nil, err
		}
		return nil, core.NewError(core.ErrorTypeProtocol, MsgUnexpectedKlines)
	case []any:
		candles := p.normalizer.Klines(body)
		if len(candles) == 0 {
			return nil, core.Errorf(core.ErrorTypeData, "No candle data returned for %s (%s)",
				strings.ToUpper(strings.TrimSpace(stringParam(params, "symbol"))),
				strings.TrimSpace(stringParam(params, "interval")))
		}
		return candles, nil
	default:
		return nil, core.NewError(core.ErrorTypeProtocol, MsgUnexpectedKlines)
	}
}

// exchangeError reports the error envelope of body as an ExchangeError.
func exchangeError(body map[string]any) *core.Error {
	code, msg, ok := envelope(body)
	if !ok {
		return nil
	}
	return core.NewError(core.ErrorTypeExchange, msg).WithCode(code)
}

func stringParam(params core.Params, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func intParam(params core.Params, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
