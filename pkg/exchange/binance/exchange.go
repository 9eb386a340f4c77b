package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/internal/circuitbreaker"
	"tradedesk/internal/fetch"
	"tradedesk/internal/keyring"
	"tradedesk/internal/ratelimit"
	"tradedesk/pkg/core"
	"tradedesk/pkg/exchange"
	"tradedesk/pkg/stream"
	"tradedesk/pkg/symbol"
)

// Name is the registry name of the Binance adapter.
const Name = "binance"

// Client implements exchange.Exchange for Binance spot and USD-M futures.
// Queries pass through a rate limiter and a circuit breaker and are never
// retried.
type Client struct {
	config         *core.Config
	protocol       *Protocol
	fetcher        *fetch.Fetcher
	rateLimiter    *ratelimit.RateLimiter
	circuitBreaker *circuitbreaker.Breaker
	keyRing        *keyring.KeyRing
	logger         zerolog.Logger
	baseURL        string
	streamURL      string
	streamConfig   stream.TickerStreamConfig
	now            func() time.Time
}

var _ exchange.Exchange = (*Client)(nil)

// Option is a functional option for configuring the Client.
type Option func(*Options)

// Options holds configuration options for the Client.
type Options struct {
	KeyRing      *keyring.KeyRing
	Logger       zerolog.Logger
	BaseURL      string
	StreamURL    string
	StreamConfig stream.TickerStreamConfig
	Clock        func() time.Time
}

// WithKeyRing returns an option that sets the session credential store used
// by FetchActiveBalance.
func WithKeyRing(kr *keyring.KeyRing) Option {
	return func(o *Options) {
		o.KeyRing = kr
	}
}

// WithLogger returns an option that sets the logger for the client and its streams.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithBaseURL replaces the REST host for every market.
func WithBaseURL(u string) Option {
	return func(o *Options) {
		o.BaseURL = strings.TrimRight(u, "/")
	}
}

// WithStreamURL replaces the websocket host for every market.
func WithStreamURL(u string) Option {
	return func(o *Options) {
		o.StreamURL = strings.TrimRight(u, "/")
	}
}

// WithStreamConfig sets the handshake and read timeouts of ticker streams.
func WithStreamConfig(c stream.TickerStreamConfig) Option {
	return func(o *Options) {
		o.StreamConfig = c
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

// New creates a Client from config. The rate limiter and circuit breaker are
// set up from the config fields.
func New(config *core.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &Options{
		Logger:       zerolog.Nop(),
		StreamConfig: stream.DefaultTickerStreamConfig(),
		Clock:        time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger.With().Str("exchange", Name).Logger()

	fetcher, err := fetch.New(&fetch.Config{
		DefaultTimeout: config.Timeout,
		UserAgent:      config.UserAgent,
	}, fetch.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	var cb *circuitbreaker.Breaker
	if config.CircuitBreakerEnabled {
		cb = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}

	return &Client{
		config:         config,
		protocol:       NewProtocol(),
		fetcher:        fetcher,
		rateLimiter:    ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod),
		circuitBreaker: cb,
		keyRing:        options.KeyRing,
		logger:         logger,
		baseURL:        options.BaseURL,
		streamURL:      options.StreamURL,
		streamConfig:   options.StreamConfig,
		now:            options.Clock,
	}, nil
}

// Name returns the exchange identifier "binance".
func (c *Client) Name() string {
	return Name
}

// Protocol returns the request builder used by the client.
func (c *Client) Protocol() *Protocol {
	return c.protocol
}

// Close releases the HTTP transport. Open streams are not affected.
func (c *Client) Close() error {
	return c.fetcher.Close()
}

// CircuitState reports the breaker state, or closed when the breaker is disabled.
func (c *Client) CircuitState() circuitbreaker.State {
	if c.circuitBreaker == nil {
		return circuitbreaker.StateClosed
	}
	return c.circuitBreaker.State()
}

// RateLimitMetrics returns the limiter counters.
func (c *Client) RateLimitMetrics() ratelimit.MetricsSnapshot {
	return c.rateLimiter.Metrics()
}

func (c *Client) restURL(market core.MarketSelector) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return c.protocol.BaseURL(market)
}

func (c *Client) wsURL(market core.MarketSelector) string {
	host := c.streamURL
	if host == "" {
		host = c.protocol.StreamURL(market)
	}
	return host + "/ws"
}

// FetchBalance returns the USDT balance of the account behind creds. Blank
// credentials fail with CredentialsMissing before any request is made.
func (c *Client) FetchBalance(ctx context.Context, creds core.Credentials, opts ...exchange.Option) (float64, error) {
	if creds.Blank() {
		return 0, c.tag(core.NewError(core.ErrorTypeCredentialsMissing, MsgMissingCredentials), core.OpGetBalance)
	}

	result, err := c.query(ctx, core.OpGetBalance, core.Params{}, &creds, opts...)
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

// FetchActiveBalance is FetchBalance with the active keyring profile.
func (c *Client) FetchActiveBalance(ctx context.Context, opts ...exchange.Option) (float64, error) {
	if c.keyRing == nil {
		return 0, c.tag(core.NewError(core.ErrorTypeCredentialsMissing, MsgMissingCredentials), core.OpGetBalance)
	}
	creds, ok := c.keyRing.Current()
	if !ok {
		return 0, c.tag(core.NewError(core.ErrorTypeCredentialsMissing, MsgMissingCredentials), core.OpGetBalance)
	}

	balance, err := c.FetchBalance(ctx, creds, opts...)
	if err != nil {
		c.keyRing.OnError(err)
		return 0, err
	}
	c.keyRing.MarkUsed()
	return balance, nil
}

// FetchSymbols returns the sorted tradable USDT symbols of the market.
func (c *Client) FetchSymbols(ctx context.Context, opts ...exchange.Option) ([]string, error) {
	result, err := c.query(ctx, core.OpGetSymbols, core.Params{}, nil, opts...)
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// FetchKlines returns up to the requested number of candles (default 300,
// clamped to [10, 1000]) in ascending open time.
func (c *Client) FetchKlines(ctx context.Context, sym, interval string, opts ...exchange.Option) ([]core.KlineCandle, error) {
	options := exchange.ApplyOptions(opts...)
	params := core.Params{
		"symbol":   symbol.Canonical(sym),
		"interval": strings.TrimSpace(interval),
		"limit":    ClampKlineLimit(options.Limit),
	}

	result, err := c.query(ctx, core.OpGetKlines, params, nil, opts...)
	if err != nil {
		return nil, err
	}
	return result.([]core.KlineCandle), nil
}

// NewTickerStream returns an idle bookTicker stream reporting to handler.
func (c *Client) NewTickerStream(handler stream.Handler) exchange.TickerStream {
	s := NewBookTickerStream(handler, c.wsURL, c.streamConfig)
	s.SetLogger(c.logger)
	return s
}

func (c *Client) query(ctx context.Context, op core.Operation, params core.Params, creds *core.Credentials, opts ...exchange.Option) (any, error) {
	options := exchange.ApplyOptions(opts...)
	market := options.MarketOr(c.config.Market)
	timeout := options.TimeoutOr(c.config.Timeout)

	req, err := c.protocol.BuildRequest(op, market, params)
	if err != nil {
		return nil, c.tag(err, op)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx, market.String(), req.Weight); err != nil {
		return nil, c.tag(waitError(ctx, err), op)
	}

	if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
		return nil, c.tag(core.WrapError(core.ErrorTypeNetwork, core.ErrCircuitBreakerOpen.Error(), core.ErrCircuitBreakerOpen), op)
	}

	if req.RequireAuth {
		if creds == nil {
			return nil, c.tag(core.NewError(core.ErrorTypeCredentialsMissing, MsgMissingCredentials), op)
		}
		if err := c.protocol.SignRequest(req, *creds, c.now().UnixMilli()); err != nil {
			return nil, c.tag(err, op)
		}
	}

	start := time.Now()
	doc, err := c.fetcher.Fetch(ctx, req.URL(c.restURL(market)), req.Headers, timeout)
	if c.circuitBreaker != nil {
		c.circuitBreaker.Record(!core.IsTransportFailure(err))
	}
	if err != nil {
		err = promoteEnvelope(err)
		c.logger.Debug().Err(err).Str("op", op.String()).Str("market", market.String()).Dur("elapsed", time.Since(start)).Msg("query failed")
		return nil, c.tag(err, op)
	}

	result, err := c.protocol.ParseResponse(op, market, params, doc)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op.String()).Str("market", market.String()).Msg("response rejected")
		return nil, c.tag(err, op)
	}

	c.logger.Debug().Str("op", op.String()).Str("market", market.String()).Dur("elapsed", time.Since(start)).Msg("query completed")
	return result, nil
}

// promoteEnvelope turns an HTTP error whose body is a Binance error envelope
// into an ExchangeError carrying the exchange message.
func promoteEnvelope(err error) error {
	var e *core.Error
	if !errors.As(err, &e) || e.StatusCode < 400 || len(e.Body) == 0 {
		return err
	}
	doc, perr := fetch.Parse(e.Body)
	if perr != nil {
		return err
	}
	body, ok := doc.Object()
	if !ok {
		return err
	}
	ex := exchangeError(body)
	if ex == nil {
		return err
	}
	ex.StatusCode = e.StatusCode
	ex.Body = e.Body
	ex.Err = e
	return ex
}

func waitError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return core.WrapError(core.ErrorTypeNetwork, ctx.Err().Error(), ctx.Err())
	}
	return core.WrapError(core.ErrorTypeTimeout, fetch.MsgTimeout, err)
}

func (c *Client) tag(err error, op core.Operation) error {
	var e *core.Error
	if errors.As(err, &e) {
		return e.WithOp(op).WithExchange(Name)
	}
	return core.WrapError(core.ErrorTypeUnknown, err.Error(), err).WithOp(op).WithExchange(Name)
}

// Register creates a Client and registers it with the container.
func Register(container *exchange.Container, config *core.Config, opts ...Option) error {
	client, err := New(config, opts...)
	if err != nil {
		return fmt.Errorf("create binance client: %w", err)
	}
	container.Register(Name, client)
	return nil
}
