package core

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultUserAgent is sent with every REST request unless overridden.
const DefaultUserAgent = "tradedesk/1.0"

// Config contains the connection settings shared by all queries of a client.
// Per-query choices (market, timeout, limit) are passed as options and fall
// back to the values here.
type Config struct {
	Exchange string         `json:"exchange" validate:"required"`
	Market   MarketSelector `json:"market"`

	// Timeout bounds a whole query: rate limiter wait plus the HTTP exchange.
	Timeout   time.Duration `json:"timeout" validate:"min=1ms"`
	UserAgent string        `json:"user_agent" validate:"required"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	// CatalogTTL is how long a fetched symbol catalog is served from cache.
	CatalogTTL time.Duration `json:"catalog_ttl" validate:"min=0"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with sensible defaults for the specified exchange.
// Default values: live spot market, 10s timeout, 1200 req/min rate limit,
// 5m catalog TTL, circuit breaker with 5 failures/2 successes/30s timeout.
func DefaultConfig(exchange string) *Config {
	return &Config{
		Exchange:  exchange,
		Market:    Spot(),
		Timeout:   10 * time.Second,
		UserAgent: DefaultUserAgent,

		RateLimitRequests: 1200,
		RateLimitPeriod:   time.Minute,

		CatalogTTL: 5 * time.Minute,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return errors.New("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return errors.New("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerTimeout <= 0 {
			return errors.New("CircuitBreakerTimeout must be positive when enabled")
		}
	}
	return nil
}

// WithMarket sets the default market selector and returns the config for chaining.
func (c *Config) WithMarket(market MarketSelector) *Config {
	c.Market = market
	return c
}

// WithTestnet switches the default market to the test network and returns the config for chaining.
func (c *Config) WithTestnet(testnet bool) *Config {
	if testnet {
		c.Market.Network = NetworkTestnet
	} else {
		c.Market.Network = NetworkLive
	}
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithUserAgent sets the User-Agent header value and returns the config for chaining.
func (c *Config) WithUserAgent(ua string) *Config {
	c.UserAgent = ua
	return c
}

// WithRateLimit sets the rate limiting parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithCircuitBreaker enables or disables the circuit breaker and returns the config for chaining.
func (c *Config) WithCircuitBreaker(enabled bool) *Config {
	c.CircuitBreakerEnabled = enabled
	return c
}

// WithCatalogTTL sets the symbol catalog cache lifetime and returns the config for chaining.
func (c *Config) WithCatalogTTL(ttl time.Duration) *Config {
	c.CatalogTTL = ttl
	return c
}
