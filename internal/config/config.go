// Package config loads client settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tradedesk/pkg/core"
	"tradedesk/pkg/symbol"
)

// Prefix is prepended to every variable name read by Load.
const Prefix = "TRADEDESK_"

const (
	DefaultExchange = "binance"
	DefaultSymbol   = "BTCUSDT"
	DefaultInterval = "1h"
)

// Settings is everything a program needs to build a client.
type Settings struct {
	Config      *core.Config
	Credentials core.Credentials
	Symbol      string `validate:"required"`
	Interval    string `validate:"required"`
}

var validate = validator.New()

// Validate checks the embedded config and the default chart selection.
func (s *Settings) Validate() error {
	if s.Config == nil {
		return errors.New("config is required")
	}
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !slices.Contains(symbol.Intervals(), s.Interval) {
		return fmt.Errorf("unsupported interval %q", s.Interval)
	}
	return nil
}

// Load reads the given .env files (".env" when none are named) into the
// process environment and builds Settings from it. Variables already set
// take precedence over file values. Missing files are not an error.
func Load(files ...string) (*Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Debug().Str("file", f).Msg("env file not found, relying on environment variables")
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds Settings from lookup, starting from core.DefaultConfig.
// Every malformed variable is reported.
func FromEnv(lookup func(string) (string, bool)) (*Settings, error) {
	r := reader{lookup: lookup}

	cfg := core.DefaultConfig(r.str("EXCHANGE", DefaultExchange))
	if v, ok := r.get("ACCOUNT"); ok {
		kind, err := core.ParseAccountKind(v)
		r.fail("ACCOUNT", err)
		cfg.Market.Account = kind
	}
	if v, ok := r.get("NETWORK"); ok {
		n, err := core.ParseNetwork(v)
		r.fail("NETWORK", err)
		cfg.Market.Network = n
	}
	cfg.Timeout = r.duration("TIMEOUT", cfg.Timeout)
	cfg.UserAgent = r.str("USER_AGENT", cfg.UserAgent)
	cfg.RateLimitRequests = r.int("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitPeriod = r.duration("RATE_LIMIT_PERIOD", cfg.RateLimitPeriod)
	cfg.CatalogTTL = r.duration("CATALOG_TTL", cfg.CatalogTTL)
	cfg.CircuitBreakerEnabled = r.bool("CIRCUIT_BREAKER", cfg.CircuitBreakerEnabled)
	cfg.LogLevel = strings.ToLower(r.str("LOG_LEVEL", cfg.LogLevel))

	s := &Settings{
		Config: cfg,
		Credentials: core.NewCredentials(
			strings.TrimSpace(r.str("API_KEY", "")),
			strings.TrimSpace(r.str("API_SECRET", "")),
		),
		Symbol:   symbol.Canonical(r.str("SYMBOL", DefaultSymbol)),
		Interval: strings.ToLower(r.str("INTERVAL", DefaultInterval)),
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Logger returns a logger writing to w at the configured level. Unknown
// levels fall back to info.
func (s *Settings) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(s.Config.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(Prefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *reader) fail(key string, err error) {
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", Prefix, key, err))
	}
}

func (r *reader) str(key, def string) string {
	if v, ok := r.get(key); ok {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return b
}
