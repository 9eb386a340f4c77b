package exchange

import (
	"time"

	"tradedesk/pkg/core"
)

// DefaultKlineLimit is the candle count requested when WithLimit is not given.
const DefaultKlineLimit = 300

type Option func(*Options)

type Options struct {
	// Market overrides the client's default market when non-nil.
	Market *core.MarketSelector
	// Timeout overrides the client's default query timeout when positive.
	Timeout time.Duration
	Limit   int
}

func WithMarket(m core.MarketSelector) Option {
	return func(o *Options) {
		o.Market = &m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{Limit: DefaultKlineLimit}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MarketOr returns the selected market, or def when none was given.
func (o *Options) MarketOr(def core.MarketSelector) core.MarketSelector {
	if o.Market == nil {
		return def
	}
	return *o.Market
}

// TimeoutOr returns the selected timeout, or def when none was given.
func (o *Options) TimeoutOr(def time.Duration) time.Duration {
	if o.Timeout <= 0 {
		return def
	}
	return o.Timeout
}
