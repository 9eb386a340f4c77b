// Package catalog serves the symbol list shown in symbol pickers. Listings
// are cached per market and fall back to a short fixed list when the
// exchange cannot be reached.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/pkg/core"
	"tradedesk/pkg/exchange"
	"tradedesk/pkg/symbol"
)

var fallbackSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}

// FallbackSymbols returns the list used when no catalog can be fetched.
func FallbackSymbols() []string {
	return slices.Clone(fallbackSymbols)
}

// Source is the part of an exchange the catalog reads from.
type Source interface {
	FetchSymbols(ctx context.Context, opts ...exchange.Option) ([]string, error)
}

// Entry pairs a canonical symbol with its display form.
type Entry struct {
	Symbol  string `json:"symbol"`
	Display string `json:"display"`
}

// Listing is the result of one Load. Fallback is set when the entries are
// the fixed fallback list; Err then holds the fetch failure, if any.
type Listing struct {
	Market    core.MarketSelector `json:"market"`
	Entries   []Entry             `json:"entries"`
	Fallback  bool                `json:"fallback"`
	Cached    bool                `json:"cached"`
	FetchedAt time.Time           `json:"fetched_at"`
	Err       error               `json:"-"`
}

// Symbols returns the canonical symbols in listing order.
func (l Listing) Symbols() []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Symbol
	}
	return out
}

// Find returns the entry for s, accepting canonical or display forms.
func (l Listing) Find(s string) (Entry, bool) {
	want := symbol.Canonical(s)
	for _, e := range l.Entries {
		if e.Symbol == want {
			return e, true
		}
	}
	return Entry{}, false
}

// Status is a one-line summary for a status bar.
func (l Listing) Status() string {
	switch {
	case !l.Fallback:
		return fmt.Sprintf("Loaded %d symbols.", len(l.Entries))
	case l.Err != nil:
		return "Using fallback symbols: " + core.Message(l.Err)
	default:
		return "Using fallback symbol list."
	}
}

type Catalog struct {
	source Source
	cache  *Cache[Listing]
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Catalog)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = l
	}
}

// New returns a Catalog reading from source. Fetched listings are reused
// for ttl; a ttl of zero disables caching.
func New(source Source, ttl time.Duration, opts ...Option) *Catalog {
	c := &Catalog{
		source: source,
		cache:  NewCache[Listing](ttl),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the listing for market, from cache when fresh.
func (c *Catalog) Load(ctx context.Context, market core.MarketSelector, opts ...exchange.Option) Listing {
	if l, ok := c.cache.Get(market.String()); ok {
		l.Cached = true
		l.Entries = slices.Clone(l.Entries)
		return l
	}
	return c.Refresh(ctx, market, opts...)
}

// Refresh fetches the listing for market, bypassing the cache. Failures and
// empty catalogs yield the fallback list and are not cached.
func (c *Catalog) Refresh(ctx context.Context, market core.MarketSelector, opts ...exchange.Option) Listing {
	opts = append(slices.Clone(opts), exchange.WithMarket(market))
	symbols, err := c.source.FetchSymbols(ctx, opts...)

	l := Listing{Market: market, FetchedAt: c.now()}
	if err != nil || len(symbols) == 0 {
		l.Fallback = true
		l.Err = err
		l.Entries = entries(fallbackSymbols, market.Account)
		c.logger.Warn().Err(err).Str("market", market.String()).Msg("using fallback symbols")
		return l
	}

	l.Entries = entries(symbols, market.Account)
	cached := l
	cached.Entries = slices.Clone(l.Entries)
	c.cache.Set(market.String(), cached, 0)
	c.logger.Debug().Str("market", market.String()).Int("symbols", len(symbols)).Msg("symbol catalog loaded")
	return l
}

// Invalidate drops every cached listing.
func (c *Catalog) Invalidate() {
	c.cache.Clear()
}

func entries(symbols []string, account core.AccountKind) []Entry {
	out := make([]Entry, len(symbols))
	for i, s := range symbols {
		out[i] = Entry{Symbol: s, Display: symbol.Display(s, account)}
	}
	return out
}
