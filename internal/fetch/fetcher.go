// Package fetch performs single JSON GET requests with a hard deadline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"tradedesk/pkg/core"
)

// Messages reported for failures that carry no transport text of their own.
const (
	MsgTimeout     = "Request timeout"
	MsgInvalidJSON = "Invalid JSON response"
)

// Fetcher issues single JSON GET requests over a shared resty client.
type Fetcher struct {
	client *resty.Client
	config Config
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// Config holds the settings shared by every request of a Fetcher.
type Config struct {
	// DefaultTimeout applies when a call passes a non-positive timeout.
	DefaultTimeout time.Duration `validate:"min=1ms"`
	UserAgent      string        `validate:"required"`
}

// Outcome is the single value delivered by Go.
type Outcome struct {
	Doc *Document
	Err error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for request and response traces.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New validates config and returns a Fetcher that never retries.
func New(config *Config, opts ...Option) (*Fetcher, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New()
	client.SetRetryCount(0)
	client.SetHeader("User-Agent", config.UserAgent)
	client.SetDisableWarn(true)

	f := &Fetcher{
		client: client,
		config: *config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		f.logger.Debug().
			Str("method", req.Method).
			Str("url", RedactURL(req.URL)).
			Msg("http request")
		return nil
	})

	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		f.logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", RedactURL(resp.Request.URL)).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Dur("elapsed", resp.Duration()).
			Msg("http response")
		return nil
	})

	return f, nil
}

// Close releases the client. Later calls fail with ErrClientClosed.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.client.Close()
}

// Go starts the request and returns a channel that yields exactly one
// Outcome and is then closed. It never blocks the caller.
func (f *Fetcher) Go(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		doc, err := f.get(ctx, rawURL, headers, timeout)
		out <- Outcome{Doc: doc, Err: err}
	}()
	return out
}

// Fetch is the blocking form of Go. Only the calling goroutine waits.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (*Document, error) {
	o := <-f.Go(ctx, rawURL, headers, timeout)
	return o.Doc, o.Err
}

func (f *Fetcher) get(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().Interface("panic", r).Str("url", RedactURL(rawURL)).Msg("http transport panic")
			doc, err = nil, core.Errorf(core.ErrorTypeNetwork, "transport failure: %v", r)
		}
	}()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, core.WrapError(core.ErrorTypeNetwork, core.ErrClientClosed.Error(), core.ErrClientClosed)
	}

	if timeout <= 0 {
		timeout = f.config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(rawURL)
	if err != nil {
		return nil, f.transportError(ctx, resp, err)
	}

	body := resp.Bytes()
	if resp.StatusCode() >= 400 {
		e := core.NewError(core.ErrorTypeNetwork, withBody(resp.Status(), body))
		e.StatusCode = resp.StatusCode()
		e.Body = body
		return nil, e
	}

	doc, perr := Parse(body)
	if perr != nil {
		f.logger.Debug().Err(perr).Str("url", RedactURL(rawURL)).Msg("invalid json body")
		return nil, core.WrapError(core.ErrorTypeProtocol, MsgInvalidJSON, perr)
	}
	doc.status = resp.StatusCode()
	return doc, nil
}

func (f *Fetcher) transportError(ctx context.Context, resp *resty.Response, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isNetTimeout(err) {
		return core.WrapError(core.ErrorTypeTimeout, MsgTimeout, err)
	}

	var body []byte
	if resp != nil {
		body = resp.Bytes()
	}
	e := core.WrapError(core.ErrorTypeNetwork, withBody(err.Error(), body), err)
	e.Body = body
	if resp != nil {
		e.StatusCode = resp.StatusCode()
	}
	return e
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func withBody(msg string, body []byte) string {
	if len(body) == 0 {
		return msg
	}
	return msg + " | " + string(body)
}

// RedactURL masks the signature query parameter.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("signature") {
		return raw
	}
	q.Set("signature", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
