package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"tradedesk/internal/ws"
	"tradedesk/pkg/core"
)

// closeNormal is the websocket status for a clean shutdown.
const closeNormal uint16 = 1000

// Decoder turns one text frame into a ticker update. Frames it rejects are
// dropped without affecting the connection.
type Decoder func(data []byte) (core.TickerUpdate, bool)

type TickerStreamConfig struct {
	BaseConfig
}

func DefaultTickerStreamConfig() TickerStreamConfig {
	return TickerStreamConfig{
		BaseConfig: DefaultBaseConfig(),
	}
}

// TickerStream owns at most one websocket connection delivering ticker
// frames. Opening a new connection tears down the previous one first.
type TickerStream struct {
	config  TickerStreamConfig
	decode  Decoder
	handler Handler
	state   *ws.State
	logger  zerolog.Logger

	// connectMu serializes Open calls.
	connectMu sync.Mutex
	mu        sync.Mutex
	conn      *gws.Conn
	// cancel aborts the dial in progress, if any.
	cancel context.CancelFunc
	url    string
	// gen identifies the current connection; events from older ones are dropped.
	gen atomic.Uint64

	ignored atomic.Int64
}

type tickerHandler struct {
	stream *TickerStream
	gen    uint64
}

func NewTickerStream(handler Handler, decode Decoder, config TickerStreamConfig) *TickerStream {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	config.BaseConfig = config.BaseConfig.withDefaults()
	s := &TickerStream{
		config:  config,
		decode:  decode,
		handler: handler,
		state:   &ws.State{},
		logger:  zerolog.Nop(),
	}
	s.state.Store(StateIdle)
	return s
}

func (s *TickerStream) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

func (s *TickerStream) State() ConnState {
	return s.state.Load()
}

// URL returns the address of the current or last connection.
func (s *TickerStream) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Ignored returns how many frames were dropped by the decoder.
func (s *TickerStream) Ignored() int64 {
	return s.ignored.Load()
}

// Open closes any existing connection and dials url. On success the
// handler receives OnConnected before any frame. A Close issued while the
// dial is pending aborts it; Open then returns an error and reports nothing
// to the handler.
func (s *TickerStream) Open(ctx context.Context, url string) error {
	s.connectMu.Lock()

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	gen := s.gen.Add(1)
	old := s.conn
	s.conn = nil
	s.cancel = cancel
	s.url = url
	s.state.Store(StateConnecting)
	s.mu.Unlock()
	wasOpen := closeConn(old)

	dialer := &contextDialer{ctx: dialCtx, timeout: s.handshakeTimeout(ctx)}
	socket, err := s.dial(dialCtx, url, gen, dialer)
	dialer.release()

	s.mu.Lock()
	stale := !s.current(gen)
	if !stale {
		s.cancel = nil
		if err != nil {
			s.state.Store(StateFailed)
		} else {
			s.conn = socket
			s.state.Store(StateOpen)
		}
	}
	s.mu.Unlock()
	s.connectMu.Unlock()

	if wasOpen {
		s.handler.OnDisconnected()
	}
	if stale {
		if socket != nil {
			_ = socket.NetConn().Close()
		}
		s.logger.Debug().Str("url", url).Msg("ticker stream connect aborted")
		return core.WrapError(core.ErrorTypeNetwork, "connect "+url+": aborted", context.Canceled).WithOp(core.OpStreamBookTicker)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("ticker stream connect failed")
		s.handler.OnError(err)
		return err
	}

	s.logger.Info().Str("url", url).Msg("ticker stream connected")
	s.handler.OnConnected()
	go socket.ReadLoop()
	return nil
}

// Close ends the current connection or aborts a pending dial. It does not
// wait for the dial to return and is a no-op when nothing is open.
func (s *TickerStream) Close() error {
	s.mu.Lock()
	s.gen.Add(1)
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.cancel = nil
	if conn != nil || cancel != nil || s.state.Load() != StateFailed {
		s.state.Store(StateIdle)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closeConn(conn) {
		s.logger.Info().Msg("ticker stream disconnected")
		s.handler.OnDisconnected()
	}
	return nil
}

// closeConn sends a normal close and drops the connection. It reports
// whether there was one.
func closeConn(conn *gws.Conn) bool {
	if conn == nil {
		return false
	}
	conn.WriteClose(closeNormal, nil)
	_ = conn.NetConn().Close()
	return true
}

// handshakeTimeout is the configured timeout, shortened to the ctx deadline.
func (s *TickerStream) handshakeTimeout(ctx context.Context) time.Duration {
	timeout := s.config.HandshakeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	return timeout
}

func (s *TickerStream) dial(ctx context.Context, url string, gen uint64, dialer *contextDialer) (*gws.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.WrapError(core.ErrorTypeNetwork, err.Error(), err).WithOp(core.OpStreamBookTicker)
	}

	socket, _, err := gws.NewClient(&tickerHandler{stream: s, gen: gen}, &gws.ClientOption{
		Addr:             url,
		HandshakeTimeout: dialer.timeout,
		NewDialer: func() (gws.Dialer, error) {
			return dialer, nil
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, core.WrapError(core.ErrorTypeTimeout, fmt.Sprintf("connect %s: timed out", url), err).WithOp(core.OpStreamBookTicker)
		}
		return nil, core.WrapError(core.ErrorTypeNetwork, err.Error(), err).WithOp(core.OpStreamBookTicker)
	}
	return socket, nil
}

func (s *TickerStream) current(gen uint64) bool {
	return s.gen.Load() == gen
}

// contextDialer bounds the TCP connect by ctx and keeps the connection tied
// to ctx until release, so cancelling ctx also aborts the upgrade.
type contextDialer struct {
	ctx     context.Context
	timeout time.Duration

	mu   sync.Mutex
	stop func() bool
}

func (d *contextDialer) Dial(network, addr string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.timeout}
	conn, err := nd.DialContext(d.ctx, network, addr)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.stop = context.AfterFunc(d.ctx, func() { _ = conn.Close() })
	d.mu.Unlock()
	return conn, nil
}

// release detaches the dialed connection from ctx.
func (d *contextDialer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (h *tickerHandler) OnOpen(socket *gws.Conn) {
	_ = socket.SetDeadline(time.Now().Add(h.stream.config.ReadTimeout))
}

func (h *tickerHandler) OnClose(socket *gws.Conn, err error) {
	s := h.stream
	var ce *gws.CloseError
	normal := errors.As(err, &ce) && ce.Code == closeNormal

	s.mu.Lock()
	owned := s.current(h.gen) && s.conn == socket
	if owned {
		s.conn = nil
		if normal {
			s.state.CompareAndSwap(StateOpen, StateIdle)
		} else {
			s.state.CompareAndSwap(StateOpen, StateFailed)
		}
	}
	s.mu.Unlock()
	if !owned {
		return
	}

	if normal {
		s.logger.Info().Msg("ticker stream closed by peer")
		s.handler.OnDisconnected()
		return
	}

	s.logger.Warn().Err(err).Msg("ticker stream dropped")
	s.handler.OnError(core.WrapError(core.ErrorTypeNetwork, errorText(err), err).WithOp(core.OpStreamBookTicker))
	s.handler.OnDisconnected()
}

func (h *tickerHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.stream.config.ReadTimeout))
	_ = socket.WritePong(payload)
}

func (h *tickerHandler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.stream.config.ReadTimeout))
}

func (h *tickerHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = socket.SetDeadline(time.Now().Add(h.stream.config.ReadTimeout))

	s := h.stream
	if !s.current(h.gen) || message.Opcode != gws.OpcodeText {
		return
	}

	update, ok := s.decode(message.Bytes())
	if !ok {
		s.ignored.Add(1)
		s.logger.Debug().Int("size", message.Data.Len()).Msg("ignored ticker frame")
		return
	}
	s.handler.OnTicker(update)
}

func errorText(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
