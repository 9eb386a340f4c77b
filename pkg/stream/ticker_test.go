package stream

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/pkg/core"
)

type peerHandler struct {
	gws.BuiltinEventHandler
	frames []string
	after  func(socket *gws.Conn)
}

func (h *peerHandler) OnOpen(socket *gws.Conn) {
	for _, f := range h.frames {
		_ = socket.WriteMessage(gws.OpcodeText, []byte(f))
	}
	if h.after != nil {
		h.after(socket)
	}
}

func newPeer(t *testing.T, h *peerHandler) string {
	t.Helper()
	upgrader := gws.NewUpgrader(h, &gws.ServerOption{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		go socket.ReadLoop()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testDecoder(data []byte) (core.TickerUpdate, bool) {
	var frame struct {
		S string `json:"s"`
		B string `json:"b"`
		A string `json:"a"`
	}
	if err := sonic.Unmarshal(data, &frame); err != nil || frame.S == "" {
		return core.TickerUpdate{}, false
	}
	bid, err := strconv.ParseFloat(frame.B, 64)
	if err != nil {
		return core.TickerUpdate{}, false
	}
	ask, err := strconv.ParseFloat(frame.A, 64)
	if err != nil {
		return core.TickerUpdate{}, false
	}
	return core.TickerUpdate{Symbol: frame.S, BidPrice: bid, AskPrice: ask}, true
}

type recorder struct {
	mu      sync.Mutex
	events  chan string
	tickers []core.TickerUpdate
	errs    []error
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 64)}
}

func (r *recorder) handler() Handler {
	return HandlerFuncs{
		Connected:    func() { r.events <- "connected" },
		Disconnected: func() { r.events <- "disconnected" },
		Error: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.events <- "error"
		},
		Ticker: func(u core.TickerUpdate) {
			r.mu.Lock()
			r.tickers = append(r.tickers, u)
			r.mu.Unlock()
			r.events <- "ticker"
		},
	}
}

func (r *recorder) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return ""
	}
}

func (r *recorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected stream event %q", ev)
	case <-time.After(d):
	}
}

func newTestStream(rec *recorder) *TickerStream {
	return NewTickerStream(rec.handler(), testDecoder, TickerStreamConfig{
		BaseConfig: BaseConfig{HandshakeTimeout: 2 * time.Second, ReadTimeout: 5 * time.Second},
	})
}

func TestTickerStream_DeliversValidFrames(t *testing.T) {
	url := newPeer(t, &peerHandler{frames: []string{
		`not json`,
		`{"s":"BTCUSDT"}`,
		`{"s":"BTCUSDT","b":"10","a":"11"}`,
	}})

	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Open(context.Background(), url))
	defer s.Close()

	assert.Equal(t, "connected", rec.next(t))
	assert.Equal(t, "ticker", rec.next(t))
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, url, s.URL())
	assert.Equal(t, int64(2), s.Ignored())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.tickers, 1)
	assert.Equal(t, core.TickerUpdate{Symbol: "BTCUSDT", BidPrice: 10, AskPrice: 11}, rec.tickers[0])
	assert.Empty(t, rec.errs)
}

func TestTickerStream_CloseEmitsDisconnectedOnce(t *testing.T) {
	url := newPeer(t, &peerHandler{})

	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Open(context.Background(), url))
	assert.Equal(t, "connected", rec.next(t))

	require.NoError(t, s.Close())
	assert.Equal(t, "disconnected", rec.next(t))
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Close())
	rec.quiet(t, 200*time.Millisecond)
}

func TestTickerStream_CloseWhenIdle(t *testing.T) {
	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Close())
	assert.Equal(t, StateIdle, s.State())
	rec.quiet(t, 50*time.Millisecond)
}

func TestTickerStream_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	rec := newRecorder()
	s := newTestStream(rec)
	err := s.Open(context.Background(), url)
	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err) || core.IsTimeoutError(err))
	assert.Equal(t, StateFailed, s.State())

	assert.Equal(t, "error", rec.next(t))
	rec.quiet(t, 100*time.Millisecond)
}

func TestTickerStream_CancelledContext(t *testing.T) {
	url := newPeer(t, &peerHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newRecorder()
	s := newTestStream(rec)
	err := s.Open(ctx, url)
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, "error", rec.next(t))
}

func TestTickerStream_PeerNormalClose(t *testing.T) {
	url := newPeer(t, &peerHandler{
		frames: []string{`{"s":"ETHUSDT","b":"1","a":"2"}`},
		after: func(socket *gws.Conn) {
			socket.WriteClose(1000, nil)
		},
	})

	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Open(context.Background(), url))

	assert.Equal(t, "connected", rec.next(t))
	assert.Equal(t, "ticker", rec.next(t))
	assert.Equal(t, "disconnected", rec.next(t))
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Close())
	rec.quiet(t, 100*time.Millisecond)
}

func TestTickerStream_PeerDrop(t *testing.T) {
	url := newPeer(t, &peerHandler{
		after: func(socket *gws.Conn) {
			_ = socket.NetConn().Close()
		},
	})

	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Open(context.Background(), url))

	assert.Equal(t, "connected", rec.next(t))
	assert.Equal(t, "error", rec.next(t))
	assert.Equal(t, "disconnected", rec.next(t))
	assert.Equal(t, StateFailed, s.State())

	rec.mu.Lock()
	require.Len(t, rec.errs, 1)
	assert.True(t, core.IsNetworkError(rec.errs[0]))
	rec.mu.Unlock()
}

func TestTickerStream_ReopenTearsDownPrevious(t *testing.T) {
	first := newPeer(t, &peerHandler{})
	second := newPeer(t, &peerHandler{frames: []string{`{"s":"SOLUSDT","b":"100","a":"101"}`}})

	rec := newRecorder()
	s := newTestStream(rec)
	require.NoError(t, s.Open(context.Background(), first))
	assert.Equal(t, "connected", rec.next(t))

	require.NoError(t, s.Open(context.Background(), second))
	assert.Equal(t, "disconnected", rec.next(t))
	assert.Equal(t, "connected", rec.next(t))
	assert.Equal(t, "ticker", rec.next(t))
	assert.Equal(t, second, s.URL())

	require.NoError(t, s.Close())
	assert.Equal(t, "disconnected", rec.next(t))
	rec.quiet(t, 100*time.Millisecond)
}

// newSilentListener accepts TCP connections and never answers the upgrade.
func newSilentListener(t *testing.T) (string, <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan struct{}, 4)
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
			accepted <- struct{}{}
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "ws://" + ln.Addr().String() + "/ws", accepted
}

func TestTickerStream_CloseAbortsPendingDial(t *testing.T) {
	url, accepted := newSilentListener(t)

	rec := newRecorder()
	s := NewTickerStream(rec.handler(), testDecoder, TickerStreamConfig{
		BaseConfig: BaseConfig{HandshakeTimeout: 5 * time.Second, ReadTimeout: 5 * time.Second},
	})

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), url) }()

	select {
	case <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("dial never reached the listener")
	}
	assert.Equal(t, StateConnecting, s.State())

	start := time.Now()
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateIdle, s.State())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Open did not return after Close")
	}
	assert.Equal(t, StateIdle, s.State())
	rec.quiet(t, 200*time.Millisecond)

	require.NoError(t, s.Close())
	assert.Equal(t, StateIdle, s.State())
}

func TestHandlerFuncs_NilFieldsAreSkipped(t *testing.T) {
	var h Handler = HandlerFuncs{}
	assert.NotPanics(t, func() {
		h.OnConnected()
		h.OnDisconnected()
		h.OnError(nil)
		h.OnTicker(core.TickerUpdate{})
	})
}
