package stream

import "tradedesk/pkg/core"

// Handler receives stream events. Calls for one connection are sequential.
// Every OnConnected is followed by exactly one OnDisconnected. Handlers may
// call Connect or Disconnect on the stream.
type Handler interface {
	OnConnected()
	OnDisconnected()
	OnError(err error)
	OnTicker(update core.TickerUpdate)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Connected    func()
	Disconnected func()
	Error        func(err error)
	Ticker       func(update core.TickerUpdate)
}

func (h HandlerFuncs) OnConnected() {
	if h.Connected != nil {
		h.Connected()
	}
}

func (h HandlerFuncs) OnDisconnected() {
	if h.Disconnected != nil {
		h.Disconnected()
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

func (h HandlerFuncs) OnTicker(update core.TickerUpdate) {
	if h.Ticker != nil {
		h.Ticker(update)
	}
}
