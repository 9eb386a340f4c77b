package ws

import "sync/atomic"

// ConnState represents the current connection state of a websocket.
type ConnState int32

// Connection states for websocket lifecycle management.
const (
	// StateIdle indicates no connection, either never opened or closed cleanly.
	StateIdle ConnState = iota
	// StateConnecting indicates the handshake is in progress.
	StateConnecting
	// StateOpen indicates frames are being received.
	StateOpen
	// StateFailed indicates the last connection ended with a transport error.
	StateFailed
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	return [...]string{
		"idle",
		"connecting",
		"open",
		"failed",
	}[s]
}

// Active reports whether a connection is being opened or is open.
func (s ConnState) Active() bool {
	return s == StateConnecting || s == StateOpen
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and swaps to new if equal.
// It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
