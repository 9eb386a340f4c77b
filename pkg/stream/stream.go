package stream

import (
	"time"

	"tradedesk/internal/ws"
)

type ConnState = ws.ConnState

const (
	StateIdle       = ws.StateIdle
	StateConnecting = ws.StateConnecting
	StateOpen       = ws.StateOpen
	StateFailed     = ws.StateFailed
)

// BaseConfig holds the connection settings shared by all streams.
// Streams never reconnect on their own.
type BaseConfig struct {
	// HandshakeTimeout bounds the dial and upgrade.
	HandshakeTimeout time.Duration
	// ReadTimeout closes the connection when no frame or ping arrives in time.
	ReadTimeout time.Duration
}

func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      5 * time.Minute,
	}
}

func (c BaseConfig) withDefaults() BaseConfig {
	def := DefaultBaseConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	return c
}
