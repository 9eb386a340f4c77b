package core

import (
	"fmt"
	"strings"
)

// AccountKind selects the exchange product family a query targets.
type AccountKind int

// Account kinds.
const (
	// AccountSpot targets the spot market.
	AccountSpot AccountKind = iota
	// AccountFutures targets the USD-margined perpetual and delivery futures market.
	AccountFutures
)

// String returns the string representation of the account kind ("spot" or "futures").
func (a AccountKind) String() string {
	return [...]string{
		"spot",
		"futures",
	}[a]
}

// ParseAccountKind converts a configuration string into an AccountKind.
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spot":
		return AccountSpot, nil
	case "futures", "usdm", "perp", "perpetual":
		return AccountFutures, nil
	default:
		return AccountSpot, fmt.Errorf("unknown account kind %q", s)
	}
}

// Network selects between the live and test environments.
type Network int

// Networks.
const (
	NetworkLive Network = iota
	NetworkTestnet
)

// String returns "live" or "testnet".
func (n Network) String() string {
	return [...]string{
		"live",
		"testnet",
	}[n]
}

// ParseNetwork converts a configuration string into a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "mainnet", "prod", "production":
		return NetworkLive, nil
	case "testnet", "test", "sandbox":
		return NetworkTestnet, nil
	default:
		return NetworkLive, fmt.Errorf("unknown network %q", s)
	}
}

// MarketSelector picks the host set for a query.
type MarketSelector struct {
	Account AccountKind `json:"account"`
	Network Network     `json:"network"`
}

// Spot returns a live spot selector.
func Spot() MarketSelector {
	return MarketSelector{Account: AccountSpot, Network: NetworkLive}
}

// Futures returns a live futures selector.
func Futures() MarketSelector {
	return MarketSelector{Account: AccountFutures, Network: NetworkLive}
}

// Testnet returns a copy of m pointing at the test environment.
func (m MarketSelector) Testnet() MarketSelector {
	m.Network = NetworkTestnet
	return m
}

// IsFutures reports whether the selector targets the futures market.
func (m MarketSelector) IsFutures() bool {
	return m.Account == AccountFutures
}

// IsTestnet reports whether the selector targets the test environment.
func (m MarketSelector) IsTestnet() bool {
	return m.Network == NetworkTestnet
}

func (m MarketSelector) String() string {
	return m.Account.String() + "/" + m.Network.String()
}
