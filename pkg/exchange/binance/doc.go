// Package binance implements the Binance exchange adapter for spot and
// USD-M futures markets.
//
// The package includes:
//   - Client: USDT balance, tradable symbol catalog and klines over REST
//   - Protocol: request building, HMAC-SHA256 signing and response parsing
//   - Normalizer: conversion of Binance payloads to canonical types
//   - BookTickerStream: best bid/ask over the bookTicker websocket stream
//
// Example usage:
//
//	client, err := binance.New(core.DefaultConfig(binance.Name).WithMarket(core.Futures()))
//	symbols, err := client.FetchSymbols(ctx)
//	candles, err := client.FetchKlines(ctx, "BTCUSDT", "1h", exchange.WithLimit(500))
package binance
