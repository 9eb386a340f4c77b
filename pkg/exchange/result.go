package exchange

import (
	"context"

	"tradedesk/pkg/core"
)

// Balance runs FetchBalance and folds the outcome into a BalanceResult.
func Balance(ctx context.Context, ex Exchange, creds core.Credentials, opts ...Option) core.BalanceResult {
	v, err := ex.FetchBalance(ctx, creds, opts...)
	return core.ResultOf(v, err)
}

// Symbols runs FetchSymbols and folds the outcome into a SymbolsResult.
func Symbols(ctx context.Context, ex Exchange, opts ...Option) core.SymbolsResult {
	v, err := ex.FetchSymbols(ctx, opts...)
	return core.ResultOf(v, err)
}

// Klines runs FetchKlines and folds the outcome into a KlinesResult.
func Klines(ctx context.Context, ex Exchange, symbol, interval string, opts ...Option) core.KlinesResult {
	v, err := ex.FetchKlines(ctx, symbol, interval, opts...)
	return core.ResultOf(v, err)
}
