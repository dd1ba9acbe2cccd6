package market

import (
	"context"
	"errors"
)

var (
	// ErrUnknownSymbol is returned per call for delisted or unknown pairs; callers skip the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInsufficientData means the series is shorter than the indicator warm-up.
	ErrInsufficientData = errors.New("insufficient data")
)

// Feed is the market data collaborator. Implementations must fail per call
// rather than abort a batch when one symbol is bad.
type Feed interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// PriceFeed is the subset used by position monitoring and outcome resolution.
type PriceFeed interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// UniverseLister discovers tradable symbols when none are configured.
type UniverseLister interface {
	ListSymbols(ctx context.Context, quote string, max int) ([]string, error)
}
