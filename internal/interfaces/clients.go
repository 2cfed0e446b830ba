// Package interfaces defines service contracts for the market-data core.
package interfaces

import (
	"context"

	"github.com/bobmcallan/mystock-core/internal/models"
)

// MarketDataClient provides access to the upstream market data provider.
// Implementations may fail with client.ErrTimeout, client.ErrRateLimited, or
// client.ErrNotFound; callers absorb those into cache semantics.
type MarketDataClient interface {
	// FetchQuote retrieves a live quote for a symbol.
	FetchQuote(ctx context.Context, symbol string) (*models.QuoteEntry, error)

	// FetchCandles retrieves OHLCV bars for a symbol at the given period,
	// sorted oldest first and capped per the period table.
	FetchCandles(ctx context.Context, symbol string, period models.Period) ([]models.Candle, error)

	// FetchTopMovers retrieves the top-gainers, top-losers, and
	// most-active listings in one logical call.
	FetchTopMovers(ctx context.Context) (*models.TopMovers, error)
}
