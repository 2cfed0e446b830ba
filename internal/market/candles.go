package market

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// CandleService caches candlestick series per (symbol, period). Series are
// replaced as whole documents on refresh, so a reader always observes one
// complete generation and never a mix of old and new bars.
type CandleService struct {
	storage      interfaces.StorageManager
	client       interfaces.MarketDataClient
	logger       *common.Logger
	ttl          time.Duration
	fetchTimeout time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewCandleService creates a candlestick cache service.
func NewCandleService(
	storage interfaces.StorageManager,
	client interfaces.MarketDataClient,
	logger *common.Logger,
	ttl time.Duration,
	fetchTimeout time.Duration,
) *CandleService {
	if ttl <= 0 {
		ttl = common.FreshnessCandles
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &CandleService{
		storage:      storage,
		client:       client,
		logger:       logger,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// GetCandles returns the series for a symbol and period with its freshness.
// Like quotes, an expired series survives an upstream failure as a stale
// result, and models.ErrNoData is returned only when nothing is cached.
func (s *CandleService) GetCandles(ctx context.Context, symbol string, period models.Period) (*models.CandleSeries, models.Freshness, error) {
	sym, err := models.ValidateSymbol(symbol)
	if err != nil {
		return nil, "", err
	}
	if _, ok := models.PeriodSpecs[period]; !ok {
		return nil, "", fmt.Errorf("%w: unknown period %q", models.ErrValidation, period)
	}

	key := models.SeriesKey(sym, period)

	if series, err := s.storage.SeriesStorage().GetSeries(ctx, sym, period); err == nil && s.isFresh(series.FetchedAt) {
		return series, models.FreshnessFresh, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if series, err := s.storage.SeriesStorage().GetSeries(ctx, sym, period); err == nil && s.isFresh(series.FetchedAt) {
			return series, nil
		}
		return s.refresh(ctx, sym, period)
	})
	if err == nil {
		return v.(*models.CandleSeries), models.FreshnessFresh, nil
	}

	s.logger.Warn().
		Str("symbol", sym).
		Str("period", string(period)).
		Err(err).
		Msg("candle fetch failed, trying stale fallback")

	if series, serr := s.storage.SeriesStorage().GetSeries(ctx, sym, period); serr == nil {
		return series, models.FreshnessStale, nil
	}

	return nil, "", fmt.Errorf("%w: candles %s: %v", models.ErrNoData, key, err)
}

func (s *CandleService) refresh(ctx context.Context, symbol string, period models.Period) (*models.CandleSeries, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	bars, err := s.client.FetchCandles(fetchCtx, symbol, period)
	if err != nil {
		return nil, err
	}

	series := &models.CandleSeries{
		Symbol:    symbol,
		Period:    period,
		Bars:      bars,
		FetchedAt: s.now(),
	}

	if err := s.storage.SeriesStorage().ReplaceSeries(ctx, series); err != nil {
		s.logger.Warn().
			Str("symbol", symbol).
			Str("period", string(period)).
			Err(err).
			Msg("failed to persist candle series")
	}
	return series, nil
}

func (s *CandleService) isFresh(fetchedAt time.Time) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return s.now().Sub(fetchedAt) < s.ttl
}
