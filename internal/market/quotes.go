// Package market provides the TTL-cached quote and candlestick services.
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

// QuoteService serves live quotes through a per-symbol TTL cache over the
// market data client. A fresh entry is returned directly; an expired one
// triggers at most one upstream fetch per symbol (concurrent callers share
// the in-flight fetch), and on upstream failure the expired entry is served
// flagged stale rather than failing the caller.
type QuoteService struct {
	storage      interfaces.StorageManager
	client       interfaces.MarketDataClient
	logger       *common.Logger
	ttl          time.Duration
	fetchTimeout time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewQuoteService creates a quote cache service.
func NewQuoteService(
	storage interfaces.StorageManager,
	client interfaces.MarketDataClient,
	logger *common.Logger,
	ttl time.Duration,
	fetchTimeout time.Duration,
) *QuoteService {
	if ttl <= 0 {
		ttl = common.FreshnessQuote
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &QuoteService{
		storage:      storage,
		client:       client,
		logger:       logger,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// GetQuote returns the quote for a symbol with its freshness. Upstream
// failures are absorbed: the caller sees fresh data, stale data, or
// models.ErrNoData — never a raw provider error.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) (*models.QuoteEntry, models.Freshness, error) {
	sym, err := models.ValidateSymbol(symbol)
	if err != nil {
		return nil, "", err
	}

	if entry, err := s.storage.QuoteStorage().GetQuote(ctx, sym); err == nil && s.isFresh(entry.FetchedAt) {
		return entry, models.FreshnessFresh, nil
	}

	v, err, _ := s.group.Do(sym, func() (interface{}, error) {
		// Another caller may have landed a fetch while we waited on the key.
		if entry, err := s.storage.QuoteStorage().GetQuote(ctx, sym); err == nil && s.isFresh(entry.FetchedAt) {
			return entry, nil
		}
		return s.refresh(ctx, sym)
	})
	if err == nil {
		return v.(*models.QuoteEntry), models.FreshnessFresh, nil
	}

	s.logger.Warn().Str("symbol", sym).Err(err).Msg("quote fetch failed, trying stale fallback")

	// Any prior entry, however old, beats an error on a read path.
	if entry, serr := s.storage.QuoteStorage().GetQuote(ctx, sym); serr == nil {
		return entry, models.FreshnessStale, nil
	}

	return nil, "", fmt.Errorf("%w: quote %s: %v", models.ErrNoData, sym, err)
}

// QuoteResult pairs one symbol's quote lookup outcome for batch callers.
type QuoteResult struct {
	Entry     *models.QuoteEntry
	Freshness models.Freshness
	Err       error
}

// GetQuotes resolves a set of symbols. Per-symbol failures are recorded in
// the result map, never propagated.
func (s *QuoteService) GetQuotes(ctx context.Context, symbols []string) map[string]QuoteResult {
	results := make(map[string]QuoteResult, len(symbols))
	for _, symbol := range symbols {
		entry, freshness, err := s.GetQuote(ctx, symbol)
		results[symbol] = QuoteResult{Entry: entry, Freshness: freshness, Err: err}
	}
	return results
}

// refresh fetches one quote with a bounded timeout and overwrites the cache
// entry. The entry write is a single document upsert: it fully lands or the
// old entry stays.
func (s *QuoteService) refresh(ctx context.Context, symbol string) (*models.QuoteEntry, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	entry, err := s.client.FetchQuote(fetchCtx, symbol)
	if err != nil {
		return nil, err
	}
	entry.FetchedAt = s.now()

	if err := s.storage.QuoteStorage().SaveQuote(ctx, entry); err != nil {
		// Serve the fetched quote anyway; only the cache write was lost.
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("failed to persist quote entry")
	}
	return entry, nil
}

func (s *QuoteService) isFresh(fetchedAt time.Time) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return s.now().Sub(fetchedAt) < s.ttl
}
