package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
	"github.com/bobmcallan/mystock-core/internal/models"
	"github.com/bobmcallan/mystock-core/internal/storage/badger"
)

// fakeClient is a scriptable MarketDataClient for service tests.
type fakeClient struct {
	quoteCalls  int32
	candleCalls int32

	quoteFn  func(symbol string) (*models.QuoteEntry, error)
	candleFn func(symbol string, period models.Period) ([]models.Candle, error)
	moversFn func() (*models.TopMovers, error)
}

func (f *fakeClient) FetchQuote(ctx context.Context, symbol string) (*models.QuoteEntry, error) {
	atomic.AddInt32(&f.quoteCalls, 1)
	return f.quoteFn(symbol)
}

func (f *fakeClient) FetchCandles(ctx context.Context, symbol string, period models.Period) ([]models.Candle, error) {
	atomic.AddInt32(&f.candleCalls, 1)
	return f.candleFn(symbol, period)
}

func (f *fakeClient) FetchTopMovers(ctx context.Context) (*models.TopMovers, error) {
	return f.moversFn()
}

func setupStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()

	logger := common.NewSilentLogger()
	manager, err := badger.NewManager(logger, &config.BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to create storage manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func testQuote(symbol, price string) *models.QuoteEntry {
	return &models.QuoteEntry{
		Symbol:       symbol,
		CurrentPrice: decimal.RequireFromString(price),
		Market:       models.DetectMarket(symbol),
	}
}

func TestGetQuoteFetchesAndCaches(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			return testQuote(symbol, "150.00"), nil
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	entry, freshness, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if freshness != models.FreshnessFresh {
		t.Errorf("expected fresh, got %s", freshness)
	}
	if !entry.CurrentPrice.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("unexpected price %s", entry.CurrentPrice)
	}
	if entry.Age(time.Now()) > time.Second {
		t.Errorf("freshly fetched entry reports age %s", entry.Age(time.Now()))
	}

	// Second call within the TTL must not touch the client.
	again, freshness, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("second GetQuote failed: %v", err)
	}
	if freshness != models.FreshnessFresh {
		t.Errorf("expected fresh on cached read, got %s", freshness)
	}
	if got := atomic.LoadInt32(&client.quoteCalls); got != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", got)
	}
	if !again.FetchedAt.Equal(entry.FetchedAt) {
		t.Errorf("cached read returned a different entry generation")
	}
}

func TestGetQuoteNormalizesSymbol(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			if symbol != "AAPL" {
				return nil, errors.New("unexpected symbol " + symbol)
			}
			return testQuote(symbol, "150.00"), nil
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	if _, _, err := svc.GetQuote(context.Background(), "  aapl "); err != nil {
		t.Fatalf("GetQuote with unnormalized symbol failed: %v", err)
	}
	if _, _, err := svc.GetQuote(context.Background(), ""); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error for empty symbol, got %v", err)
	}
}

func TestGetQuoteRefreshesExpiredEntry(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			return testQuote(symbol, "151.25"), nil
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	old := testQuote("AAPL", "140.00")
	old.FetchedAt = time.Now().Add(-10 * time.Minute)
	if err := storage.QuoteStorage().SaveQuote(context.Background(), old); err != nil {
		t.Fatalf("failed to seed quote: %v", err)
	}

	entry, freshness, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if freshness != models.FreshnessFresh {
		t.Errorf("expected fresh after refresh, got %s", freshness)
	}
	if !entry.CurrentPrice.Equal(decimal.RequireFromString("151.25")) {
		t.Errorf("expected refreshed price, got %s", entry.CurrentPrice)
	}
	if got := atomic.LoadInt32(&client.quoteCalls); got != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", got)
	}
}

func TestGetQuoteStaleFallback(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	old := testQuote("AAPL", "140.00")
	old.FetchedAt = time.Now().Add(-2 * time.Hour)
	if err := storage.QuoteStorage().SaveQuote(context.Background(), old); err != nil {
		t.Fatalf("failed to seed quote: %v", err)
	}

	entry, freshness, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if freshness != models.FreshnessStale {
		t.Errorf("expected stale, got %s", freshness)
	}
	if !entry.CurrentPrice.Equal(decimal.RequireFromString("140.00")) {
		t.Errorf("expected cached price on fallback, got %s", entry.CurrentPrice)
	}
}

func TestGetQuoteNoData(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	_, _, err := svc.GetQuote(context.Background(), "AAPL")
	if !errors.Is(err, models.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGetQuoteDeduplicatesConcurrentFetches(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			time.Sleep(50 * time.Millisecond)
			return testQuote(symbol, "150.00"), nil
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, 5*time.Second)

	const callers = 50
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.GetQuote(context.Background(), "AAPL")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent GetQuote failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&client.quoteCalls); got != 1 {
		t.Errorf("expected 1 upstream fetch for %d concurrent callers, got %d", callers, got)
	}
}

func TestGetQuotesRecordsPerSymbolErrors(t *testing.T) {
	storage := setupStorage(t)
	client := &fakeClient{
		quoteFn: func(symbol string) (*models.QuoteEntry, error) {
			if symbol == "BROKEN" {
				return nil, errors.New("upstream down")
			}
			return testQuote(symbol, "150.00"), nil
		},
	}
	svc := NewQuoteService(storage, client, common.NewSilentLogger(), 5*time.Minute, time.Second)

	results := svc.GetQuotes(context.Background(), []string{"AAPL", "BROKEN"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["AAPL"].Err != nil {
		t.Errorf("AAPL lookup failed: %v", results["AAPL"].Err)
	}
	if !errors.Is(results["BROKEN"].Err, models.ErrNoData) {
		t.Errorf("expected ErrNoData for BROKEN, got %v", results["BROKEN"].Err)
	}
}
