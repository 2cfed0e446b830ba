package badger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/models"
)

func setupTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	logger := common.NewSilentLogger()
	cfg := &config.BadgerConfig{InMemory: true}
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testQuote(symbol string, fetchedAt time.Time) *models.QuoteEntry {
	return &models.QuoteEntry{
		Symbol:        symbol,
		CurrentPrice:  decimal.RequireFromString("175.50"),
		ChangeAmount:  decimal.RequireFromString("5.25"),
		ChangePct:     decimal.RequireFromString("3.09"),
		PreviousClose: decimal.RequireFromString("170.25"),
		Volume:        52000000,
		Market:        models.DetectMarket(symbol),
		MarketStatus:  models.MarketClosed,
		FetchedAt:     fetchedAt,
	}
}

func TestQuoteStore_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewQuoteStore(db, common.NewSilentLogger())
	ctx := context.Background()

	entry := testQuote("AAPL", time.Now().UTC())
	if err := store.SaveQuote(ctx, entry); err != nil {
		t.Fatalf("SaveQuote failed: %v", err)
	}

	got, err := store.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !got.CurrentPrice.Equal(entry.CurrentPrice) {
		t.Errorf("expected price %s, got %s", entry.CurrentPrice, got.CurrentPrice)
	}
	if got.Market != models.MarketUS {
		t.Errorf("unexpected market: %s", got.Market)
	}
}

func TestQuoteStore_GetNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewQuoteStore(db, common.NewSilentLogger())

	_, err := store.GetQuote(context.Background(), "MISSING")
	if err == nil {
		t.Error("expected error for missing quote, got nil")
	}
}

func TestQuoteStore_Overwrite(t *testing.T) {
	db := setupTestDB(t)
	store := NewQuoteStore(db, common.NewSilentLogger())
	ctx := context.Background()

	first := testQuote("AAPL", time.Now().UTC().Add(-10*time.Minute))
	if err := store.SaveQuote(ctx, first); err != nil {
		t.Fatalf("SaveQuote failed: %v", err)
	}

	second := testQuote("AAPL", time.Now().UTC())
	second.CurrentPrice = decimal.RequireFromString("180.00")
	if err := store.SaveQuote(ctx, second); err != nil {
		t.Fatalf("SaveQuote overwrite failed: %v", err)
	}

	got, err := store.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !got.CurrentPrice.Equal(second.CurrentPrice) {
		t.Errorf("expected overwritten price %s, got %s", second.CurrentPrice, got.CurrentPrice)
	}
}

func TestSeriesStore_ReplaceAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewSeriesStore(db, common.NewSilentLogger())
	ctx := context.Background()

	old := &models.CandleSeries{
		Symbol: "AAPL",
		Period: models.PeriodOneDay,
		Bars: []models.Candle{
			{Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Close: 174.00, Volume: 1},
			{Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Close: 175.50, Volume: 2},
		},
		FetchedAt: time.Now().UTC(),
	}
	if err := store.ReplaceSeries(ctx, old); err != nil {
		t.Fatalf("ReplaceSeries failed: %v", err)
	}

	replacement := &models.CandleSeries{
		Symbol: "AAPL",
		Period: models.PeriodOneDay,
		Bars: []models.Candle{
			{Timestamp: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), Close: 177.00, Volume: 3},
		},
		FetchedAt: time.Now().UTC(),
	}
	if err := store.ReplaceSeries(ctx, replacement); err != nil {
		t.Fatalf("ReplaceSeries (replacement) failed: %v", err)
	}

	got, err := store.GetSeries(ctx, "AAPL", models.PeriodOneDay)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(got.Bars) != 1 {
		t.Fatalf("expected fully replaced series with 1 bar, got %d", len(got.Bars))
	}
	if got.Bars[0].Close != 177.00 {
		t.Errorf("unexpected bar close: %v", got.Bars[0].Close)
	}
}

func TestSeriesStore_KeyedByPeriod(t *testing.T) {
	db := setupTestDB(t)
	store := NewSeriesStore(db, common.NewSilentLogger())
	ctx := context.Background()

	daily := &models.CandleSeries{Symbol: "AAPL", Period: models.PeriodOneDay, FetchedAt: time.Now().UTC()}
	weekly := &models.CandleSeries{Symbol: "AAPL", Period: models.PeriodOneWeek, FetchedAt: time.Now().UTC()}
	if err := store.ReplaceSeries(ctx, daily); err != nil {
		t.Fatalf("ReplaceSeries daily failed: %v", err)
	}
	if err := store.ReplaceSeries(ctx, weekly); err != nil {
		t.Fatalf("ReplaceSeries weekly failed: %v", err)
	}

	got, err := store.GetSeries(ctx, "AAPL", models.PeriodOneWeek)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if got.Period != models.PeriodOneWeek {
		t.Errorf("period keys collided: got %s", got.Period)
	}
}

func testSnapshot(capturedAt time.Time) *models.MoverSnapshot {
	return &models.MoverSnapshot{
		ID:         models.SnapshotID(capturedAt),
		Date:       capturedAt.UTC().Format("2006-01-02"),
		CapturedAt: capturedAt.UTC(),
		Gainers:    []models.MoverItem{{Ticker: "AAPL", Price: 175.50, ChangeAmount: 5.25, ChangePct: 3.09, Volume: 52000000}},
	}
}

func TestSnapshotStore_SaveAndLatestPointer(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db, common.NewSilentLogger())
	ctx := context.Background()

	if _, err := store.GetLatestPointer(ctx); err == nil {
		t.Fatal("expected error before any capture")
	}

	first := testSnapshot(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC))
	if err := store.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.AdvanceLatestPointer(ctx, first.ID); err != nil {
		t.Fatalf("AdvanceLatestPointer failed: %v", err)
	}

	pointer, err := store.GetLatestPointer(ctx)
	if err != nil {
		t.Fatalf("GetLatestPointer failed: %v", err)
	}
	if pointer.SnapshotID != first.ID {
		t.Errorf("expected pointer at %s, got %s", first.ID, pointer.SnapshotID)
	}

	got, err := store.GetSnapshot(ctx, pointer.SnapshotID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if len(got.Gainers) != 1 || got.Gainers[0].Ticker != "AAPL" {
		t.Errorf("unexpected snapshot contents: %+v", got.Gainers)
	}
}

func TestSnapshotStore_InsertOnly(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db, common.NewSilentLogger())
	ctx := context.Background()

	snap := testSnapshot(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC))
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveSnapshot(ctx, snap); err == nil {
		t.Error("expected error re-writing an immutable snapshot")
	}
}

func TestSnapshotStore_PointerMonotonic(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db, common.NewSilentLogger())
	ctx := context.Background()

	older := testSnapshot(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC))
	newer := testSnapshot(time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC))
	for _, snap := range []*models.MoverSnapshot{older, newer} {
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	if err := store.AdvanceLatestPointer(ctx, newer.ID); err != nil {
		t.Fatalf("AdvanceLatestPointer failed: %v", err)
	}
	// A late writer with an older id must not roll the pointer back.
	if err := store.AdvanceLatestPointer(ctx, older.ID); err != nil {
		t.Fatalf("AdvanceLatestPointer (older) failed: %v", err)
	}

	pointer, err := store.GetLatestPointer(ctx)
	if err != nil {
		t.Fatalf("GetLatestPointer failed: %v", err)
	}
	if pointer.SnapshotID != newer.ID {
		t.Errorf("pointer rolled back to %s", pointer.SnapshotID)
	}
}

func TestSnapshotStore_ListByDate(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db, common.NewSilentLogger())
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC),
	}
	for _, at := range times {
		if err := store.SaveSnapshot(ctx, testSnapshot(at)); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	ids, err := store.ListSnapshotsByDate(ctx, "2026-03-02")
	if err != nil {
		t.Fatalf("ListSnapshotsByDate failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 snapshots for date, got %d", len(ids))
	}
	// Newest first
	if ids[0] < ids[1] {
		t.Errorf("expected newest first, got %v", ids)
	}
}

func TestLeaseStore_AcquireAndBlock(t *testing.T) {
	db := setupTestDB(t)
	store := NewLeaseStore(db, common.NewSilentLogger())
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "updater", "holder-a", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = store.Acquire(ctx, "updater", "holder-b", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if ok {
		t.Error("expected second holder to be blocked")
	}

	// Same holder renews
	ok, err = store.Acquire(ctx, "updater", "holder-a", time.Minute)
	if err != nil {
		t.Fatalf("Acquire (renew) failed: %v", err)
	}
	if !ok {
		t.Error("expected same-holder renewal to succeed")
	}
}

func TestLeaseStore_ExpiryFreesLease(t *testing.T) {
	db := setupTestDB(t)
	store := NewLeaseStore(db, common.NewSilentLogger())
	ctx := context.Background()

	current := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	ok, err := store.Acquire(ctx, "updater", "crashed-holder", 30*time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire failed: ok=%v err=%v", ok, err)
	}

	// Before expiry another holder is blocked
	current = current.Add(10 * time.Minute)
	if ok, _ := store.Acquire(ctx, "updater", "holder-b", 30*time.Minute); ok {
		t.Fatal("expected acquire to be blocked before expiry")
	}

	// After expiry the lease is free
	current = current.Add(25 * time.Minute)
	ok, err = store.Acquire(ctx, "updater", "holder-b", 30*time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !ok {
		t.Error("expected expired lease to be acquirable")
	}
}

func TestLeaseStore_Release(t *testing.T) {
	db := setupTestDB(t)
	store := NewLeaseStore(db, common.NewSilentLogger())
	ctx := context.Background()

	if ok, _ := store.Acquire(ctx, "updater", "holder-a", time.Hour); !ok {
		t.Fatal("expected acquire to succeed")
	}
	if err := store.Release(ctx, "updater", "holder-a"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if ok, _ := store.Acquire(ctx, "updater", "holder-b", time.Hour); !ok {
		t.Error("expected released lease to be acquirable")
	}

	// Releasing a lease someone else owns is a no-op
	if err := store.Release(ctx, "updater", "holder-a"); err != nil {
		t.Errorf("foreign release should be a no-op, got %v", err)
	}
	if ok, _ := store.Acquire(ctx, "updater", "holder-b", time.Hour); !ok {
		t.Error("holder-b should still hold the lease")
	}
}
