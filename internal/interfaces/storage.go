package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/mystock-core/internal/models"
)

// StorageManager coordinates the document-store backends.
type StorageManager interface {
	QuoteStorage() QuoteStorage
	SeriesStorage() SeriesStorage
	SnapshotStorage() SnapshotStorage
	LeaseStorage() LeaseStorage

	// Lifecycle
	Close() error
}

// QuoteStorage persists quote cache entries, one per symbol.
type QuoteStorage interface {
	// GetQuote retrieves the cached entry for a symbol.
	GetQuote(ctx context.Context, symbol string) (*models.QuoteEntry, error)

	// SaveQuote upserts the entry for its symbol as a single document write.
	SaveQuote(ctx context.Context, entry *models.QuoteEntry) error

	// DeleteQuote removes the entry for a symbol.
	DeleteQuote(ctx context.Context, symbol string) error
}

// SeriesStorage persists candlestick series, one per (symbol, period).
type SeriesStorage interface {
	// GetSeries retrieves the cached series for a (symbol, period).
	GetSeries(ctx context.Context, symbol string, period models.Period) (*models.CandleSeries, error)

	// ReplaceSeries swaps the whole series for its (symbol, period) in one
	// document write, so readers see either the old or the new generation.
	ReplaceSeries(ctx context.Context, series *models.CandleSeries) error

	// DeleteSeries removes the series for a (symbol, period).
	DeleteSeries(ctx context.Context, symbol string, period models.Period) error
}

// SnapshotStorage persists immutable top-mover snapshots plus the singleton
// latest pointer.
type SnapshotStorage interface {
	// SaveSnapshot writes a new snapshot document. Snapshots are append-only.
	SaveSnapshot(ctx context.Context, snapshot *models.MoverSnapshot) error

	// GetSnapshot retrieves a snapshot by id.
	GetSnapshot(ctx context.Context, id string) (*models.MoverSnapshot, error)

	// GetLatestPointer returns the pointer record, or an error when no
	// capture has ever succeeded.
	GetLatestPointer(ctx context.Context) (*models.LatestPointer, error)

	// AdvanceLatestPointer moves the pointer to the given snapshot id.
	// The move is monotonic: an id at or behind the current pointer is a
	// no-op, so a slow writer can never roll the pointer back.
	AdvanceLatestPointer(ctx context.Context, snapshotID string) error

	// ListSnapshotsByDate returns all snapshot ids captured on a
	// YYYY-MM-DD date, newest first.
	ListSnapshotsByDate(ctx context.Context, date string) ([]string, error)
}

// LeaseStorage provides time-bounded mutual-exclusion tokens for scheduled
// jobs. A lease auto-expires so a crashed holder cannot block future runs.
type LeaseStorage interface {
	// Acquire takes the named lease for holder if it is free, expired, or
	// already held by the same holder (renewal). Returns false when another
	// holder owns it.
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)

	// Release frees the named lease if holder still owns it.
	Release(ctx context.Context, name, holder string) error
}
