package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// SeriesStore implements interfaces.SeriesStorage using BadgerDB.
// One document per (symbol, period); a refresh replaces the whole document in
// a single write, so a reader sees either the old or the new generation of
// bars, never a mix.
type SeriesStore struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewSeriesStore creates a series storage backed by BadgerDB.
func NewSeriesStore(db *BadgerDB, logger *common.Logger) *SeriesStore {
	return &SeriesStore{db: db, logger: logger}
}

// GetSeries retrieves the cached series for a (symbol, period).
func (s *SeriesStore) GetSeries(_ context.Context, symbol string, period models.Period) (*models.CandleSeries, error) {
	var series models.CandleSeries
	err := s.db.Store().Get(seriesKey(symbol, period), &series)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("series not found: %s %s", symbol, period)
		}
		return nil, fmt.Errorf("failed to get series %s %s: %w", symbol, period, err)
	}
	return &series, nil
}

// ReplaceSeries swaps the whole series for its (symbol, period).
func (s *SeriesStore) ReplaceSeries(_ context.Context, series *models.CandleSeries) error {
	key := seriesKey(series.Symbol, series.Period)
	if err := s.db.Store().Upsert(key, series); err != nil {
		return fmt.Errorf("failed to replace series %s %s: %w", series.Symbol, series.Period, err)
	}
	return nil
}

// DeleteSeries removes the series for a (symbol, period).
func (s *SeriesStore) DeleteSeries(_ context.Context, symbol string, period models.Period) error {
	err := s.db.Store().Delete(seriesKey(symbol, period), models.CandleSeries{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete series %s %s: %w", symbol, period, err)
	}
	return nil
}

func seriesKey(symbol string, period models.Period) string {
	return "series:" + models.SeriesKey(symbol, period)
}
