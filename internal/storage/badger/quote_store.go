package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// QuoteStore implements interfaces.QuoteStorage using BadgerDB.
// Entries are keyed by symbol; an upsert replaces the whole document.
type QuoteStore struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewQuoteStore creates a quote storage backed by BadgerDB.
func NewQuoteStore(db *BadgerDB, logger *common.Logger) *QuoteStore {
	return &QuoteStore{db: db, logger: logger}
}

// GetQuote retrieves the cached entry for a symbol.
func (s *QuoteStore) GetQuote(_ context.Context, symbol string) (*models.QuoteEntry, error) {
	var entry models.QuoteEntry
	err := s.db.Store().Get(quoteKey(symbol), &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("quote not found: %s", symbol)
		}
		return nil, fmt.Errorf("failed to get quote %s: %w", symbol, err)
	}
	return &entry, nil
}

// SaveQuote upserts the entry for its symbol.
func (s *QuoteStore) SaveQuote(_ context.Context, entry *models.QuoteEntry) error {
	if err := s.db.Store().Upsert(quoteKey(entry.Symbol), entry); err != nil {
		return fmt.Errorf("failed to save quote %s: %w", entry.Symbol, err)
	}
	return nil
}

// DeleteQuote removes the entry for a symbol.
func (s *QuoteStore) DeleteQuote(_ context.Context, symbol string) error {
	err := s.db.Store().Delete(quoteKey(symbol), models.QuoteEntry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete quote %s: %w", symbol, err)
	}
	return nil
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}
