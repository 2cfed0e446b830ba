package badger

import (
	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db        *BadgerDB
	quotes    interfaces.QuoteStorage
	series    interfaces.SeriesStorage
	snapshots interfaces.SnapshotStorage
	leases    interfaces.LeaseStorage
	logger    *common.Logger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		quotes:    NewQuoteStore(db, logger),
		series:    NewSeriesStore(db, logger),
		snapshots: NewSnapshotStore(db, logger),
		leases:    NewLeaseStore(db, logger),
		logger:    logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// QuoteStorage returns the quote storage interface.
func (m *Manager) QuoteStorage() interfaces.QuoteStorage {
	return m.quotes
}

// SeriesStorage returns the candlestick series storage interface.
func (m *Manager) SeriesStorage() interfaces.SeriesStorage {
	return m.series
}

// SnapshotStorage returns the top-movers snapshot storage interface.
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshots
}

// LeaseStorage returns the lease storage interface.
func (m *Manager) LeaseStorage() interfaces.LeaseStorage {
	return m.leases
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
