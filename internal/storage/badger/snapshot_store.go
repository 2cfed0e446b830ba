package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/models"
)

const latestPointerKey = "top-movers:latest"

// SnapshotStore implements interfaces.SnapshotStorage using BadgerDB.
// Snapshots are insert-only documents keyed by capture timestamp; the latest
// pointer is one singleton document advanced monotonically after a snapshot
// write lands.
type SnapshotStore struct {
	db     *BadgerDB
	logger *common.Logger

	// pointerMu serializes read-check-write on the latest pointer.
	pointerMu sync.Mutex
}

// NewSnapshotStore creates a snapshot storage backed by BadgerDB.
func NewSnapshotStore(db *BadgerDB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

// SaveSnapshot writes a new snapshot document. Snapshots are immutable:
// writing an id that already exists is an error.
func (s *SnapshotStore) SaveSnapshot(_ context.Context, snapshot *models.MoverSnapshot) error {
	err := s.db.Store().Insert(snapshot.ID, snapshot)
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("snapshot already exists: %s", snapshot.ID)
		}
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// GetSnapshot retrieves a snapshot by id.
func (s *SnapshotStore) GetSnapshot(_ context.Context, id string) (*models.MoverSnapshot, error) {
	var snapshot models.MoverSnapshot
	err := s.db.Store().Get(id, &snapshot)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("snapshot not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", id, err)
	}
	return &snapshot, nil
}

// GetLatestPointer returns the pointer record.
func (s *SnapshotStore) GetLatestPointer(_ context.Context) (*models.LatestPointer, error) {
	var pointer models.LatestPointer
	err := s.db.Store().Get(latestPointerKey, &pointer)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("latest pointer not set")
		}
		return nil, fmt.Errorf("failed to get latest pointer: %w", err)
	}
	return &pointer, nil
}

// AdvanceLatestPointer moves the pointer to snapshotID. Snapshot ids embed
// their RFC3339 UTC capture time, so lexicographic order is capture order;
// an id at or behind the current pointer leaves it untouched.
func (s *SnapshotStore) AdvanceLatestPointer(ctx context.Context, snapshotID string) error {
	s.pointerMu.Lock()
	defer s.pointerMu.Unlock()

	current, err := s.GetLatestPointer(ctx)
	if err == nil && current.SnapshotID >= snapshotID {
		s.logger.Debug().
			Str("current", current.SnapshotID).
			Str("candidate", snapshotID).
			Msg("latest pointer already at or past candidate, not advancing")
		return nil
	}

	pointer := models.LatestPointer{
		SnapshotID: snapshotID,
		UpdatedAt:  nowUTC(),
	}
	if err := s.db.Store().Upsert(latestPointerKey, &pointer); err != nil {
		return fmt.Errorf("failed to advance latest pointer: %w", err)
	}
	return nil
}

// ListSnapshotsByDate returns all snapshot ids captured on a YYYY-MM-DD date,
// newest first.
func (s *SnapshotStore) ListSnapshotsByDate(_ context.Context, date string) ([]string, error) {
	var snapshots []models.MoverSnapshot
	err := s.db.Store().Find(&snapshots, badgerhold.Where("Date").Eq(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", date, err)
	}

	ids := make([]string, len(snapshots))
	for i, snap := range snapshots {
		ids[i] = snap.ID
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
