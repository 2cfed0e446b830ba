// Package movers serves top-movers snapshots and runs the scheduled capture
// job that produces them.
package movers

import (
	"context"
	"fmt"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// Service reads top-movers snapshots. Reads never reach the upstream
// provider; they only follow the latest pointer into the snapshot store.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a snapshot read service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

// GetLatest returns the snapshot the latest pointer names, or
// models.ErrNoData when no capture has ever succeeded.
func (s *Service) GetLatest(ctx context.Context) (*models.MoverSnapshot, error) {
	pointer, err := s.storage.SnapshotStorage().GetLatestPointer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: no top-movers snapshot captured yet", models.ErrNoData)
	}

	snapshot, err := s.storage.SnapshotStorage().GetSnapshot(ctx, pointer.SnapshotID)
	if err != nil {
		// The pointer only ever advances after a snapshot write lands, so a
		// dangling pointer means the store itself is damaged.
		return nil, fmt.Errorf("latest pointer names missing snapshot %s: %w", pointer.SnapshotID, err)
	}
	return snapshot, nil
}

// GetByID returns one snapshot by its document id.
func (s *Service) GetByID(ctx context.Context, id string) (*models.MoverSnapshot, error) {
	return s.storage.SnapshotStorage().GetSnapshot(ctx, id)
}

// ListByDate returns the ids of all snapshots captured on a YYYY-MM-DD
// date, newest first.
func (s *Service) ListByDate(ctx context.Context, date string) ([]string, error) {
	ids, err := s.storage.SnapshotStorage().ListSnapshotsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no snapshots captured on %s", models.ErrNoData, date)
	}
	return ids, nil
}
