package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/mystock-core/internal/common"
)

func nowUTC() time.Time { return time.Now().UTC() }

// leaseRecord is a time-bounded mutual-exclusion token for a named job.
type leaseRecord struct {
	Name      string
	Holder    string
	ExpiresAt time.Time
}

// LeaseStore implements interfaces.LeaseStorage using BadgerDB.
type LeaseStore struct {
	db     *BadgerDB
	logger *common.Logger

	// mu serializes the read-check-write acquire path within this process.
	mu sync.Mutex

	now func() time.Time
}

// NewLeaseStore creates a lease storage backed by BadgerDB.
func NewLeaseStore(db *BadgerDB, logger *common.Logger) *LeaseStore {
	return &LeaseStore{db: db, logger: logger, now: nowUTC}
}

// Acquire takes the named lease for holder when it is free, expired, or held
// by the same holder. The lease auto-expires after ttl so a crashed holder
// cannot block the job forever.
func (s *LeaseStore) Acquire(_ context.Context, name, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var current leaseRecord
	err := s.db.Store().Get(leaseKey(name), &current)
	if err != nil && err != badgerhold.ErrNotFound {
		return false, fmt.Errorf("failed to read lease %s: %w", name, err)
	}
	if err == nil && current.Holder != holder && current.ExpiresAt.After(now) {
		s.logger.Debug().
			Str("lease", name).
			Str("holder", current.Holder).
			Str("expires_at", current.ExpiresAt.Format(time.RFC3339)).
			Msg("lease held elsewhere")
		return false, nil
	}

	record := leaseRecord{
		Name:      name,
		Holder:    holder,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.Store().Upsert(leaseKey(name), &record); err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	return true, nil
}

// Release frees the named lease if holder still owns it. Releasing a lease
// another holder took over (after expiry) is a no-op.
func (s *LeaseStore) Release(_ context.Context, name, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current leaseRecord
	err := s.db.Store().Get(leaseKey(name), &current)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to read lease %s: %w", name, err)
	}
	if current.Holder != holder {
		return nil
	}

	if err := s.db.Store().Delete(leaseKey(name), leaseRecord{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}

func leaseKey(name string) string {
	return "lease:" + name
}
