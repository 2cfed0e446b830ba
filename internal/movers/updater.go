package movers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/interfaces"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// leaseName is the storage lease guarding capture runs. One holder at a time
// across every updater process sharing the store.
const leaseName = "top-movers-updater"

// Updater captures the top-movers listing on a cron schedule into immutable
// snapshots. Each run acquires a time-bounded lease first so overlapping
// schedules and competing processes reduce to a single capture.
type Updater struct {
	storage      interfaces.StorageManager
	client       interfaces.MarketDataClient
	logger       *common.Logger
	schedule     string
	leaseTTL     time.Duration
	fetchTimeout time.Duration
	runOnStart   bool

	// holder identifies this process instance for lease ownership.
	holder string
	cron   *cron.Cron
	now    func() time.Time
}

// NewUpdater creates a top-movers capture job from the updater config.
func NewUpdater(
	storage interfaces.StorageManager,
	client interfaces.MarketDataClient,
	cfg *config.Config,
	logger *common.Logger,
) *Updater {
	return &Updater{
		storage:      storage,
		client:       client,
		logger:       logger,
		schedule:     cfg.Updater.Schedule,
		leaseTTL:     cfg.Updater.GetLeaseTTL(),
		fetchTimeout: cfg.Clients.AlphaVantage.GetTimeout(),
		runOnStart:   cfg.Updater.RunOnStart,
		holder:       uuid.New().String(),
		now:          time.Now,
	}
}

// Start registers the cron schedule and begins firing capture runs. It
// returns after scheduling; runs happen on the cron goroutine.
func (u *Updater) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(u.schedule, func() {
		if err := u.Run(ctx); err != nil {
			u.logger.Error().Err(err).Msg("top-movers capture run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid updater schedule %q: %w", u.schedule, err)
	}

	u.cron = c
	c.Start()
	u.logger.Info().
		Str("schedule", u.schedule).
		Str("holder", u.holder).
		Msg("top-movers updater started")

	if u.runOnStart {
		go func() {
			if err := u.Run(ctx); err != nil {
				u.logger.Error().Err(err).Msg("startup top-movers capture failed")
			}
		}()
	}
	return nil
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (u *Updater) Stop() {
	if u.cron == nil {
		return
	}
	<-u.cron.Stop().Done()
	u.logger.Info().Msg("top-movers updater stopped")
}

// Run performs one capture: take the lease, fetch the listing, write the
// snapshot, then advance the latest pointer. The pointer moves only after
// the snapshot write lands, so a failed run leaves readers on the previous
// capture. A run that loses the lease race is a silent no-op.
func (u *Updater) Run(ctx context.Context) error {
	acquired, err := u.storage.LeaseStorage().Acquire(ctx, leaseName, u.holder, u.leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire updater lease: %w", err)
	}
	if !acquired {
		u.logger.Debug().Str("holder", u.holder).Msg("updater lease held elsewhere, skipping run")
		return nil
	}
	defer func() {
		if err := u.storage.LeaseStorage().Release(ctx, leaseName, u.holder); err != nil {
			u.logger.Warn().Err(err).Msg("failed to release updater lease")
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, u.fetchTimeout)
	defer cancel()

	listing, err := u.client.FetchTopMovers(fetchCtx)
	if err != nil {
		return fmt.Errorf("failed to fetch top movers: %w", err)
	}

	capturedAt := u.now().UTC()
	snapshot := &models.MoverSnapshot{
		ID:              models.SnapshotID(capturedAt),
		Date:            capturedAt.Format("2006-01-02"),
		CapturedAt:      capturedAt,
		Gainers:         truncate(listing.Gainers),
		Losers:          truncate(listing.Losers),
		MostActive:      truncate(listing.MostActive),
		UpstreamUpdated: listing.LastUpdated,
	}

	if err := u.storage.SnapshotStorage().SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	if err := u.storage.SnapshotStorage().AdvanceLatestPointer(ctx, snapshot.ID); err != nil {
		return fmt.Errorf("failed to advance latest pointer to %s: %w", snapshot.ID, err)
	}

	u.logger.Info().
		Str("snapshot_id", snapshot.ID).
		Int("gainers", len(snapshot.Gainers)).
		Int("losers", len(snapshot.Losers)).
		Int("most_active", len(snapshot.MostActive)).
		Msg("captured top-movers snapshot")
	return nil
}

func truncate(items []models.MoverItem) []models.MoverItem {
	if len(items) > models.MoverListLimit {
		return items[:models.MoverListLimit]
	}
	return items
}
