// Package common provides shared utilities for the market-data core.
package common

import "time"

// Freshness TTLs for cached upstream data, organized in two tiers:
//
// Tier 1 — Live: quotes. Short TTL; an expired entry is still served (flagged
// stale) when the upstream is unreachable.
//
// Tier 2 — Historical: candlestick series and top-mover snapshots. Bars and
// hourly captures don't change once published, so a longer TTL is safe.
const (
	FreshnessQuote   = 5 * time.Minute
	FreshnessCandles = 1 * time.Hour

	// LeaseUpdater bounds a single top-movers updater run. A crashed run
	// frees the lease after this long instead of blocking future runs.
	LeaseUpdater = 30 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}

// Age returns the elapsed time since the given timestamp, or zero for a zero time.
func Age(updated time.Time) time.Duration {
	if updated.IsZero() {
		return 0
	}
	return time.Since(updated)
}
