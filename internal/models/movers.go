package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MoverItem is one row of a top-movers listing. Upstream delivers every field
// as a string (change percent with a "%" suffix); parsing happens once at the
// client boundary.
type MoverItem struct {
	Ticker       string  `json:"ticker"`
	Price        float64 `json:"price"`
	ChangeAmount float64 `json:"change_amount"`
	ChangePct    float64 `json:"change_pct"`
	Volume       int64   `json:"volume"`
}

// ParseMoverItem converts the upstream string payload into a typed item.
func ParseMoverItem(ticker, price, changeAmount, changePct, volume string) (MoverItem, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return MoverItem{}, fmt.Errorf("parse price %q for %s: %w", price, ticker, err)
	}
	ca, err := strconv.ParseFloat(changeAmount, 64)
	if err != nil {
		return MoverItem{}, fmt.Errorf("parse change amount %q for %s: %w", changeAmount, ticker, err)
	}
	cp, err := strconv.ParseFloat(strings.TrimSuffix(changePct, "%"), 64)
	if err != nil {
		return MoverItem{}, fmt.Errorf("parse change percent %q for %s: %w", changePct, ticker, err)
	}
	v, err := strconv.ParseInt(volume, 10, 64)
	if err != nil {
		return MoverItem{}, fmt.Errorf("parse volume %q for %s: %w", volume, ticker, err)
	}
	return MoverItem{Ticker: ticker, Price: p, ChangeAmount: ca, ChangePct: cp, Volume: v}, nil
}

// TopMovers is an upstream top-movers listing before it is captured into a
// snapshot.
type TopMovers struct {
	Gainers     []MoverItem `json:"gainers"`
	Losers      []MoverItem `json:"losers"`
	MostActive  []MoverItem `json:"most_active"`
	LastUpdated string      `json:"last_updated"` // upstream's own timestamp string
}

// MoverSnapshotPrefix namespaces snapshot document ids.
const MoverSnapshotPrefix = "top-movers-"

// MoverListLimit bounds each snapshot list.
const MoverListLimit = 20

// MoverSnapshot is an immutable hourly capture of the top-movers listing.
// Once written it is never mutated; readers reach the current one through
// LatestPointer.
type MoverSnapshot struct {
	ID         string      `json:"id"` // MoverSnapshotPrefix + capture timestamp
	Date       string      `json:"date"`
	CapturedAt time.Time   `json:"captured_at"`
	Gainers    []MoverItem `json:"gainers"`
	Losers     []MoverItem `json:"losers"`
	MostActive []MoverItem `json:"most_active"`
	// UpstreamUpdated preserves the provider's own last-updated string.
	UpstreamUpdated string `json:"upstream_updated,omitempty"`
}

// SnapshotID builds the document id for a capture time.
func SnapshotID(capturedAt time.Time) string {
	return MoverSnapshotPrefix + capturedAt.UTC().Format(time.RFC3339)
}

// LatestPointer names the most recently successfully captured snapshot.
// It advances only after the snapshot write lands.
type LatestPointer struct {
	SnapshotID string    `json:"snapshot_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}
