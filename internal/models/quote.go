// Package models defines data structures for the market-data core.
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market identifies the exchange group a symbol trades on, which also fixes
// the currency its prices are denominated in.
type Market string

const (
	MarketKR Market = "KR" // KOSPI/KOSDAQ, KRW
	MarketUS Market = "US" // default, USD
)

// Currency returns the ISO currency code prices on this market are quoted in.
func (m Market) Currency() string {
	if m == MarketKR {
		return "KRW"
	}
	return "USD"
}

// DetectMarket derives the market from the symbol's exchange suffix.
// Korean listings carry .KS (KOSPI) or .KQ (KOSDAQ); everything else is
// treated as US. Pure function of the symbol string.
func DetectMarket(symbol string) Market {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, ".KS") || strings.HasSuffix(s, ".KQ") {
		return MarketKR
	}
	return MarketUS
}

// MarketStatus reports whether the US market is trading.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// DetermineMarketStatus applies the regular-session heuristic: 9:30-16:00 ET
// approximated as 14:00-21:00 UTC. Display metadata only; not used by cache
// freshness decisions.
func DetermineMarketStatus(now time.Time) MarketStatus {
	hour := now.UTC().Hour()
	if hour >= 14 && hour < 21 {
		return MarketOpen
	}
	return MarketClosed
}

// Freshness flags whether returned data is within its TTL or served as a
// stale fallback after an upstream failure.
type Freshness string

const (
	FreshnessFresh Freshness = "fresh"
	FreshnessStale Freshness = "stale"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,19}$`)

// ValidateSymbol checks a ticker symbol and returns its canonical
// (uppercased) form.
func ValidateSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrValidation)
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: invalid symbol %q", ErrValidation, symbol)
	}
	return s, nil
}

// QuoteEntry is a cached live quote for one symbol. At most one entry exists
// per symbol; a successful fetch overwrites the whole record, never parts of it.
type QuoteEntry struct {
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	ChangePct     decimal.Decimal `json:"change_pct"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Volume        int64           `json:"volume"`
	Market        Market          `json:"market"`
	MarketStatus  MarketStatus    `json:"market_status"`
	FetchedAt     time.Time       `json:"fetched_at"`
	// Raw keeps the upstream quote object for forward compatibility.
	// Business logic reads the typed fields only.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Age returns how long ago the entry was fetched.
func (q *QuoteEntry) Age(now time.Time) time.Duration {
	if q.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(q.FetchedAt)
}
