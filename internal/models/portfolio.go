package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a portfolio position, owned by the portfolio CRUD layer and
// consumed read-only here. Quantity and average price are fixed-point.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Market   Market          `json:"market"`
}

// NewHolding builds a validated holding with its market derived from the symbol.
func NewHolding(symbol string, quantity, avgPrice decimal.Decimal) (Holding, error) {
	s, err := ValidateSymbol(symbol)
	if err != nil {
		return Holding{}, err
	}
	h := Holding{Symbol: s, Quantity: quantity, AvgPrice: avgPrice, Market: DetectMarket(s)}
	if err := h.Validate(); err != nil {
		return Holding{}, err
	}
	return h, nil
}

// Validate enforces the holding invariants: positive quantity and price.
func (h *Holding) Validate() error {
	if _, err := ValidateSymbol(h.Symbol); err != nil {
		return err
	}
	if !h.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrValidation, h.Quantity)
	}
	if !h.AvgPrice.IsPositive() {
		return fmt.Errorf("%w: avg price must be positive, got %s", ErrValidation, h.AvgPrice)
	}
	return nil
}

// CostBasis is quantity times average purchase price.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AvgPrice)
}

// HoldingValuation is the derived valuation of a single priced holding.
// Not persisted.
type HoldingValuation struct {
	Symbol       string          `json:"symbol"`
	Market       Market          `json:"market"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentValue decimal.Decimal `json:"current_value"`
	ProfitLoss   decimal.Decimal `json:"profit_loss"`
	// ReturnRate is profit/loss as a percentage of cost basis, kept at full
	// precision; rounding happens at the rendering boundary.
	ReturnRate decimal.Decimal `json:"return_rate"`
	// PricedWithStaleQuote marks valuations computed from a quote older
	// than its TTL.
	PricedWithStaleQuote bool      `json:"priced_with_stale_quote"`
	QuoteFetchedAt       time.Time `json:"quote_fetched_at"`
}

// MarketGroupSummary aggregates valuations within one market/currency
// partition. Sums never cross partitions.
type MarketGroupSummary struct {
	Market            Market          `json:"market"`
	Currency          string          `json:"currency"`
	TotalHoldings     int             `json:"total_holdings"`
	PricedHoldings    int             `json:"priced_holdings"`
	StaleQuotes       int             `json:"stale_quotes"`
	TotalCostBasis    decimal.Decimal `json:"total_cost_basis"`
	TotalCurrentValue decimal.Decimal `json:"total_current_value"`
	TotalProfitLoss   decimal.Decimal `json:"total_profit_loss"`
	TotalReturnRate   decimal.Decimal `json:"total_return_rate"`
}

// PortfolioSummary is the aggregate valuation of a holding set, segmented by
// market so figures in different currencies are never mixed.
type PortfolioSummary struct {
	Groups   []MarketGroupSummary `json:"groups"`
	Holdings []HoldingValuation   `json:"holdings"`
	// DegradedSymbols lists holdings excluded because no quote could be
	// obtained (neither fresh nor stale).
	DegradedSymbols []string  `json:"degraded_symbols"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Group returns the summary for a market, or nil when no holding belongs to it.
func (p *PortfolioSummary) Group(m Market) *MarketGroupSummary {
	for i := range p.Groups {
		if p.Groups[i].Market == m {
			return &p.Groups[i]
		}
	}
	return nil
}
