// Package valuation derives holding and portfolio valuations from cached
// quotes. All money math is fixed-point; nothing here talks to the upstream
// provider directly.
package valuation

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// QuoteSource supplies current prices with their freshness. The quote cache
// service satisfies it.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.QuoteEntry, models.Freshness, error)
}

// Engine computes portfolio valuations.
type Engine struct {
	quotes QuoteSource
	logger *common.Logger
	now    func() time.Time
}

// NewEngine creates a valuation engine over a quote source.
func NewEngine(quotes QuoteSource, logger *common.Logger) *Engine {
	return &Engine{quotes: quotes, logger: logger, now: time.Now}
}

// hundred scales profit ratios to percentages.
var hundred = decimal.NewFromInt(100)

// ValueHolding prices one holding against the current quote. The quote may
// be stale; the valuation carries that flag through.
func (e *Engine) ValueHolding(ctx context.Context, holding models.Holding) (*models.HoldingValuation, error) {
	if err := holding.Validate(); err != nil {
		return nil, err
	}

	entry, freshness, err := e.quotes.GetQuote(ctx, holding.Symbol)
	if err != nil {
		return nil, err
	}

	return valuate(holding, entry, freshness), nil
}

// Summarize values a holding set and aggregates it per market. Holdings with
// no obtainable quote are excluded from every sum and reported in
// DegradedSymbols; figures from different markets are never added together.
func (e *Engine) Summarize(ctx context.Context, holdings []models.Holding) (*models.PortfolioSummary, error) {
	summary := &models.PortfolioSummary{
		Holdings:   make([]models.HoldingValuation, 0, len(holdings)),
		ComputedAt: e.now(),
	}

	groups := make(map[models.Market]*models.MarketGroupSummary)
	group := func(m models.Market) *models.MarketGroupSummary {
		g, ok := groups[m]
		if !ok {
			g = &models.MarketGroupSummary{Market: m, Currency: m.Currency()}
			groups[m] = g
		}
		return g
	}

	for _, holding := range holdings {
		if err := holding.Validate(); err != nil {
			return nil, err
		}
		g := group(holding.Market)
		g.TotalHoldings++

		entry, freshness, err := e.quotes.GetQuote(ctx, holding.Symbol)
		if err != nil {
			e.logger.Warn().Str("symbol", holding.Symbol).Err(err).Msg("holding excluded from valuation")
			summary.DegradedSymbols = append(summary.DegradedSymbols, holding.Symbol)
			continue
		}

		v := valuate(holding, entry, freshness)
		summary.Holdings = append(summary.Holdings, *v)

		g.PricedHoldings++
		if v.PricedWithStaleQuote {
			g.StaleQuotes++
		}
		g.TotalCostBasis = g.TotalCostBasis.Add(v.CostBasis)
		g.TotalCurrentValue = g.TotalCurrentValue.Add(v.CurrentValue)
		g.TotalProfitLoss = g.TotalProfitLoss.Add(v.ProfitLoss)
	}

	for _, g := range groups {
		g.TotalReturnRate = returnRate(g.TotalProfitLoss, g.TotalCostBasis)
		summary.Groups = append(summary.Groups, *g)

		e.logger.Debug().
			Str("market", string(g.Market)).
			Str("current_value", common.FormatMoney(g.TotalCurrentValue, g.Currency)).
			Str("profit_loss", common.FormatSignedMoney(g.TotalProfitLoss, g.Currency)).
			Str("return_rate", common.FormatSignedPct(g.TotalReturnRate)).
			Int("priced", g.PricedHoldings).
			Int("total", g.TotalHoldings).
			Msg("market group valued")
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		return summary.Groups[i].Market < summary.Groups[j].Market
	})

	return summary, nil
}

func valuate(holding models.Holding, entry *models.QuoteEntry, freshness models.Freshness) *models.HoldingValuation {
	costBasis := holding.CostBasis()
	currentValue := holding.Quantity.Mul(entry.CurrentPrice)
	profitLoss := currentValue.Sub(costBasis)

	return &models.HoldingValuation{
		Symbol:               holding.Symbol,
		Market:               holding.Market,
		Quantity:             holding.Quantity,
		AvgPrice:             holding.AvgPrice,
		CurrentPrice:         entry.CurrentPrice,
		CostBasis:            costBasis,
		CurrentValue:         currentValue,
		ProfitLoss:           profitLoss,
		ReturnRate:           returnRate(profitLoss, costBasis),
		PricedWithStaleQuote: freshness == models.FreshnessStale,
		QuoteFetchedAt:       entry.FetchedAt,
	}
}

// returnRate is profit over cost as a percentage. A zero cost basis yields
// zero rather than a division error; only priced holdings reach the sums, so
// this only happens on an empty group.
func returnRate(profitLoss, costBasis decimal.Decimal) decimal.Decimal {
	if costBasis.IsZero() {
		return decimal.Zero
	}
	return profitLoss.Div(costBasis).Mul(hundred)
}
