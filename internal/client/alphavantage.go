// Package client implements the Alpha Vantage market data client.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/mystock-core/internal/common"
	"github.com/bobmcallan/mystock-core/internal/config"
	"github.com/bobmcallan/mystock-core/internal/models"
)

// Upstream failure taxonomy. The caches absorb these into stale-fallback or
// no-data results; they are never surfaced raw on a request path.
var (
	ErrTimeout     = errors.New("upstream request timed out")
	ErrRateLimited = errors.New("upstream rate limit reached")
	ErrNotFound    = errors.New("symbol not found upstream")
)

// AlphaVantage is an HTTP client for the Alpha Vantage query API.
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	useDelayed bool
	httpClient *http.Client
	logger     *common.Logger
	now        func() time.Time
}

// NewAlphaVantage creates a client from configuration.
func NewAlphaVantage(cfg *config.AlphaVantageConfig, logger *common.Logger) *AlphaVantage {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}
	return &AlphaVantage{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		useDelayed: cfg.UseDelayed,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		logger:     logger,
		now:        time.Now,
	}
}

// avBar matches one bar object inside an Alpha Vantage time series.
type avBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// avMover matches one row of the TOP_GAINERS_LOSERS listing.
type avMover struct {
	Ticker           string `json:"ticker"`
	Price            string `json:"price"`
	ChangeAmount     string `json:"change_amount"`
	ChangePercentage string `json:"change_percentage"`
	Volume           string `json:"volume"`
}

// FetchQuote retrieves a GLOBAL_QUOTE for the symbol.
func (c *AlphaVantage) FetchQuote(ctx context.Context, symbol string) (*models.QuoteEntry, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	payload, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	// Delayed entitlement responses rename the quote key.
	raw, ok := payload["Global Quote"]
	if !ok {
		raw, ok = payload["Global Quote - DATA DELAYED BY 15 MINUTES"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: no quote payload for %s", ErrNotFound, symbol)
	}

	var quote map[string]string
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("failed to parse quote for %s: %w", symbol, err)
	}
	if len(quote) == 0 {
		return nil, fmt.Errorf("%w: empty quote for %s", ErrNotFound, symbol)
	}

	price, err := decimal.NewFromString(quote["05. price"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse price %q for %s: %w", quote["05. price"], symbol, err)
	}
	change, err := decimal.NewFromString(nonEmpty(quote["09. change"], "0"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse change for %s: %w", symbol, err)
	}
	changePct, err := decimal.NewFromString(strings.TrimSuffix(nonEmpty(quote["10. change percent"], "0%"), "%"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse change percent for %s: %w", symbol, err)
	}
	prevClose, err := decimal.NewFromString(nonEmpty(quote["08. previous close"], quote["05. price"]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous close for %s: %w", symbol, err)
	}
	volume, _ := strconv.ParseInt(quote["06. volume"], 10, 64)

	now := c.now()
	entry := &models.QuoteEntry{
		Symbol:        symbol,
		CurrentPrice:  price,
		ChangeAmount:  change,
		ChangePct:     changePct,
		PreviousClose: prevClose,
		Volume:        volume,
		Market:        models.DetectMarket(symbol),
		MarketStatus:  models.DetermineMarketStatus(now),
		FetchedAt:     now,
		Raw:           raw,
	}

	c.logger.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("fetched quote")
	return entry, nil
}

// FetchCandles retrieves OHLCV bars for the symbol at the given period,
// sorted oldest first and capped per the period table.
func (c *AlphaVantage) FetchCandles(ctx context.Context, symbol string, period models.Period) ([]models.Candle, error) {
	spec, ok := models.PeriodSpecs[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", models.ErrValidation, period)
	}

	params := url.Values{}
	params.Set("function", spec.Function)
	params.Set("symbol", symbol)
	if spec.Interval != "" {
		params.Set("interval", spec.Interval)
		params.Set("outputsize", "full")
	}

	payload, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload[spec.SeriesKey()]
	if !ok {
		return nil, fmt.Errorf("%w: no %s series for %s", ErrNotFound, period, symbol)
	}

	var series map[string]avBar
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("failed to parse %s series for %s: %w", period, symbol, err)
	}

	bars := make([]models.Candle, 0, len(series))
	for dateStr, b := range series {
		bar, err := parseBar(dateStr, b)
		if err != nil {
			c.logger.Warn().Str("symbol", symbol).Str("date", dateStr).Err(err).Msg("skipping unparseable bar")
			continue
		}
		bars = append(bars, bar)
	}

	// Keep the newest maxBars, returned oldest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.After(bars[j].Timestamp) })
	if len(bars) > spec.MaxBars {
		bars = bars[:spec.MaxBars]
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	c.logger.Debug().Str("symbol", symbol).Str("period", string(period)).Int("bars", len(bars)).Msg("fetched candles")
	return bars, nil
}

// FetchTopMovers retrieves the TOP_GAINERS_LOSERS listing.
func (c *AlphaVantage) FetchTopMovers(ctx context.Context) (*models.TopMovers, error) {
	params := url.Values{}
	params.Set("function", "TOP_GAINERS_LOSERS")

	payload, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}

	gainersRaw, gok := payload["top_gainers"]
	losersRaw, lok := payload["top_losers"]
	activeRaw, aok := payload["most_actively_traded"]
	if !gok || !lok || !aok {
		return nil, fmt.Errorf("%w: top movers payload missing listings", ErrNotFound)
	}

	movers := &models.TopMovers{}
	if movers.Gainers, err = c.parseMovers(gainersRaw); err != nil {
		return nil, fmt.Errorf("failed to parse gainers: %w", err)
	}
	if movers.Losers, err = c.parseMovers(losersRaw); err != nil {
		return nil, fmt.Errorf("failed to parse losers: %w", err)
	}
	if movers.MostActive, err = c.parseMovers(activeRaw); err != nil {
		return nil, fmt.Errorf("failed to parse most active: %w", err)
	}

	if lastUpdated, ok := payload["last_updated"]; ok {
		_ = json.Unmarshal(lastUpdated, &movers.LastUpdated)
	}

	c.logger.Debug().
		Int("gainers", len(movers.Gainers)).
		Int("losers", len(movers.Losers)).
		Int("most_active", len(movers.MostActive)).
		Msg("fetched top movers")
	return movers, nil
}

func (c *AlphaVantage) parseMovers(raw json.RawMessage) ([]models.MoverItem, error) {
	var rows []avMover
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	items := make([]models.MoverItem, 0, len(rows))
	for _, r := range rows {
		item, err := models.ParseMoverItem(r.Ticker, r.Price, r.ChangeAmount, r.ChangePercentage, r.Volume)
		if err != nil {
			c.logger.Warn().Str("ticker", r.Ticker).Err(err).Msg("skipping unparseable mover row")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// query issues one GET against the query endpoint and returns the decoded
// top-level JSON object after screening the upstream's in-band error fields.
func (c *AlphaVantage) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", c.apiKey)
	if c.useDelayed {
		params.Set("entitlement", "delayed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Alpha Vantage reports failures in-band with a 200 status.
	if msg, ok := payload["Error Message"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, string(msg))
	}
	if note, ok := payload["Note"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(note))
	}
	if info, ok := payload["Information"]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(info))
	}

	return payload, nil
}

func mapTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("upstream request failed: %w", err)
}

func parseBar(dateStr string, b avBar) (models.Candle, error) {
	layout := "2006-01-02"
	if strings.Contains(dateStr, " ") {
		layout = "2006-01-02 15:04:05"
	}
	ts, err := time.Parse(layout, dateStr)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse bar date %q: %w", dateStr, err)
	}

	open, err := strconv.ParseFloat(b.Open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse open %q: %w", b.Open, err)
	}
	high, err := strconv.ParseFloat(b.High, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse high %q: %w", b.High, err)
	}
	low, err := strconv.ParseFloat(b.Low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse low %q: %w", b.Low, err)
	}
	closePrice, err := strconv.ParseFloat(b.Close, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse close %q: %w", b.Close, err)
	}
	volume, err := strconv.ParseInt(b.Volume, 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parse volume %q: %w", b.Volume, err)
	}

	return models.Candle{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
