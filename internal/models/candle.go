package models

import (
	"fmt"
	"time"
)

// Period selects a candlestick resolution. The five values map one-to-one
// onto upstream time-series requests via PeriodSpecs.
type Period string

const (
	PeriodFiveMin  Period = "5m"
	PeriodOneHour  Period = "1h"
	PeriodOneDay   Period = "1d"
	PeriodOneWeek  Period = "1wk"
	PeriodOneMonth Period = "1mo"
)

// PeriodSpec describes how one Period translates to an upstream request and
// how many bars of the response to keep.
type PeriodSpec struct {
	Function string // Alpha Vantage time-series function
	Interval string // intraday interval, empty for daily and coarser
	MaxBars  int
}

// PeriodSpecs is the fixed period table. Adding a period means adding a row,
// not a branch.
var PeriodSpecs = map[Period]PeriodSpec{
	PeriodFiveMin:  {Function: "TIME_SERIES_INTRADAY", Interval: "5min", MaxBars: 100},
	PeriodOneHour:  {Function: "TIME_SERIES_INTRADAY", Interval: "60min", MaxBars: 100},
	PeriodOneDay:   {Function: "TIME_SERIES_DAILY", MaxBars: 100},
	PeriodOneWeek:  {Function: "TIME_SERIES_WEEKLY", MaxBars: 52},
	PeriodOneMonth: {Function: "TIME_SERIES_MONTHLY", MaxBars: 24},
}

// SeriesKey returns the JSON key the upstream uses for this spec's payload.
func (s PeriodSpec) SeriesKey() string {
	switch s.Function {
	case "TIME_SERIES_INTRADAY":
		return fmt.Sprintf("Time Series (%s)", s.Interval)
	case "TIME_SERIES_WEEKLY":
		return "Weekly Time Series"
	case "TIME_SERIES_MONTHLY":
		return "Monthly Time Series"
	default:
		return "Time Series (Daily)"
	}
}

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if _, ok := PeriodSpecs[p]; !ok {
		return "", fmt.Errorf("%w: unknown period %q", ErrValidation, s)
	}
	return p, nil
}

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// CandleSeries is a cached bar sequence for one (symbol, period). Replacement
// is all-or-nothing: a refresh swaps the whole series so readers never observe
// bars from two fetch generations.
type CandleSeries struct {
	Symbol    string    `json:"symbol"`
	Period    Period    `json:"period"`
	Bars      []Candle  `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SeriesKey builds the storage key for a (symbol, period) pair.
func SeriesKey(symbol string, period Period) string {
	return symbol + ":" + string(period)
}
