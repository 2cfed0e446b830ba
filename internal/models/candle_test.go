package models

import (
	"errors"
	"testing"
)

func TestPeriodSpecsComplete(t *testing.T) {
	periods := []Period{PeriodFiveMin, PeriodOneHour, PeriodOneDay, PeriodOneWeek, PeriodOneMonth}
	if len(PeriodSpecs) != len(periods) {
		t.Fatalf("expected %d period specs, got %d", len(periods), len(PeriodSpecs))
	}
	for _, p := range periods {
		spec, ok := PeriodSpecs[p]
		if !ok {
			t.Errorf("missing spec for period %s", p)
			continue
		}
		if spec.Function == "" || spec.MaxBars <= 0 {
			t.Errorf("incomplete spec for period %s: %+v", p, spec)
		}
	}
}

func TestPeriodSpecSeriesKey(t *testing.T) {
	tests := []struct {
		period Period
		want   string
	}{
		{PeriodFiveMin, "Time Series (5min)"},
		{PeriodOneHour, "Time Series (60min)"},
		{PeriodOneDay, "Time Series (Daily)"},
		{PeriodOneWeek, "Weekly Time Series"},
		{PeriodOneMonth, "Monthly Time Series"},
	}
	for _, tc := range tests {
		if got := PeriodSpecs[tc.period].SeriesKey(); got != tc.want {
			t.Errorf("SeriesKey(%s) = %q, want %q", tc.period, got, tc.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("1wk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PeriodOneWeek {
		t.Errorf("expected 1wk, got %s", p)
	}

	_, err = ParsePeriod("2d")
	if err == nil {
		t.Fatal("expected error for unknown period")
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSeriesKey(t *testing.T) {
	if got := SeriesKey("AAPL", PeriodOneDay); got != "AAPL:1d" {
		t.Errorf("unexpected series key: %s", got)
	}
}
