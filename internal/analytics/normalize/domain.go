// Package normalize converts per-period nominal series into inflation-adjusted,
// currency-converted, per-capita, percent-of-GDP or growth figures using exact decimals.
package normalize

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Frequency is the period granularity of a series.
type Frequency string

const (
	Month   Frequency = "MONTH"
	Quarter Frequency = "QUARTER"
	Year    Frequency = "YEAR"
)

// DataPoint is one observation. Period is "2023", "2023-Q1" or "2023-01".
type DataPoint struct {
	Period string          `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

// DataSeries is an ascending, one-point-per-period series.
type DataSeries struct {
	Frequency Frequency   `json:"frequency"`
	Points    []DataPoint `json:"points"`
}

// Year extracts the calendar year from the point's period label.
func (p DataPoint) Year() (int, bool) {
	return periodYear(p.Period)
}

func periodYear(label string) (int, bool) {
	if len(label) < 4 {
		return 0, false
	}
	if len(label) > 4 && label[4] != '-' {
		return 0, false
	}
	y, err := strconv.Atoi(label[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// Mode selects the normalization unit.
type Mode string

const (
	ModeTotal      Mode = "total"
	ModePerCapita  Mode = "per_capita"
	ModePercentGDP Mode = "percent_gdp"
)

// Currency is the output currency. RON is the local currency.
type Currency string

const (
	RON Currency = "RON"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// Options is the caller-requested output shape. The zero value is a nominal RON total.
type Options struct {
	Normalization     Mode     `json:"normalization" validate:"omitempty,oneof=total per_capita percent_gdp"`
	Currency          Currency `json:"currency" validate:"omitempty,oneof=RON EUR USD"`
	InflationAdjusted bool     `json:"inflation_adjusted"`
	ShowPeriodGrowth  bool     `json:"show_period_growth"`
}

// IsLocal reports whether c needs no conversion.
func (c Currency) IsLocal() bool {
	return c == "" || c == RON
}
