package datasets

import (
	"errors"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
)

var (
	// ErrDatasetNotConfigured indicates the options need a dataset with no configured id.
	ErrDatasetNotConfigured = errors.New("datasets: dataset not configured")
	// ErrInvalidRange indicates a year range with From after To.
	ErrInvalidRange = errors.New("datasets: invalid year range")
)

// Kind names one of the correction tables used by the normalization pipeline.
type Kind string

const (
	KindCPI        Kind = "cpi"
	KindEUR        Kind = "eur"
	KindUSD        Kind = "usd"
	KindPopulation Kind = "population"
	KindGDP        Kind = "gdp"
)

// IDs maps each kind to its dataset_id in economic_indicators.
type IDs struct {
	CPI        string
	EUR        string
	USD        string
	Population string
	GDP        string
}

// For returns the dataset id configured for k.
func (ids IDs) For(k Kind) string {
	switch k {
	case KindCPI:
		return ids.CPI
	case KindEUR:
		return ids.EUR
	case KindUSD:
		return ids.USD
	case KindPopulation:
		return ids.Population
	case KindGDP:
		return ids.GDP
	default:
		return ""
	}
}

// YearRange is an inclusive range of years. The zero value is unbounded.
type YearRange struct {
	From int
	To   int
}

// Bounded reports whether r restricts anything.
func (r YearRange) Bounded() bool {
	return r.From != 0 || r.To != 0
}

// Years lists every year in r. It is empty for unbounded or inverted ranges.
func (r YearRange) Years() []int {
	if !r.Bounded() || r.From > r.To {
		return nil
	}
	out := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		out = append(out, y)
	}
	return out
}

// Required lists the tables opts consults, in pipeline order. percent_gdp needs only GDP
// because it ignores inflation and currency.
func Required(opts normalize.Options) []Kind {
	if opts.Normalization == normalize.ModePercentGDP {
		return []Kind{KindGDP}
	}
	var kinds []Kind
	if opts.InflationAdjusted {
		kinds = append(kinds, KindCPI)
	}
	switch opts.Currency {
	case normalize.EUR:
		kinds = append(kinds, KindEUR)
	case normalize.USD:
		kinds = append(kinds, KindUSD)
	}
	if opts.Normalization == normalize.ModePerCapita {
		kinds = append(kinds, KindPopulation)
	}
	return kinds
}

// divisor reports whether the pipeline divides by k, so a zero value silently disables it.
func divisor(k Kind) bool {
	return k != KindCPI
}

func set(f *normalize.Factors, k Kind, m normalize.FactorMap) {
	switch k {
	case KindCPI:
		f.CPI = m
	case KindEUR:
		f.EUR = m
	case KindUSD:
		f.USD = m
	case KindPopulation:
		f.Population = m
	case KindGDP:
		f.GDP = m
	}
}

func get(f normalize.Factors, k Kind) normalize.FactorMap {
	switch k {
	case KindCPI:
		return f.CPI
	case KindEUR:
		return f.EUR
	case KindUSD:
		return f.USD
	case KindPopulation:
		return f.Population
	case KindGDP:
		return f.GDP
	default:
		return nil
	}
}
