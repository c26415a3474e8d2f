package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FactorMap is a year-indexed table of multipliers or divisors. A missing year is a
// valid state; each transform decides its own fallback.
type FactorMap map[int]decimal.Decimal

// Factors holds the correction tables a pipeline run may consult. Only the maps the
// requested options need must be populated.
type Factors struct {
	CPI        FactorMap
	EUR        FactorMap
	USD        FactorMap
	Population FactorMap
	GDP        FactorMap
}

// Rate returns the exchange-rate table for c, nil for the local currency.
func (f Factors) Rate(c Currency) FactorMap {
	switch c {
	case EUR:
		return f.EUR
	case USD:
		return f.USD
	default:
		return nil
	}
}

// Lookup returns the factor for year.
func (m FactorMap) Lookup(year int) (decimal.Decimal, bool) {
	if m == nil {
		return decimal.Decimal{}, false
	}
	v, ok := m[year]
	return v, ok
}

// ParseFactorMap builds a FactorMap from decimal literals. Malformed literals are
// rejected with the offending year.
func ParseFactorMap(raw map[int]string) (FactorMap, error) {
	out := make(FactorMap, len(raw))
	for year, literal := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("normalize: factor year %d: invalid decimal %q: %w", year, literal, err)
		}
		out[year] = d
	}
	return out, nil
}

// FactorMapFromFloats builds a FactorMap from floats, rejecting NaN and infinities.
func FactorMapFromFloats(raw map[int]float64) (FactorMap, error) {
	out := make(FactorMap, len(raw))
	for year, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("normalize: factor year %d: non-finite value %v", year, v)
		}
		out[year] = decimal.NewFromFloat(v)
	}
	return out, nil
}
