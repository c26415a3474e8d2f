package normalize

import "github.com/shopspring/decimal"

// DivisionScale is the number of decimal places kept by each division. GDP-sized divisors
// need far more than the package default of 16.
const DivisionScale int32 = 28

var hundred = decimal.NewFromInt(100)

// Normalize transforms a nominal RON series into the unit requested by opts. Run it on
// the raw per-period series and aggregate afterwards: factors differ from year to year.
//
// percent_gdp is exclusive. A nominal/nominal ratio already cancels inflation and
// currency, so those settings are ignored in that mode. Otherwise inflation, currency
// and per-capita run in that order. Growth, when requested, always runs last.
func Normalize(series DataSeries, opts Options, factors Factors) DataSeries {
	var out DataSeries
	if opts.Normalization == ModePercentGDP {
		out = ApplyPercentGDP(series, factors.GDP)
	} else {
		out = copySeries(series)
		if opts.InflationAdjusted {
			out = ApplyInflation(out, factors.CPI)
		}
		if !opts.Currency.IsLocal() {
			out = ApplyCurrency(out, opts.Currency, factors.Rate(opts.Currency))
		}
		if opts.Normalization == ModePerCapita {
			out = ApplyPerCapita(out, factors.Population)
		}
	}
	if opts.ShowPeriodGrowth {
		out = ApplyGrowth(out)
	}
	return out
}

// ApplyInflation multiplies each value by the price index of its year. Missing years
// use a factor of 1.
func ApplyInflation(series DataSeries, cpi FactorMap) DataSeries {
	return mapValues(series, func(p DataPoint) decimal.Decimal {
		factor, ok := lookupYear(cpi, p)
		if !ok {
			return p.Value
		}
		return p.Value.Mul(factor)
	})
}

// ApplyCurrency divides each value by the exchange rate of its year. The local currency
// is a no-op, a missing year uses a rate of 1 and a zero rate leaves the value unchanged.
func ApplyCurrency(series DataSeries, currency Currency, rates FactorMap) DataSeries {
	if currency.IsLocal() {
		return copySeries(series)
	}
	return mapValues(series, func(p DataPoint) decimal.Decimal {
		rate, ok := lookupYear(rates, p)
		if !ok || rate.IsZero() {
			return p.Value
		}
		return p.Value.DivRound(rate, DivisionScale)
	})
}

// ApplyPerCapita divides each value by the population of its year. Missing or zero
// population leaves the value unchanged.
func ApplyPerCapita(series DataSeries, population FactorMap) DataSeries {
	return mapValues(series, func(p DataPoint) decimal.Decimal {
		pop, ok := lookupYear(population, p)
		if !ok || pop.IsZero() {
			return p.Value
		}
		return p.Value.DivRound(pop, DivisionScale)
	})
}

// ApplyPercentGDP expresses each value as a percentage of the year's GDP. Missing or zero
// GDP yields 0, unlike ApplyPerCapita which passes the value through.
func ApplyPercentGDP(series DataSeries, gdp FactorMap) DataSeries {
	return mapValues(series, func(p DataPoint) decimal.Decimal {
		g, ok := lookupYear(gdp, p)
		if !ok || g.IsZero() {
			return decimal.Zero
		}
		return p.Value.Mul(hundred).DivRound(g, DivisionScale)
	})
}

// ApplyGrowth replaces each value with its percentage change from the previous point.
// The first point and points following a zero are 0.
func ApplyGrowth(series DataSeries) DataSeries {
	out := DataSeries{Frequency: series.Frequency, Points: make([]DataPoint, len(series.Points))}
	for i, p := range series.Points {
		growth := decimal.Zero
		if i > 0 {
			prev := series.Points[i-1].Value
			if !prev.IsZero() {
				growth = p.Value.Sub(prev).Mul(hundred).DivRound(prev, DivisionScale)
			}
		}
		out.Points[i] = DataPoint{Period: p.Period, Value: growth}
	}
	return out
}

func lookupYear(m FactorMap, p DataPoint) (decimal.Decimal, bool) {
	year, ok := p.Year()
	if !ok {
		return decimal.Decimal{}, false
	}
	return m.Lookup(year)
}

func mapValues(series DataSeries, fn func(DataPoint) decimal.Decimal) DataSeries {
	out := DataSeries{Frequency: series.Frequency, Points: make([]DataPoint, len(series.Points))}
	for i, p := range series.Points {
		out.Points[i] = DataPoint{Period: p.Period, Value: fn(p)}
	}
	return out
}

func copySeries(series DataSeries) DataSeries {
	out := DataSeries{Frequency: series.Frequency, Points: make([]DataPoint, len(series.Points))}
	copy(out.Points, series.Points)
	return out
}
