package normalize

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Total sums the points of a normalized series.
func Total(series DataSeries) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range series.Points {
		sum = sum.Add(p.Value)
	}
	return sum
}

// Average is the mean of a normalized series, zero when empty.
func Average(series DataSeries) decimal.Decimal {
	if len(series.Points) == 0 {
		return decimal.Zero
	}
	return Total(series).DivRound(decimal.NewFromInt(int64(len(series.Points))), DivisionScale)
}

// Rollup sums a normalized series into the coarser frequency to. Rolling up before
// normalizing would apply one year's factor to another year's amounts.
func Rollup(series DataSeries, to Frequency) (DataSeries, error) {
	if rank(to) < rank(series.Frequency) {
		return DataSeries{}, fmt.Errorf("normalize: cannot roll %s up to %s", series.Frequency, to)
	}
	if to == series.Frequency {
		return copySeries(series), nil
	}

	out := DataSeries{Frequency: to}
	index := make(map[string]int)
	for _, p := range series.Points {
		label, err := coarsen(p.Period, series.Frequency, to)
		if err != nil {
			return DataSeries{}, err
		}
		i, ok := index[label]
		if !ok {
			i = len(out.Points)
			index[label] = i
			out.Points = append(out.Points, DataPoint{Period: label, Value: decimal.Zero})
		}
		out.Points[i].Value = out.Points[i].Value.Add(p.Value)
	}
	return out, nil
}

func rank(f Frequency) int {
	switch f {
	case Month:
		return 0
	case Quarter:
		return 1
	case Year:
		return 2
	default:
		return -1
	}
}

func coarsen(label string, from, to Frequency) (string, error) {
	year, ok := periodYear(label)
	if !ok {
		return "", fmt.Errorf("normalize: invalid period %q", label)
	}
	if to == Year {
		return strconv.Itoa(year), nil
	}
	// from MONTH to QUARTER
	if from != Month || len(label) != 7 {
		return "", fmt.Errorf("normalize: invalid %s period %q", from, label)
	}
	month, err := strconv.Atoi(label[5:])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("normalize: invalid %s period %q", from, label)
	}
	return fmt.Sprintf("%d-Q%d", year, (month-1)/3+1), nil
}
