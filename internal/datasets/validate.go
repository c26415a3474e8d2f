package datasets

import (
	"fmt"
	"sort"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
)

// Gap lists the years a required table cannot serve. Zero is set only for divisors,
// where the pipeline would silently leave the value unconverted.
type Gap struct {
	Kind    Kind  `json:"dataset"`
	Missing []int `json:"missing_years"`
	Zero    []int `json:"zero_years,omitempty"`
}

// Result summarises a coverage check.
type Result struct {
	Years   YearRange `json:"-"`
	Checked []Kind    `json:"checked"`
	Gaps    []Gap     `json:"gaps"`
}

// OK reports whether every required table covers every year.
func (r Result) OK() bool {
	return len(r.Gaps) == 0
}

// Validate checks that factors covers years for every table opts needs. The
// transforms tolerate holes by passing values through or forcing zero, so gaps are only
// visible here.
func Validate(factors normalize.Factors, opts normalize.Options, years YearRange) (Result, error) {
	if !years.Bounded() {
		return Result{}, fmt.Errorf("datasets: year range is required")
	}
	if years.From > years.To {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrInvalidRange, years.From, years.To)
	}

	res := Result{Years: years, Checked: Required(opts), Gaps: make([]Gap, 0)}
	for _, k := range res.Checked {
		table := get(factors, k)
		var gap Gap
		for _, y := range years.Years() {
			v, ok := table.Lookup(y)
			switch {
			case !ok:
				gap.Missing = append(gap.Missing, y)
			case divisor(k) && v.IsZero():
				gap.Zero = append(gap.Zero, y)
			}
		}
		if len(gap.Missing) > 0 || len(gap.Zero) > 0 {
			gap.Kind = k
			res.Gaps = append(res.Gaps, gap)
		}
	}
	sort.Slice(res.Gaps, func(i, j int) bool { return res.Gaps[i].Kind < res.Gaps[j].Kind })
	return res, nil
}
