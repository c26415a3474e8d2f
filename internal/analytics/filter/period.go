package filter

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	yearLabel    = regexp.MustCompile(`^(\d{4})$`)
	quarterLabel = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	monthLabel   = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
)

// Period is a parsed period label. Sub is the quarter or month and zero for years.
type Period struct {
	Year int
	Sub  int
}

// ParsePeriod parses label according to the period type: "2023", "2023-Q1" or "2023-01".
func ParsePeriod(t ReportPeriodType, label string) (Period, error) {
	var m []string
	switch t {
	case PeriodYear:
		m = yearLabel.FindStringSubmatch(label)
	case PeriodQuarter:
		m = quarterLabel.FindStringSubmatch(label)
	case PeriodMonth:
		m = monthLabel.FindStringSubmatch(label)
	default:
		return Period{}, fmt.Errorf("filter: unknown period type %q", t)
	}
	if m == nil {
		return Period{}, fmt.Errorf("filter: invalid %s period %q", t, label)
	}
	year, _ := strconv.Atoi(m[1])
	p := Period{Year: year}
	if len(m) > 2 {
		p.Sub, _ = strconv.Atoi(m[2])
	}
	return p, nil
}

// key orders periods of one type as an integer comparable with periodKeyExpr.
func (p Period) key(t ReportPeriodType) int {
	switch t {
	case PeriodQuarter:
		return p.Year*10 + p.Sub
	case PeriodMonth:
		return p.Year*100 + p.Sub
	default:
		return p.Year
	}
}

func periodKeyExpr(t ReportPeriodType, alias string) string {
	switch t {
	case PeriodQuarter:
		return "(" + Col(alias, "year") + " * 10 + " + Col(alias, "quarter") + ")"
	case PeriodMonth:
		return "(" + Col(alias, "year") + " * 100 + " + Col(alias, "month") + ")"
	default:
		return Col(alias, "year")
	}
}

// PeriodConditions restricts line items to the selected reports and periods. Labels that do
// not parse contribute nothing; Validate rejects them before compilation.
func PeriodConditions(rp ReportPeriod, ctx Context) []Condition {
	alias := ctx.LineItemAlias
	var out []Condition
	switch rp.Type {
	case PeriodYear:
		out = append(out, Eq(Col(alias, "is_yearly"), true))
	case PeriodQuarter:
		out = append(out, Eq(Col(alias, "is_quarterly"), true))
	case PeriodMonth:
	default:
		return nil
	}

	keyExpr := periodKeyExpr(rp.Type, alias)
	if iv := rp.Selection.Interval; iv != nil {
		start, errStart := ParsePeriod(rp.Type, iv.Start)
		end, errEnd := ParsePeriod(rp.Type, iv.End)
		if errStart == nil && errEnd == nil {
			out = append(out, Between(keyExpr, start.key(rp.Type), end.key(rp.Type)))
		}
		return out
	}

	keys := make([]int, 0, len(rp.Selection.Dates))
	for _, label := range rp.Selection.Dates {
		p, err := ParsePeriod(rp.Type, label)
		if err != nil {
			continue
		}
		keys = append(keys, p.key(rp.Type))
	}
	if c, ok := In(keyExpr, keys); ok {
		out = append(out, c)
	}
	return out
}
