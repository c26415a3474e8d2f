package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		typ   ReportPeriodType
		label string
		want  Period
		ok    bool
	}{
		{PeriodYear, "2023", Period{Year: 2023}, true},
		{PeriodYear, "2023-01", Period{}, false},
		{PeriodQuarter, "2023-Q4", Period{Year: 2023, Sub: 4}, true},
		{PeriodQuarter, "2023-Q5", Period{}, false},
		{PeriodMonth, "2023-09", Period{Year: 2023, Sub: 9}, true},
		{PeriodMonth, "2023-13", Period{}, false},
		{PeriodMonth, "2023-9", Period{}, false},
		{"WEEK", "2023", Period{}, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.typ, tc.label)
		if !tc.ok {
			assert.Error(t, err, "%s %s", tc.typ, tc.label)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestPeriodConditionsQuarterInterval(t *testing.T) {
	rp := ReportPeriod{
		Type:      PeriodQuarter,
		Selection: PeriodSelection{Interval: &PeriodInterval{Start: "2022-Q3", End: "2023-Q2"}},
	}
	conds := PeriodConditions(rp, DefaultContext())
	require.Len(t, conds, 2)
	assert.Equal(t, "eli.is_quarterly = ?", conds[0].SQL)
	assert.Equal(t, "(eli.year * 10 + eli.quarter) BETWEEN ? AND ?", conds[1].SQL)
	assert.Equal(t, []any{20223, 20232}, conds[1].Args)
}

func TestPeriodConditionsMonthDates(t *testing.T) {
	rp := ReportPeriod{
		Type:      PeriodMonth,
		Selection: PeriodSelection{Dates: []string{"2023-01", "bogus", "2023-12"}},
	}
	conds := PeriodConditions(rp, DefaultContext())
	require.Len(t, conds, 1)
	assert.Equal(t, "(eli.year * 100 + eli.month) IN (?, ?)", conds[0].SQL)
	assert.Equal(t, []any{202301, 202312}, conds[0].Args)
}

func TestPeriodConditionsWithoutSelection(t *testing.T) {
	conds := PeriodConditions(ReportPeriod{Type: PeriodYear}, DefaultContext())
	require.Len(t, conds, 1)
	assert.Equal(t, "eli.is_yearly = ?", conds[0].SQL)

	assert.Empty(t, PeriodConditions(ReportPeriod{}, DefaultContext()))
}
