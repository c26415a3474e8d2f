package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFactorMap(t *testing.T) {
	m, err := ParseFactorMap(map[int]string{2020: "4.8371", 2021: " 4.9204 "})
	require.NoError(t, err)
	assert.True(t, d("4.8371").Equal(m[2020]))
	assert.True(t, d("4.9204").Equal(m[2021]))

	_, err = ParseFactorMap(map[int]string{2022: "n/a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2022")
}

func TestFactorMapFromFloatsRejectsNonFinite(t *testing.T) {
	m, err := FactorMapFromFloats(map[int]float64{2020: 1.05})
	require.NoError(t, err)
	assert.True(t, d("1.05").Equal(m[2020]))

	_, err = FactorMapFromFloats(map[int]float64{2020: math.NaN()})
	require.Error(t, err)
	_, err = FactorMapFromFloats(map[int]float64{2020: math.Inf(1)})
	require.Error(t, err)
}

func TestFactorsRate(t *testing.T) {
	f := Factors{EUR: FactorMap{2020: d("5")}, USD: FactorMap{2020: d("4")}}

	assert.Equal(t, f.EUR, f.Rate(EUR))
	assert.Equal(t, f.USD, f.Rate(USD))
	assert.Nil(t, f.Rate(RON))

	var empty FactorMap
	_, ok := empty.Lookup(2020)
	assert.False(t, ok)
}

func TestPeriodYear(t *testing.T) {
	cases := map[string]struct {
		year int
		ok   bool
	}{
		"2023":    {2023, true},
		"2023-Q2": {2023, true},
		"2023-11": {2023, true},
		"23":      {0, false},
		"2023Q1":  {0, false},
		"abcd":    {0, false},
	}
	for label, want := range cases {
		year, ok := DataPoint{Period: label}.Year()
		assert.Equal(t, want.ok, ok, label)
		assert.Equal(t, want.year, year, label)
	}
}
