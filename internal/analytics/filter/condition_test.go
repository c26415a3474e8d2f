package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"65":     "65",
		"6_":     `6\_`,
		"6%":     `6\%`,
		`a\b`:    `a\\b`,
		"ăî_%":   `ăî\_\%`,
		"":       "",
		`%_\%_`:  `\%\_\\\%\_`,
		"65.02.": "65.02.",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeLike(in), "input %q", in)
	}
}

func TestInSkipsEmptyLists(t *testing.T) {
	_, ok := In[string]("eli.report_id", nil)
	assert.False(t, ok)
	_, ok = NotIn("eli.report_id", []int64{})
	assert.False(t, ok)
	_, ok = NotInNullable[string]("u.region", nil)
	assert.False(t, ok)
}

func TestAnyPrefixIgnoresBlankPrefixes(t *testing.T) {
	_, ok := AnyPrefix("eli.functional_code", []string{"", ""})
	assert.False(t, ok)

	c, ok := AnyPrefix("eli.functional_code", []string{"", "65"})
	require.True(t, ok)
	assert.Equal(t, []any{"65%"}, c.Args)
}

func TestNoPrefixNullable(t *testing.T) {
	c, ok := NoPrefix("eli.program_code", []string{"1", "2"}, true)
	require.True(t, ok)
	assert.Equal(t, `(eli.program_code IS NULL OR (eli.program_code NOT LIKE ? ESCAPE '\' AND eli.program_code NOT LIKE ? ESCAPE '\'))`, c.SQL)
	assert.Equal(t, []any{"1%", "2%"}, c.Args)
}

func TestWhereRebindsPlaceholders(t *testing.T) {
	conds := []Condition{
		Eq("eli.account_category", "ch"),
		LikePrefix("eli.functional_code", "65"),
		{SQL: "eli.entity_cui IN (?, ?)", Args: []any{"1", "2"}},
	}
	clause, args := Where(conds, 1)
	assert.Equal(t, `eli.account_category = $1 AND eli.functional_code LIKE $2 ESCAPE '\' AND eli.entity_cui IN ($3, $4)`, clause)
	assert.Equal(t, []any{"ch", "65%", "1", "2"}, args)

	clause, args = Where(nil, 1)
	assert.Empty(t, clause)
	assert.Nil(t, args)
}

func TestRebindSkipsQuotedQuestionMarks(t *testing.T) {
	assert.Equal(t, "a = $3 AND b = '?' AND c = $4", Rebind("a = ? AND b = '?' AND c = ?", 3))
}

func TestColWithoutAlias(t *testing.T) {
	assert.Equal(t, "year", Col("", "year"))
	assert.Equal(t, "eli.year", Col("eli", "year"))
}
