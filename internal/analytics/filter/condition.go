package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is one parameterized predicate fragment. SQL uses `?` placeholders only; the
// bound values travel in Args and are never spliced into the text.
type Condition struct {
	SQL  string
	Args []any
}

// Col qualifies a column with a table alias.
func Col(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

// Eq builds `col = ?`.
func Eq(col string, value any) Condition {
	return Condition{SQL: col + " = ?", Args: []any{value}}
}

// Gte builds `col >= ?`.
func Gte(col string, value any) Condition {
	return Condition{SQL: col + " >= ?", Args: []any{value}}
}

// Lte builds `col <= ?`.
func Lte(col string, value any) Condition {
	return Condition{SQL: col + " <= ?", Args: []any{value}}
}

// Between builds `col BETWEEN ? AND ?`.
func Between(col string, lo, hi any) Condition {
	return Condition{SQL: col + " BETWEEN ? AND ?", Args: []any{lo, hi}}
}

// In builds `col IN (?, ...)`. ok is false for an empty list so callers never emit `IN ()`.
func In[T any](col string, values []T) (Condition, bool) {
	if len(values) == 0 {
		return Condition{}, false
	}
	return Condition{SQL: col + " IN (" + placeholders(len(values)) + ")", Args: toArgs(values)}, true
}

// NotIn builds `col NOT IN (?, ...)` for columns that cannot hold NULL.
func NotIn[T any](col string, values []T) (Condition, bool) {
	if len(values) == 0 {
		return Condition{}, false
	}
	return Condition{SQL: col + " NOT IN (" + placeholders(len(values)) + ")", Args: toArgs(values)}, true
}

// NotInNullable builds `(col IS NULL OR col NOT IN (?, ...))`. A bare NOT IN evaluates to
// NULL for NULL rows and would drop them.
func NotInNullable[T any](col string, values []T) (Condition, bool) {
	if len(values) == 0 {
		return Condition{}, false
	}
	return Condition{
		SQL:  "(" + col + " IS NULL OR " + col + " NOT IN (" + placeholders(len(values)) + "))",
		Args: toArgs(values),
	}, true
}

// EscapeLike escapes the LIKE metacharacters in s using backslash as the escape character.
func EscapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LikePrefix builds `col LIKE ? ESCAPE '\'` matching values that start with prefix.
func LikePrefix(col, prefix string) Condition {
	return Condition{SQL: col + ` LIKE ? ESCAPE '\'`, Args: []any{EscapeLike(prefix) + "%"}}
}

// NotLikePrefix builds the negation of LikePrefix.
func NotLikePrefix(col, prefix string) Condition {
	return Condition{SQL: col + ` NOT LIKE ? ESCAPE '\'`, Args: []any{EscapeLike(prefix) + "%"}}
}

// AnyPrefix OR-combines one LikePrefix per non-empty prefix.
func AnyPrefix(col string, prefixes []string) (Condition, bool) {
	parts := make([]Condition, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		parts = append(parts, LikePrefix(col, p))
	}
	return Or(parts...)
}

// NoPrefix AND-combines one NotLikePrefix per non-empty prefix. When nullable is set NULL
// rows are retained.
func NoPrefix(col string, prefixes []string, nullable bool) (Condition, bool) {
	parts := make([]Condition, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		parts = append(parts, NotLikePrefix(col, p))
	}
	cond, ok := And(parts...)
	if !ok || !nullable {
		return cond, ok
	}
	return Condition{SQL: "(" + col + " IS NULL OR " + cond.SQL + ")", Args: cond.Args}, true
}

// Or joins conditions with OR inside parentheses.
func Or(conds ...Condition) (Condition, bool) {
	return join(" OR ", conds)
}

// And joins conditions with AND inside parentheses.
func And(conds ...Condition) (Condition, bool) {
	return join(" AND ", conds)
}

func join(sep string, conds []Condition) (Condition, bool) {
	switch len(conds) {
	case 0:
		return Condition{}, false
	case 1:
		return conds[0], true
	}
	texts := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		texts[i] = c.SQL
		args = append(args, c.Args...)
	}
	return Condition{SQL: "(" + strings.Join(texts, sep) + ")", Args: args}, true
}

// Where AND-joins conds and rebinds `?` placeholders to `$first`, `$first+1`, ... for
// Postgres. It returns the clause body without the WHERE keyword, and the flattened args.
func Where(conds []Condition, first int) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	texts := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		texts[i] = c.SQL
		args = append(args, c.Args...)
	}
	return Rebind(strings.Join(texts, " AND "), first), args
}

// Rebind replaces each `?` outside single-quoted literals with `$n`, starting at first.
func Rebind(sql string, first int) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := first
	quoted := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %v", c.SQL, c.Args)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs[T any](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
