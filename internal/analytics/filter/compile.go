package filter

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Line item columns.
const (
	colReportID        = "report_id"
	colReportType      = "report_type"
	colEntityCUI       = "entity_cui"
	colMainCreditorCUI = "main_creditor_cui"
	colFundingSourceID = "funding_source_id"
	colBudgetSectorID  = "budget_sector_id"
	colFunctionalCode  = "functional_code"
	colEconomicCode    = "economic_code"
	colProgramCode     = "program_code"
	colAccountCategory = "account_category"
	colExpenseType     = "expense_type"
	colYTDAmount       = "ytd_amount"
	colMonthlyAmount   = "monthly_amount"
	colQuarterlyAmount = "quarterly_amount"
)

// Entity and UAT columns.
const (
	colEntityName = "name"
	colEntityType = "entity_type"
	colEntityUAT  = "uat_id"
	colIsUAT      = "is_uat"
	colCounty     = "county_code"
	colRegion     = "region"
	colPopulation = "population"
)

// Compile translates f into WHERE and HAVING fragments. Predicates on the entity or UAT
// alias are emitted only when ctx flags the corresponding join; Joins reports what the
// filter would need regardless of ctx. Compile never fails: empty dimensions emit nothing.
func Compile(f AnalyticsFilter, ctx Context) Compiled {
	out := Compiled{Joins: RequiredJoins(f)}
	li := ctx.LineItemAlias

	if f.AccountCategory != "" {
		out.Conditions = append(out.Conditions, Eq(Col(li, colAccountCategory), string(f.AccountCategory)))
	}
	out.Conditions = append(out.Conditions, PeriodConditions(f.ReportPeriod, ctx)...)

	appendIn(&out.Conditions, Col(li, colReportID), f.ReportIDs)
	if f.ReportType != nil && *f.ReportType != "" {
		out.Conditions = append(out.Conditions, Eq(Col(li, colReportType), *f.ReportType))
	}
	if f.MainCreditorCUI != nil && *f.MainCreditorCUI != "" {
		out.Conditions = append(out.Conditions, Eq(Col(li, colMainCreditorCUI), *f.MainCreditorCUI))
	}
	appendIn(&out.Conditions, Col(li, colEntityCUI), f.EntityCUIs)
	appendIn(&out.Conditions, Col(li, colFundingSourceID), f.FundingSourceIDs)
	appendIn(&out.Conditions, Col(li, colBudgetSectorID), f.BudgetSectorIDs)
	appendIn(&out.Conditions, Col(li, colExpenseType), f.ExpenseTypes)

	out.Conditions = append(out.Conditions, CodeConditions(f, ctx)...)
	out.Conditions = append(out.Conditions, GeographyConditions(f, ctx)...)
	out.Conditions = append(out.Conditions, AmountConditions(f.ReportPeriod.Type, f.ItemMinAmount, f.ItemMaxAmount, ctx)...)
	if f.Exclude != nil {
		out.Conditions = append(out.Conditions, CompileExclusions(*f.Exclude, f.AccountCategory, ctx)...)
	}

	out.Having = AggregateConditions(f, ctx)
	return out
}

// RequiredJoins reports which optional joins f references. A UAT join goes through the
// entity table, so it implies the entity join.
func RequiredJoins(f AnalyticsFilter) JoinsRequired {
	var j JoinsRequired
	if len(f.EntityTypes) > 0 || len(f.UATIDs) > 0 || f.IsUAT != nil || hasText(f.Search) {
		j.Entity = true
	}
	if len(f.CountyCodes) > 0 || len(f.Regions) > 0 || f.MinPopulation != nil || f.MaxPopulation != nil {
		j.UAT = true
	}
	if ex := f.Exclude; ex != nil {
		if len(ex.EntityTypes) > 0 || len(ex.UATIDs) > 0 {
			j.Entity = true
		}
		if len(ex.CountyCodes) > 0 || len(ex.Regions) > 0 {
			j.UAT = true
		}
	}
	if j.UAT {
		j.Entity = true
	}
	return j
}

// AmountColumn picks the amount column matching the reporting frequency.
func AmountColumn(t ReportPeriodType) string {
	switch t {
	case PeriodMonth:
		return colMonthlyAmount
	case PeriodQuarter:
		return colQuarterlyAmount
	default:
		return colYTDAmount
	}
}

// AmountConditions bounds the per-item amount. Nil, NaN and infinite bounds are ignored.
func AmountConditions(t ReportPeriodType, lo, hi *float64, ctx Context) []Condition {
	col := Col(ctx.LineItemAlias, AmountColumn(t))
	var out []Condition
	if finite(lo) {
		out = append(out, Gte(col, decimal.NewFromFloat(*lo)))
	}
	if finite(hi) {
		out = append(out, Lte(col, decimal.NewFromFloat(*hi)))
	}
	return out
}

// AggregateConditions bounds the summed amount per period group.
func AggregateConditions(f AnalyticsFilter, ctx Context) []Condition {
	sum := "SUM(" + Col(ctx.LineItemAlias, AmountColumn(f.ReportPeriod.Type)) + ")"
	var out []Condition
	if finite(f.AggregateMinAmount) {
		out = append(out, Gte(sum, decimal.NewFromFloat(*f.AggregateMinAmount)))
	}
	if finite(f.AggregateMaxAmount) {
		out = append(out, Lte(sum, decimal.NewFromFloat(*f.AggregateMaxAmount)))
	}
	return out
}

// CodeConditions emits the functional, economic and program classification predicates.
// Exact codes become IN lists; prefixes are OR-combined LIKE patterns.
func CodeConditions(f AnalyticsFilter, ctx Context) []Condition {
	li := ctx.LineItemAlias
	var out []Condition
	appendIn(&out, Col(li, colFunctionalCode), f.FunctionalCodes)
	if c, ok := AnyPrefix(Col(li, colFunctionalCode), f.FunctionalPrefixes); ok {
		out = append(out, c)
	}
	appendIn(&out, Col(li, colEconomicCode), f.EconomicCodes)
	if c, ok := AnyPrefix(Col(li, colEconomicCode), f.EconomicPrefixes); ok {
		out = append(out, c)
	}
	appendIn(&out, Col(li, colProgramCode), f.ProgramCodes)
	return out
}

// GeographyConditions emits entity- and UAT-level predicates, each gated on its join.
func GeographyConditions(f AnalyticsFilter, ctx Context) []Condition {
	var out []Condition
	if ctx.HasEntityJoin {
		e := ctx.EntityAlias
		appendIn(&out, Col(e, colEntityType), f.EntityTypes)
		appendIn(&out, Col(e, colEntityUAT), f.UATIDs)
		if f.IsUAT != nil {
			out = append(out, Eq(Col(e, colIsUAT), *f.IsUAT))
		}
		if hasText(f.Search) {
			out = append(out, SearchCondition(Col(e, colEntityName), *f.Search))
		}
	}
	if ctx.HasUATJoin {
		u := ctx.UATAlias
		appendIn(&out, Col(u, colCounty), f.CountyCodes)
		appendIn(&out, Col(u, colRegion), f.Regions)
		if f.MinPopulation != nil {
			out = append(out, Gte(Col(u, colPopulation), *f.MinPopulation))
		}
		if f.MaxPopulation != nil {
			out = append(out, Lte(Col(u, colPopulation), *f.MaxPopulation))
		}
	}
	return out
}

// CompileExclusions emits the negated form of every excluded dimension. Nullable columns
// keep their NULL rows; excluded prefixes must all fail to match. Economic exclusions are
// skipped for income, which is not classified economically.
func CompileExclusions(ex ExclusionFilter, category AccountCategory, ctx Context) []Condition {
	li := ctx.LineItemAlias
	var out []Condition

	appendNotIn(&out, Col(li, colReportID), ex.ReportIDs)
	appendNotIn(&out, Col(li, colEntityCUI), ex.EntityCUIs)
	appendNotIn(&out, Col(li, colFundingSourceID), ex.FundingSourceIDs)
	appendNotIn(&out, Col(li, colBudgetSectorID), ex.BudgetSectorIDs)
	appendNotIn(&out, Col(li, colExpenseType), ex.ExpenseTypes)

	appendNotIn(&out, Col(li, colFunctionalCode), ex.FunctionalCodes)
	if c, ok := NoPrefix(Col(li, colFunctionalCode), ex.FunctionalPrefixes, false); ok {
		out = append(out, c)
	}
	if category != CategoryIncome {
		appendNotIn(&out, Col(li, colEconomicCode), ex.EconomicCodes)
		if c, ok := NoPrefix(Col(li, colEconomicCode), ex.EconomicPrefixes, false); ok {
			out = append(out, c)
		}
	}
	appendNotInNullable(&out, Col(li, colProgramCode), ex.ProgramCodes)

	if ctx.HasEntityJoin {
		appendNotInNullable(&out, Col(ctx.EntityAlias, colEntityType), ex.EntityTypes)
		appendNotInNullable(&out, Col(ctx.EntityAlias, colEntityUAT), ex.UATIDs)
	}
	if ctx.HasUATJoin {
		appendNotInNullable(&out, Col(ctx.UATAlias, colCounty), ex.CountyCodes)
		appendNotInNullable(&out, Col(ctx.UATAlias, colRegion), ex.Regions)
	}
	return out
}

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldSearch lowercases term and strips combining marks, so "Timișoara" matches "timisoara".
func FoldSearch(term string) string {
	folded, _, err := transform.String(diacritics, strings.TrimSpace(term))
	if err != nil {
		folded = strings.TrimSpace(term)
	}
	return strings.ToLower(folded)
}

// SearchCondition matches col against term anywhere in the value, ignoring case and
// diacritics. Requires the unaccent extension.
func SearchCondition(col, term string) Condition {
	return Condition{
		SQL:  "unaccent(" + col + `) ILIKE ? ESCAPE '\'`,
		Args: []any{"%" + EscapeLike(FoldSearch(term)) + "%"},
	}
}

func appendIn[T any](out *[]Condition, col string, values []T) {
	if c, ok := In(col, values); ok {
		*out = append(*out, c)
	}
}

func appendNotIn[T any](out *[]Condition, col string, values []T) {
	if c, ok := NotIn(col, values); ok {
		*out = append(*out, c)
	}
}

func appendNotInNullable[T any](out *[]Condition, col string, values []T) {
	if c, ok := NotInNullable(col, values); ok {
		*out = append(*out, c)
	}
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
