package filter

import "fmt"

// AccountCategory scopes line items to income or expense.
type AccountCategory string

const (
	// CategoryIncome selects income (venituri) line items.
	CategoryIncome AccountCategory = "vn"
	// CategoryExpense selects expense (cheltuieli) line items.
	CategoryExpense AccountCategory = "ch"
)

// ReportPeriodType is the reporting frequency of a period selection.
type ReportPeriodType string

const (
	PeriodMonth   ReportPeriodType = "MONTH"
	PeriodQuarter ReportPeriodType = "QUARTER"
	PeriodYear    ReportPeriodType = "YEAR"
)

// ReportPeriod selects the reporting periods of interest.
type ReportPeriod struct {
	Type      ReportPeriodType `json:"type" validate:"required,oneof=MONTH QUARTER YEAR"`
	Selection PeriodSelection  `json:"selection"`
}

// PeriodSelection holds either an inclusive interval or a list of discrete period labels.
// When both are set the interval wins.
type PeriodSelection struct {
	Interval *PeriodInterval `json:"interval,omitempty"`
	Dates    []string        `json:"dates,omitempty"`
}

// PeriodInterval is an inclusive range of period labels.
type PeriodInterval struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// AnalyticsFilter is a declarative query over execution line items. Nil slices and nil
// pointers mean "no restriction" for that dimension.
type AnalyticsFilter struct {
	AccountCategory AccountCategory `json:"account_category" validate:"required,oneof=vn ch"`
	ReportPeriod    ReportPeriod    `json:"report_period"`

	ReportIDs       []string `json:"report_ids,omitempty"`
	ReportType      *string  `json:"report_type,omitempty"`
	MainCreditorCUI *string  `json:"main_creditor_cui,omitempty"`

	EntityCUIs         []string `json:"entity_cuis,omitempty"`
	FunctionalCodes    []string `json:"functional_codes,omitempty"`
	FunctionalPrefixes []string `json:"functional_prefixes,omitempty"`
	EconomicCodes      []string `json:"economic_codes,omitempty"`
	EconomicPrefixes   []string `json:"economic_prefixes,omitempty"`
	ProgramCodes       []string `json:"program_codes,omitempty"`

	FundingSourceIDs []int64  `json:"funding_source_ids,omitempty"`
	BudgetSectorIDs  []int64  `json:"budget_sector_ids,omitempty"`
	ExpenseTypes     []string `json:"expense_types,omitempty" validate:"omitempty,dive,oneof=dezvoltare functionare"`

	CountyCodes []string `json:"county_codes,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	UATIDs      []int64  `json:"uat_ids,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
	IsUAT       *bool    `json:"is_uat,omitempty"`

	Search *string `json:"search,omitempty"`

	MinPopulation      *int64   `json:"min_population,omitempty" validate:"omitempty,gte=0"`
	MaxPopulation      *int64   `json:"max_population,omitempty" validate:"omitempty,gte=0"`
	AggregateMinAmount *float64 `json:"aggregate_min_amount,omitempty"`
	AggregateMaxAmount *float64 `json:"aggregate_max_amount,omitempty"`
	ItemMinAmount      *float64 `json:"item_min_amount,omitempty"`
	ItemMaxAmount      *float64 `json:"item_max_amount,omitempty"`

	Exclude *ExclusionFilter `json:"exclude,omitempty"`
}

// ExclusionFilter removes line items matching any listed value.
type ExclusionFilter struct {
	ReportIDs          []string `json:"report_ids,omitempty"`
	EntityCUIs         []string `json:"entity_cuis,omitempty"`
	FunctionalCodes    []string `json:"functional_codes,omitempty"`
	FunctionalPrefixes []string `json:"functional_prefixes,omitempty"`
	EconomicCodes      []string `json:"economic_codes,omitempty"`
	EconomicPrefixes   []string `json:"economic_prefixes,omitempty"`
	ProgramCodes       []string `json:"program_codes,omitempty"`
	FundingSourceIDs   []int64  `json:"funding_source_ids,omitempty"`
	BudgetSectorIDs    []int64  `json:"budget_sector_ids,omitempty"`
	ExpenseTypes       []string `json:"expense_types,omitempty"`
	CountyCodes        []string `json:"county_codes,omitempty"`
	Regions            []string `json:"regions,omitempty"`
	UATIDs             []int64  `json:"uat_ids,omitempty"`
	EntityTypes        []string `json:"entity_types,omitempty"`
}

// Context names the table aliases in the enclosing query and records which optional
// joins it contains.
type Context struct {
	LineItemAlias string
	EntityAlias   string
	UATAlias      string
	HasEntityJoin bool
	HasUATJoin    bool
}

// DefaultContext returns the aliases used by the line-item repository with no optional joins.
func DefaultContext() Context {
	return Context{LineItemAlias: "eli", EntityAlias: "e", UATAlias: "u"}
}

// WithJoins returns a copy of c with the join flags taken from j.
func (c Context) WithJoins(j JoinsRequired) Context {
	c.HasEntityJoin = j.Entity
	c.HasUATJoin = j.UAT
	return c
}

// JoinsRequired records which optional joins a filter references.
type JoinsRequired struct {
	Entity bool `json:"entity"`
	UAT    bool `json:"uat"`
}

// Compiled is the output of Compile.
type Compiled struct {
	// Conditions belong in the WHERE clause, AND-combined.
	Conditions []Condition
	// Having holds predicates over the aggregated amount.
	Having []Condition
	Joins  JoinsRequired
}

// ValidationError reports a rejected input field and the rule it violated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("filter: %s: %s", e.Field, e.Reason)
}
