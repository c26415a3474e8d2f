// Package filter compiles an AnalyticsFilter into parameterized SQL predicate fragments
// over the execution_line_items fact table and its optional entity and UAT joins.
package filter
