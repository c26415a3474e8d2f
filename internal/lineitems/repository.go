package lineitems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/filter"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
	"github.com/odyssey-erp/budget-analytics/internal/platform/db"
)

var (
	// ErrStatementTimeout indicates Postgres cancelled the query after statement_timeout.
	ErrStatementTimeout = errors.New("lineitems: statement timeout")
	// ErrUnsupportedPeriod indicates a period type the repository cannot group by.
	ErrUnsupportedPeriod = errors.New("lineitems: unsupported period type")
)

// query_canceled, raised when statement_timeout fires.
const sqlStateQueryCanceled = "57014"

// SeriesQuery is a compiled filter ready to execute. Compiled must have been produced
// against filter.DefaultContext so that its aliases match the generated FROM clause.
type SeriesQuery struct {
	PeriodType filter.ReportPeriodType
	Compiled   filter.Compiled
	// TimeoutMS overrides the repository default when positive.
	TimeoutMS int
}

// Repository reads aggregated execution line items from PostgreSQL.
type Repository struct {
	db        *sql.DB
	timeoutMS int
}

// NewRepository constructs a repository. timeoutMS is the default statement timeout and
// must pass filter.ValidateTimeout.
func NewRepository(conn *sql.DB, timeoutMS int) (*Repository, error) {
	if conn == nil {
		return nil, errors.New("lineitems: db required")
	}
	valid, err := filter.ValidateTimeout(float64(timeoutMS))
	if err != nil {
		return nil, err
	}
	return &Repository{db: conn, timeoutMS: valid}, nil
}

// PeriodSeries returns the nominal amount per period matching q, ascending by period.
func (r *Repository) PeriodSeries(ctx context.Context, q SeriesQuery) (normalize.DataSeries, error) {
	timeout := r.timeoutMS
	if q.TimeoutMS > 0 {
		timeout = q.TimeoutMS
	}
	setTimeout, err := filter.StatementTimeoutSQL(timeout)
	if err != nil {
		return normalize.DataSeries{}, err
	}
	query, args, err := BuildSeriesQuery(q)
	if err != nil {
		return normalize.DataSeries{}, err
	}

	series := normalize.DataSeries{Frequency: normalize.Frequency(q.PeriodType), Points: []normalize.DataPoint{}}
	err = db.WithReadOnlyTx(ctx, r.db, []string{setTimeout}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				year, sub int
				amount    decimal.Decimal
			)
			if err := rows.Scan(&year, &sub, &amount); err != nil {
				return err
			}
			series.Points = append(series.Points, normalize.DataPoint{
				Period: PeriodLabel(q.PeriodType, year, sub),
				Value:  amount,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return normalize.DataSeries{}, mapError(err)
	}
	return series, nil
}

// BuildSeriesQuery renders the grouped SELECT for q with Postgres placeholders.
func BuildSeriesQuery(q SeriesQuery) (string, []any, error) {
	ctx := filter.DefaultContext().WithJoins(q.Compiled.Joins)
	li := ctx.LineItemAlias
	year := filter.Col(li, "year")

	var sub string
	switch q.PeriodType {
	case filter.PeriodYear:
		sub = "0"
	case filter.PeriodQuarter:
		sub = filter.Col(li, "quarter")
	case filter.PeriodMonth:
		sub = filter.Col(li, "month")
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, q.PeriodType)
	}
	groupBy := year
	if sub != "0" {
		groupBy += ", " + sub
	}
	amount := filter.Col(li, filter.AmountColumn(q.PeriodType))

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s AS year, %s AS sub, COALESCE(SUM(%s), 0) AS amount", year, sub, amount)
	fmt.Fprintf(&b, " FROM execution_line_items %s", li)
	if ctx.HasEntityJoin {
		fmt.Fprintf(&b, " JOIN entities %s ON %s = %s",
			ctx.EntityAlias, filter.Col(ctx.EntityAlias, "cui"), filter.Col(li, "entity_cui"))
	}
	if ctx.HasUATJoin {
		fmt.Fprintf(&b, " LEFT JOIN uats %s ON %s = %s",
			ctx.UATAlias, filter.Col(ctx.UATAlias, "id"), filter.Col(ctx.EntityAlias, "uat_id"))
	}

	where, args := filter.Where(q.Compiled.Conditions, 1)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	fmt.Fprintf(&b, " GROUP BY %s", groupBy)
	having, havingArgs := filter.Where(q.Compiled.Having, len(args)+1)
	if having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(having)
		args = append(args, havingArgs...)
	}
	fmt.Fprintf(&b, " ORDER BY %s", groupBy)
	return b.String(), args, nil
}

// PeriodLabel formats a grouped period as "2023", "2023-Q1" or "2023-01".
func PeriodLabel(t filter.ReportPeriodType, year, sub int) string {
	switch t {
	case filter.PeriodQuarter:
		return fmt.Sprintf("%d-Q%d", year, sub)
	case filter.PeriodMonth:
		return fmt.Sprintf("%d-%02d", year, sub)
	default:
		return fmt.Sprintf("%d", year)
	}
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateQueryCanceled {
		return fmt.Errorf("%w: %w", ErrStatementTimeout, err)
	}
	return fmt.Errorf("lineitems: period series: %w", err)
}
