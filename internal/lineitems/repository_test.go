package lineitems

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/filter"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
)

func yearlyQuery() SeriesQuery {
	f := filter.AnalyticsFilter{
		AccountCategory: filter.CategoryExpense,
		ReportPeriod: filter.ReportPeriod{
			Type:      filter.PeriodYear,
			Selection: filter.PeriodSelection{Interval: &filter.PeriodInterval{Start: "2020", End: "2021"}},
		},
	}
	return SeriesQuery{
		PeriodType: f.ReportPeriod.Type,
		Compiled:   filter.Compile(f, filter.DefaultContext().WithJoins(filter.RequiredJoins(f))),
	}
}

const yearlySQL = "SELECT eli.year AS year, 0 AS sub, COALESCE(SUM(eli.ytd_amount), 0) AS amount" +
	" FROM execution_line_items eli" +
	" WHERE eli.account_category = $1 AND eli.is_yearly = $2 AND eli.year BETWEEN $3 AND $4" +
	" GROUP BY eli.year ORDER BY eli.year"

func TestBuildSeriesQueryYearly(t *testing.T) {
	query, args, err := BuildSeriesQuery(yearlyQuery())
	require.NoError(t, err)
	assert.Equal(t, yearlySQL, query)
	assert.Equal(t, []any{"ch", true, 2020, 2021}, args)
}

func TestBuildSeriesQueryJoinsAndHaving(t *testing.T) {
	floor := 1000.0
	f := filter.AnalyticsFilter{
		AccountCategory: filter.CategoryExpense,
		ReportPeriod: filter.ReportPeriod{
			Type:      filter.PeriodQuarter,
			Selection: filter.PeriodSelection{Dates: []string{"2023-Q1", "2023-Q2"}},
		},
		CountyCodes:        []string{"CJ"},
		AggregateMinAmount: &floor,
	}
	q := SeriesQuery{
		PeriodType: filter.PeriodQuarter,
		Compiled:   filter.Compile(f, filter.DefaultContext().WithJoins(filter.RequiredJoins(f))),
	}

	query, args, err := BuildSeriesQuery(q)
	require.NoError(t, err)
	assert.Contains(t, query, "SELECT eli.year AS year, eli.quarter AS sub, COALESCE(SUM(eli.quarterly_amount), 0) AS amount")
	assert.Contains(t, query, " JOIN entities e ON e.cui = eli.entity_cui LEFT JOIN uats u ON u.id = e.uat_id")
	assert.Contains(t, query, "(eli.year * 10 + eli.quarter) IN ($3, $4)")
	assert.Contains(t, query, "u.county_code IN ($5)")
	assert.Contains(t, query, " GROUP BY eli.year, eli.quarter HAVING SUM(eli.quarterly_amount) >= $6 ORDER BY eli.year, eli.quarter")
	require.Len(t, args, 6)
	assert.True(t, decimal.NewFromInt(1000).Equal(args[5].(decimal.Decimal)))
}

func TestBuildSeriesQueryMonthlyWithoutJoins(t *testing.T) {
	f := filter.AnalyticsFilter{
		AccountCategory: filter.CategoryIncome,
		ReportPeriod: filter.ReportPeriod{
			Type:      filter.PeriodMonth,
			Selection: filter.PeriodSelection{Dates: []string{"2024-01"}},
		},
	}
	q := SeriesQuery{PeriodType: filter.PeriodMonth, Compiled: filter.Compile(f, filter.DefaultContext())}

	query, _, err := BuildSeriesQuery(q)
	require.NoError(t, err)
	assert.NotContains(t, query, "JOIN")
	assert.NotContains(t, query, "HAVING")
	assert.Contains(t, query, "SUM(eli.monthly_amount)")
	assert.Contains(t, query, "GROUP BY eli.year, eli.month")
}

func TestBuildSeriesQueryRejectsUnknownPeriod(t *testing.T) {
	_, _, err := BuildSeriesQuery(SeriesQuery{PeriodType: "WEEK"})
	require.ErrorIs(t, err, ErrUnsupportedPeriod)
}

func TestPeriodSeries(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo, err := NewRepository(conn, 30000)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL statement_timeout = 30000")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(yearlySQL)).
		WithArgs("ch", true, int64(2020), int64(2021)).
		WillReturnRows(sqlmock.NewRows([]string{"year", "sub", "amount"}).
			AddRow(int64(2020), int64(0), "1000.50").
			AddRow(int64(2021), int64(0), "1100.25"))
	mock.ExpectRollback()

	series, err := repo.PeriodSeries(context.Background(), yearlyQuery())
	require.NoError(t, err)
	assert.Equal(t, normalize.Year, series.Frequency)
	require.Len(t, series.Points, 2)
	assert.Equal(t, "2020", series.Points[0].Period)
	assert.True(t, decimal.RequireFromString("1000.50").Equal(series.Points[0].Value))
	assert.Equal(t, "2021", series.Points[1].Period)
	assert.True(t, decimal.RequireFromString("1100.25").Equal(series.Points[1].Value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodSeriesTimeoutOverrideAndEmptyResult(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo, err := NewRepository(conn, 30000)
	require.NoError(t, err)

	q := yearlyQuery()
	q.TimeoutMS = 2000

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL statement_timeout = 2000")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(yearlySQL)).
		WillReturnRows(sqlmock.NewRows([]string{"year", "sub", "amount"}))
	mock.ExpectRollback()

	series, err := repo.PeriodSeries(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, series.Points)
	assert.Empty(t, series.Points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodSeriesMapsQueryCanceled(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo, err := NewRepository(conn, 1000)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnError(&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"})
	mock.ExpectRollback()

	_, err = repo.PeriodSeries(context.Background(), yearlyQuery())
	require.ErrorIs(t, err, ErrStatementTimeout)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodSeriesWrapsOtherErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo, err := NewRepository(conn, 1000)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT").WillReturnError(boom)
	mock.ExpectRollback()

	_, err = repo.PeriodSeries(context.Background(), yearlyQuery())
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrStatementTimeout)
}

func TestNewRepositoryValidatesTimeout(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	_, err = NewRepository(conn, 500)
	var verr *filter.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = NewRepository(nil, 30000)
	require.Error(t, err)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "2023", PeriodLabel(filter.PeriodYear, 2023, 0))
	assert.Equal(t, "2023-Q3", PeriodLabel(filter.PeriodQuarter, 2023, 3))
	assert.Equal(t, "2023-04", PeriodLabel(filter.PeriodMonth, 2023, 4))
}
