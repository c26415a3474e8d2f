package datasets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
)

// Repository loads year-indexed factor tables from economic_indicators.
type Repository struct {
	db  *sql.DB
	ids IDs
}

// NewRepository constructs a repository.
func NewRepository(conn *sql.DB, ids IDs) *Repository {
	return &Repository{db: conn, ids: ids}
}

// LoadFactorMap reads one dataset, optionally restricted to years.
func (r *Repository) LoadFactorMap(ctx context.Context, datasetID string, years YearRange) (normalize.FactorMap, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("datasets: repository not initialised")
	}
	if years.Bounded() && years.From > years.To {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, years.From, years.To)
	}

	query := "SELECT year, value FROM economic_indicators WHERE dataset_id = $1"
	args := []any{datasetID}
	if years.Bounded() {
		query += " AND year BETWEEN $2 AND $3"
		args = append(args, years.From, years.To)
	}
	query += " ORDER BY year"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("datasets: load %s: %w", datasetID, err)
	}
	defer rows.Close()

	out := make(normalize.FactorMap)
	for rows.Next() {
		var (
			year  int
			value decimal.Decimal
		)
		if err := rows.Scan(&year, &value); err != nil {
			return nil, fmt.Errorf("datasets: scan %s: %w", datasetID, err)
		}
		out[year] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasets: load %s: %w", datasetID, err)
	}
	return out, nil
}

// LoadFactors loads, concurrently, only the tables opts needs. Unused maps stay nil.
func (r *Repository) LoadFactors(ctx context.Context, opts normalize.Options, years YearRange) (normalize.Factors, error) {
	kinds := Required(opts)
	for _, k := range kinds {
		if r.ids.For(k) == "" {
			return normalize.Factors{}, fmt.Errorf("%w: %s", ErrDatasetNotConfigured, k)
		}
	}

	maps := make([]normalize.FactorMap, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		i, k := i, k
		g.Go(func() error {
			m, err := r.LoadFactorMap(gctx, r.ids.For(k), years)
			if err != nil {
				return err
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return normalize.Factors{}, err
	}

	var factors normalize.Factors
	for i, k := range kinds {
		set(&factors, k, maps[i])
	}
	return factors, nil
}
