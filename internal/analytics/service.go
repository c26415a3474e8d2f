package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/filter"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
	"github.com/odyssey-erp/budget-analytics/internal/datasets"
	"github.com/odyssey-erp/budget-analytics/internal/lineitems"
	"github.com/odyssey-erp/budget-analytics/internal/observability"
)

// SeriesRepository runs compiled filters against the line-item store.
type SeriesRepository interface {
	PeriodSeries(ctx context.Context, q lineitems.SeriesQuery) (normalize.DataSeries, error)
}

// FactorLoader provides the correction tables a normalization needs.
type FactorLoader interface {
	LoadFactors(ctx context.Context, opts normalize.Options, years datasets.YearRange) (normalize.Factors, error)
}

// SeriesRequest asks for one normalized period series.
type SeriesRequest struct {
	Filter  filter.AnalyticsFilter `json:"filter"`
	Options normalize.Options      `json:"options"`

	// RollupTo, when set, sums the normalized series into a coarser frequency.
	RollupTo normalize.Frequency `json:"rollup_to,omitempty" validate:"omitempty,oneof=QUARTER YEAR"`

	// TimeoutMS overrides the repository statement timeout when non-zero.
	TimeoutMS float64 `json:"statement_timeout_ms,omitempty"`
}

// SeriesResult is a normalized series with its level aggregates. Total and Average are
// computed before growth is applied.
type SeriesResult struct {
	RequestID string               `json:"request_id"`
	Series    normalize.DataSeries `json:"series"`
	Total     decimal.Decimal      `json:"total"`
	Average   decimal.Decimal      `json:"average"`
	Joins     filter.JoinsRequired `json:"joins"`
	Options   normalize.Options    `json:"options"`
}

// Service coordinates filter compilation, query execution and normalization.
type Service struct {
	repo    SeriesRepository
	factors FactorLoader
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService wires the collaborators. metrics may be nil.
func NewService(repo SeriesRepository, factors FactorLoader, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, factors: factors, metrics: metrics, logger: logger}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = filter.NewValidator()
	})
	return validate
}

// Series validates req, runs the query and factor loading concurrently, then normalizes.
// Collaborator errors are returned as-is.
func (s *Service) Series(ctx context.Context, req SeriesRequest) (SeriesResult, error) {
	requestID := uuid.NewString()
	logger := s.logger.With(slog.String("request_id", requestID))
	tracker := s.metrics.Track(string(req.Options.Normalization))

	timeout, err := s.check(req)
	if err != nil {
		logger.Warn("reject series request", slog.Any("error", err))
		return SeriesResult{}, tracker.Reject(err)
	}

	joins := filter.RequiredJoins(req.Filter)
	compiled := filter.Compile(req.Filter, filter.DefaultContext().WithJoins(joins))
	logger.Debug("compiled series filter",
		slog.Int("conditions", len(compiled.Conditions)),
		slog.Int("having", len(compiled.Having)),
		slog.Bool("entity_join", joins.Entity),
		slog.Bool("uat_join", joins.UAT),
	)

	var (
		raw     normalize.DataSeries
		factors normalize.Factors
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		series, err := s.repo.PeriodSeries(gctx, lineitems.SeriesQuery{
			PeriodType: req.Filter.ReportPeriod.Type,
			Compiled:   compiled,
			TimeoutMS:  timeout,
		})
		tracker.Stage("query", time.Since(start))
		if err != nil {
			return err
		}
		raw = series
		return nil
	})
	g.Go(func() error {
		if len(datasets.Required(req.Options)) == 0 {
			return nil
		}
		start := time.Now()
		loaded, err := s.factors.LoadFactors(gctx, req.Options, YearsOf(req.Filter.ReportPeriod))
		tracker.Stage("factors", time.Since(start))
		if err != nil {
			return err
		}
		factors = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("series request failed", slog.Any("error", err))
		return SeriesResult{}, tracker.End(0, err)
	}

	start := time.Now()
	levels := req.Options
	levels.ShowPeriodGrowth = false
	out := normalize.Normalize(raw, levels, factors)
	if req.RollupTo != "" && req.RollupTo != out.Frequency {
		out, err = normalize.Rollup(out, req.RollupTo)
		if err != nil {
			logger.Warn("rollup series", slog.Any("error", err))
			return SeriesResult{}, tracker.End(0, err)
		}
	}
	result := SeriesResult{
		RequestID: requestID,
		Total:     normalize.Total(out),
		Average:   normalize.Average(out),
		Joins:     joins,
		Options:   req.Options,
	}
	if req.Options.ShowPeriodGrowth {
		out = normalize.ApplyGrowth(out)
	}
	result.Series = out
	tracker.Stage("normalize", time.Since(start))

	logger.Info("series computed",
		slog.String("mode", string(req.Options.Normalization)),
		slog.String("currency", string(req.Options.Currency)),
		slog.Bool("inflation_adjusted", req.Options.InflationAdjusted),
		slog.Int("points", len(out.Points)),
	)
	return result, tracker.End(len(out.Points), nil)
}

// check validates the request and resolves the statement timeout, zero meaning the
// repository default.
func (s *Service) check(req SeriesRequest) (int, error) {
	if s.repo == nil {
		return 0, errors.New("analytics: series repository required")
	}
	if s.factors == nil && len(datasets.Required(req.Options)) > 0 {
		return 0, errors.New("analytics: factor loader required")
	}
	if err := req.Filter.Validate(); err != nil {
		return 0, err
	}
	if err := requestValidator().Struct(req); err != nil {
		return 0, filter.AsValidationError(err)
	}
	if req.RollupTo == normalize.Quarter && req.Filter.ReportPeriod.Type == filter.PeriodYear {
		return 0, &filter.ValidationError{Field: "rollup_to", Reason: "cannot roll yearly data up to quarters"}
	}
	if req.TimeoutMS == 0 {
		return 0, nil
	}
	return filter.ValidateTimeout(req.TimeoutMS)
}

// YearsOf returns the calendar years a period selection spans. Unparsable labels are
// ignored; an empty selection yields the unbounded range.
func YearsOf(rp filter.ReportPeriod) datasets.YearRange {
	var labels []string
	if iv := rp.Selection.Interval; iv != nil {
		labels = []string{iv.Start, iv.End}
	} else {
		labels = rp.Selection.Dates
	}
	var r datasets.YearRange
	for _, label := range labels {
		p, err := filter.ParsePeriod(rp.Type, label)
		if err != nil {
			continue
		}
		if r.From == 0 || p.Year < r.From {
			r.From = p.Year
		}
		if p.Year > r.To {
			r.To = p.Year
		}
	}
	return r
}
