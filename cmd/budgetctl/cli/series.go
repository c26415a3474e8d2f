package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/budget-analytics/internal/analytics"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/filter"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
)

// SeriesOptions defines available flags for the series command.
type SeriesOptions struct {
	FilterPath    string
	Normalization string
	Currency      string
	Inflation     bool
	Growth        bool
	RollupTo      string
	TimeoutMS     float64
	JSONOutput    bool
	Stdin         io.Reader
	Stdout        io.Writer
	Stderr        io.Writer
}

func (c *CLI) newSeriesCmd() *cobra.Command {
	var opts SeriesOptions
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Compute a normalized period series for a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stdin = cmd.InOrStdin()
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			c.exitCode = c.SeriesCommand(cmd.Context(), opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.FilterPath, "filter", "", "Path to the filter JSON, - for stdin")
	cmd.Flags().StringVar(&opts.Normalization, "normalization", "total", "total, per_capita or percent_gdp")
	cmd.Flags().StringVar(&opts.Currency, "currency", "RON", "RON, EUR or USD")
	cmd.Flags().BoolVar(&opts.Inflation, "inflation", false, "Adjust for inflation")
	cmd.Flags().BoolVar(&opts.Growth, "growth", false, "Show period-over-period growth")
	cmd.Flags().StringVar(&opts.RollupTo, "rollup", "", "Roll the normalized series up to QUARTER or YEAR")
	cmd.Flags().Float64Var(&opts.TimeoutMS, "timeout-ms", 0, "Statement timeout override in milliseconds")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("filter")
	return cmd
}

// SeriesCommand executes the series workflow and prints the outcome.
func (c *CLI) SeriesCommand(ctx context.Context, opts SeriesOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	f, err := readFilter(opts.FilterPath, opts.Stdin)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "series: %v\n", err)
		return ExitInvalid
	}
	req := analytics.SeriesRequest{
		Filter: f,
		Options: normalize.Options{
			Normalization:     normalize.Mode(strings.ToLower(strings.TrimSpace(opts.Normalization))),
			Currency:          normalize.Currency(strings.ToUpper(strings.TrimSpace(opts.Currency))),
			InflationAdjusted: opts.Inflation,
			ShowPeriodGrowth:  opts.Growth,
		},
		RollupTo:  normalize.Frequency(strings.ToUpper(strings.TrimSpace(opts.RollupTo))),
		TimeoutMS: opts.TimeoutMS,
	}

	return c.withBackend(ctx, "series", opts.Stderr, func(b Backend) int {
		if b.Series == nil {
			_, _ = fmt.Fprintln(opts.Stderr, "series: series runner not configured")
			return ExitError
		}
		result, err := b.Series.Series(ctx, req)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "series: %v\n", err)
			var verr *filter.ValidationError
			if errors.As(err, &verr) {
				return ExitInvalid
			}
			return ExitError
		}
		if opts.JSONOutput {
			if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "series: encode json: %v\n", err)
				return ExitError
			}
			return ExitOK
		}
		renderSeriesHuman(opts.Stdout, result)
		return ExitOK
	})
}

func readFilter(path string, stdin io.Reader) (filter.AnalyticsFilter, error) {
	var f filter.AnalyticsFilter
	if strings.TrimSpace(path) == "" {
		return f, errors.New("--filter is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return f, fmt.Errorf("read filter: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("decode filter: %w", err)
	}
	return f, nil
}

func renderSeriesHuman(out io.Writer, result analytics.SeriesResult) {
	opts := result.Options
	mode := string(opts.Normalization)
	if mode == "" {
		mode = string(normalize.ModeTotal)
	}
	currency := string(opts.Currency)
	if currency == "" {
		currency = string(normalize.RON)
	}
	prices := "nominal"
	if opts.InflationAdjusted {
		prices = "real"
	}
	if opts.Normalization == normalize.ModePercentGDP {
		currency, prices = "% of GDP", "nominal"
	}
	_, _ = fmt.Fprintf(out, "Series %s (%s, %s, %s)\n", result.Series.Frequency, mode, currency, prices)
	if len(result.Series.Points) == 0 {
		_, _ = fmt.Fprintln(out, "No line items matched the filter.")
	}
	for _, p := range result.Series.Points {
		value := p.Value.StringFixed(2)
		if opts.ShowPeriodGrowth {
			value += "%"
		}
		_, _ = fmt.Fprintf(out, " - %-8s %s\n", p.Period, value)
	}
	_, _ = fmt.Fprintf(out, "Total: %s\n", result.Total.StringFixed(2))
	_, _ = fmt.Fprintf(out, "Average: %s\n", result.Average.StringFixed(2))
}
