package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
	"github.com/odyssey-erp/budget-analytics/internal/datasets"
)

// FactorsValidateOptions defines available flags for the factors validate command.
type FactorsValidateOptions struct {
	From       int
	To         int
	Currency   string
	PerCapita  bool
	PercentGDP bool
	Inflation  bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// FactorsValidateSummary describes the JSON response for factors validate.
type FactorsValidateSummary struct {
	OK      bool                 `json:"ok"`
	From    int                  `json:"from"`
	To      int                  `json:"to"`
	Checked []datasets.Kind      `json:"checked"`
	Gaps    []FactorsValidateGap `json:"gaps"`
}

// FactorsValidateGap captures one unusable year of a dataset.
type FactorsValidateGap struct {
	Dataset string `json:"dataset"`
	Year    int    `json:"year"`
	Reason  string `json:"reason"`
}

func (c *CLI) newFactorsValidateCmd() *cobra.Command {
	var opts FactorsValidateOptions
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report years the requested normalization cannot cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			c.exitCode = c.FactorsValidateCommand(cmd.Context(), opts)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.From, "from", 0, "First year to check")
	cmd.Flags().IntVar(&opts.To, "to", 0, "Last year to check")
	cmd.Flags().StringVar(&opts.Currency, "currency", "RON", "RON, EUR or USD")
	cmd.Flags().BoolVar(&opts.PerCapita, "per-capita", false, "Check population coverage")
	cmd.Flags().BoolVar(&opts.PercentGDP, "percent-gdp", false, "Check GDP coverage")
	cmd.Flags().BoolVar(&opts.Inflation, "inflation", false, "Check CPI coverage")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print JSON")
	cmd.MarkFlagsMutuallyExclusive("per-capita", "percent-gdp")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// FactorsValidateCommand checks dataset coverage and prints the outcome. It exits with
// ExitGaps when any required year is missing or zero.
func (c *CLI) FactorsValidateCommand(ctx context.Context, opts FactorsValidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.From <= 0 || opts.To <= 0 || opts.From > opts.To {
		_, _ = fmt.Fprintf(opts.Stderr, "factors validate: invalid year range %d..%d\n", opts.From, opts.To)
		return ExitInvalid
	}
	if opts.PerCapita && opts.PercentGDP {
		_, _ = fmt.Fprintln(opts.Stderr, "factors validate: --per-capita and --percent-gdp are exclusive")
		return ExitInvalid
	}
	normOpts := normalize.Options{
		Normalization:     normalize.ModeTotal,
		Currency:          normalize.Currency(strings.ToUpper(strings.TrimSpace(opts.Currency))),
		InflationAdjusted: opts.Inflation,
	}
	switch normOpts.Currency {
	case "", normalize.RON, normalize.EUR, normalize.USD:
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "factors validate: unsupported currency %q\n", opts.Currency)
		return ExitInvalid
	}
	if opts.PerCapita {
		normOpts.Normalization = normalize.ModePerCapita
	}
	if opts.PercentGDP {
		normOpts.Normalization = normalize.ModePercentGDP
	}
	years := datasets.YearRange{From: opts.From, To: opts.To}

	return c.withBackend(ctx, "factors validate", opts.Stderr, func(b Backend) int {
		if b.Factors == nil {
			_, _ = fmt.Fprintln(opts.Stderr, "factors validate: factor loader not configured")
			return ExitError
		}
		factors, err := b.Factors.LoadFactors(ctx, normOpts, years)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "factors validate: %v\n", err)
			return ExitError
		}
		result, err := datasets.Validate(factors, normOpts, years)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "factors validate: %v\n", err)
			return ExitError
		}
		if opts.JSONOutput {
			if err := json.NewEncoder(opts.Stdout).Encode(buildFactorsSummary(result)); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "factors validate: encode json: %v\n", err)
				return ExitError
			}
		} else {
			renderFactorsHuman(opts.Stdout, result)
		}
		if !result.OK() {
			return ExitGaps
		}
		return ExitOK
	})
}

func buildFactorsSummary(result datasets.Result) FactorsValidateSummary {
	gaps := make([]FactorsValidateGap, 0)
	for _, gap := range result.Gaps {
		for _, y := range gap.Missing {
			gaps = append(gaps, FactorsValidateGap{Dataset: string(gap.Kind), Year: y, Reason: "missing"})
		}
		for _, y := range gap.Zero {
			gaps = append(gaps, FactorsValidateGap{Dataset: string(gap.Kind), Year: y, Reason: "zero"})
		}
	}
	checked := result.Checked
	if checked == nil {
		checked = []datasets.Kind{}
	}
	return FactorsValidateSummary{
		OK:      len(gaps) == 0,
		From:    result.Years.From,
		To:      result.Years.To,
		Checked: checked,
		Gaps:    gaps,
	}
}

func renderFactorsHuman(out io.Writer, result datasets.Result) {
	_, _ = fmt.Fprintf(out, "Factor coverage %d..%d\n", result.Years.From, result.Years.To)
	if len(result.Checked) == 0 {
		_, _ = fmt.Fprintln(out, "No factor datasets are needed for these options.")
		return
	}
	names := make([]string, len(result.Checked))
	for i, k := range result.Checked {
		names[i] = string(k)
	}
	_, _ = fmt.Fprintf(out, "Checked datasets: %s\n", strings.Join(names, ", "))
	if result.OK() {
		_, _ = fmt.Fprintln(out, "All required years are present.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d dataset(s) with gaps:\n", len(result.Gaps))
	for _, gap := range result.Gaps {
		if len(gap.Missing) > 0 {
			_, _ = fmt.Fprintf(out, " - %s missing %s\n", gap.Kind, joinYears(gap.Missing))
		}
		if len(gap.Zero) > 0 {
			_, _ = fmt.Fprintf(out, " - %s zero in %s\n", gap.Kind, joinYears(gap.Zero))
		}
	}
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, ", ")
}
