package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/budget-analytics/internal/analytics"
	"github.com/odyssey-erp/budget-analytics/internal/analytics/normalize"
	"github.com/odyssey-erp/budget-analytics/internal/datasets"
)

// Exit codes shared by all commands.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitInvalid = 2
	ExitGaps    = 10
)

// SeriesRunner computes normalized series.
type SeriesRunner interface {
	Series(ctx context.Context, req analytics.SeriesRequest) (analytics.SeriesResult, error)
}

// FactorLoader loads the correction tables for a set of options.
type FactorLoader interface {
	LoadFactors(ctx context.Context, opts normalize.Options, years datasets.YearRange) (normalize.Factors, error)
}

// Backend bundles the collaborators commands run against.
type Backend struct {
	Series   SeriesRunner
	Factors  FactorLoader
	Gatherer prometheus.Gatherer
}

// Opener connects the backend lazily so that --help and flag errors never touch the database.
type Opener func(ctx context.Context) (Backend, func(), error)

// Options configures the CLI.
type Options struct {
	Open   Opener
	Stdout io.Writer
	Stderr io.Writer
}

// CLI is the budgetctl command tree.
type CLI struct {
	open        Opener
	stdout      io.Writer
	stderr      io.Writer
	metricsPath string
	exitCode    int
	rootCmd     *cobra.Command
}

// NewCLI creates a new CLI instance.
func NewCLI(opts Options) *CLI {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	c := &CLI{open: opts.Open, stdout: opts.Stdout, stderr: opts.Stderr}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the command line in args and returns the process exit code.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	c.exitCode = ExitOK
	c.rootCmd.SetArgs(args)
	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		return ExitError
	}
	return c.exitCode
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Budget execution analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)
	cmd.PersistentFlags().StringVar(&c.metricsPath, "metrics-textfile", "", "Write Prometheus metrics to this file after the command")

	factors := &cobra.Command{
		Use:   "factors",
		Short: "Inspect normalization factor datasets",
	}
	factors.AddCommand(c.newFactorsValidateCmd())

	cmd.AddCommand(c.newSeriesCmd())
	cmd.AddCommand(factors)
	return cmd
}

// withBackend opens the backend, runs fn and flushes metrics.
func (c *CLI) withBackend(ctx context.Context, name string, stderr io.Writer, fn func(Backend) int) int {
	if c.open == nil {
		_, _ = fmt.Fprintf(stderr, "%s: backend not configured\n", name)
		return ExitError
	}
	backend, closeFn, err := c.open(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return ExitError
	}
	if closeFn != nil {
		defer closeFn()
	}
	code := fn(backend)
	if c.metricsPath != "" && backend.Gatherer != nil {
		if err := prometheus.WriteToTextfile(c.metricsPath, backend.Gatherer); err != nil {
			_, _ = fmt.Fprintf(stderr, "%s: write metrics: %v\n", name, err)
		}
	}
	return code
}
