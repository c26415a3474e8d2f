package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/budget-analytics/cmd/budgetctl/cli"
	"github.com/odyssey-erp/budget-analytics/internal/analytics"
	"github.com/odyssey-erp/budget-analytics/internal/app"
	"github.com/odyssey-erp/budget-analytics/internal/datasets"
	"github.com/odyssey-erp/budget-analytics/internal/lineitems"
	"github.com/odyssey-erp/budget-analytics/internal/observability"
	"github.com/odyssey-erp/budget-analytics/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cli.NewCLI(cli.Options{Open: openBackend})
	code := c.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func openBackend(ctx context.Context) (cli.Backend, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return cli.Backend{}, nil, err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return cli.Backend{}, nil, err
	}
	sqlDB := db.OpenSQL(pool)
	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("close sql db", slog.Any("error", err))
		}
		pool.Close()
	}

	items, err := lineitems.NewRepository(sqlDB, cfg.QueryTimeoutMS)
	if err != nil {
		closeFn()
		return cli.Backend{}, nil, err
	}
	factors := datasets.NewRepository(sqlDB, cfg.DatasetIDs())
	metrics := observability.NewMetrics(func(err error) bool {
		return errors.Is(err, lineitems.ErrStatementTimeout)
	})
	service := analytics.NewService(items, factors, metrics, logger)

	return cli.Backend{Series: service, Factors: factors, Gatherer: metrics.Gatherer()}, closeFn, nil
}
