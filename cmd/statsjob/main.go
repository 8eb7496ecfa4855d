// Command statsjob runs one statistics batch operation and exits. It is meant
// for cron style invocation and for backfilling a given day.
//
//	statsjob [-date YYYY-MM-DD] <operation>
//	statsjob list
//	statsjob migrate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lorrc/ohq-statistics/internal/adapters/primary/validation"
	"github.com/lorrc/ohq-statistics/internal/adapters/secondary/postgres"
	"github.com/lorrc/ohq-statistics/internal/config"
	apperrors "github.com/lorrc/ohq-statistics/internal/core/errors"
	"github.com/lorrc/ohq-statistics/internal/core/services"
	"github.com/lorrc/ohq-statistics/internal/infrastructure/logging"
	"github.com/lorrc/ohq-statistics/internal/scheduler"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
	exitUsage   = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("statsjob", flag.ContinueOnError)
	fs.SetOutput(stderr)
	date := fs.String("date", "", "run as if today were this date (YYYY-MM-DD, in STATS_TIMEZONE)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: statsjob [-date YYYY-MM-DD] <operation|list|migrate>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	command := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      stderr,
		ServiceName: cfg.App.Name + "-job",
		Environment: cfg.App.Environment,
	})

	asOf := time.Now()
	if *date != "" {
		parsed, err := time.Parse(validation.DateLayout, *date)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -date %q: expected YYYY-MM-DD\n", *date)
			return exitUsage
		}
		asOf = scheduler.AsOfDate(parsed, cfg.Stats.Location)
	}

	if command == "migrate" {
		version, err := postgres.Migrate(cfg.Database.URL, cfg.Stats.MigrationsPath)
		if err != nil {
			logger.Error("migration failed", "error", err)
			return exitFailed
		}
		fmt.Fprintf(stdout, "schema at version %d\n", version)
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        int32(max(cfg.Stats.Concurrency+1, 2)),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return exitFailed
	}
	defer pool.Close()

	courseRepo := postgres.NewCourseRepository(pool)
	svc := services.NewStatisticsService(
		postgres.NewQuestionRepository(pool),
		courseRepo,
		postgres.NewStatisticsRepository(pool),
		postgres.NewTransactionManager(pool),
		nil,
		logger,
		services.StatisticsOptions{
			Location:             cfg.Stats.Location,
			HeatmapLookbackWeeks: cfg.Stats.HeatmapLookbackWeeks,
			Concurrency:          cfg.Stats.Concurrency,
			WaitEstimateWindow:   cfg.Stats.WaitEstimateWindow,
		},
	)

	if command == "list" {
		for _, op := range svc.Operations() {
			fmt.Fprintln(stdout, op)
		}
		return exitOK
	}

	report, err := svc.Run(ctx, command, asOf)
	switch {
	case errors.Is(err, apperrors.ErrUnknownOperation):
		fmt.Fprintf(stderr, "unknown operation %q, run \"statsjob list\" for the choices\n", command)
		return exitUsage
	case report == nil:
		logger.Error("operation failed", "operation", command, "error", err)
		return exitFailed
	}

	fmt.Fprintf(stdout, "%s finished in %s: %d units, %d failed, %d statistics written\n",
		report.Operation,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.UnitsProcessed,
		report.UnitsFailed,
		report.StatisticsWritten,
	)

	if err != nil {
		if errors.Is(err, apperrors.ErrPartialFailure) {
			return exitPartial
		}
		return exitFailed
	}
	return exitOK
}
