package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/digienergy/simulation/pkg/config"
	"github.com/digienergy/simulation/pkg/log"
	"github.com/digienergy/simulation/pkg/server"
	"github.com/digienergy/simulation/pkg/sim"
	"github.com/digienergy/simulation/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	cfg := config.Configured()
	db := storage.Configured()

	// init server
	srv := server.Configured(cfg, db)

	serve := lflag.Bool("serve", false, "Run the HTTP API instead of a one-shot batch run")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if *serve {
		// Run will block until context is canceled or error happens
		if err := srv.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
		return
	}

	if err := runBatch(ctx, cfg, db); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "batch run failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "batch run finished")
}

// runBatch simulates and persists every month that has pinned peak values in
// the configuration.
func runBatch(ctx context.Context, cfg *config.Config, db storage.Database) error {
	months := cfg.Months()
	if len(months) == 0 {
		return fmt.Errorf("no months with peak values in configuration")
	}

	engine := sim.New(cfg)
	for _, m := range months {
		year, month := m.Year(), m.Month()
		res, err := engine.RunMonth(ctx, year, month)
		if err != nil {
			return fmt.Errorf("month %04d-%02d: %w", year, month, err)
		}
		if err := db.UpsertIntervals(ctx, res.Records); err != nil {
			return fmt.Errorf("month %04d-%02d: %w", year, month, err)
		}
		if err := db.UpsertMonthlyStats(ctx, res.Stats); err != nil {
			return fmt.Errorf("month %04d-%02d: %w", year, month, err)
		}
		if err := db.UpsertStatement(ctx, res.Statement); err != nil {
			return fmt.Errorf("month %04d-%02d: %w", year, month, err)
		}
		log.Ctx(ctx).InfoContext(
			ctx,
			"month persisted",
			slog.String("meterNo", res.Statement.MeterNo),
			slog.Int("year", year),
			slog.Int("month", int(month)),
			slog.Float64("totalEnergyKWH", res.Stats.TotalEnergyKWH),
			slog.Float64("totalCharge", res.Statement.TotalCharge),
		)
	}
	return nil
}
