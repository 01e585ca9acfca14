package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/pthm-cable/brakesim/config"
	"github.com/pthm-cable/brakesim/telemetry"
	"github.com/pthm-cable/brakesim/train"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = simulation.duration)")

	flag.Parse()

	runID := uuid.New()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("run_id", runID.String())
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	ticks := cfg.Derived.MaxTicks
	if *maxTicks > 0 {
		ticks = *maxTicks
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	// fail closes the output files before exiting, which a deferred Close
	// would not get to do.
	fail := func(msg string, err error) {
		slog.Error(msg, "error", err)
		if cerr := om.Close(); cerr != nil {
			slog.Error("failed to close output", "error", cerr)
		}
		os.Exit(1)
	}

	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	if err := om.WriteRunInfo(telemetry.RunInfo{
		RunID:    runID,
		Started:  time.Now().UTC(),
		Scenario: cfg.Scenario.Name,
		Cars:     len(cfg.Derived.Cars),
		MaxTicks: ticks,
	}); err != nil {
		slog.Error("failed to write run info", "error", err)
	}

	// Global meter is a no-op unless a provider is installed
	metrics, err := telemetry.NewMetrics(otel.Meter("brakesim"))
	if err != nil {
		fail("failed to create metrics", err)
	}

	tr, err := train.New(cfg, train.Options{
		OutputManager:  om,
		Metrics:        metrics,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
	})
	if err != nil {
		fail("failed to build train", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting simulation",
		"scenario", cfg.Scenario.Name,
		"cars", tr.Len(),
		"max_ticks", ticks,
		"output_dir", om.Dir(),
	)

	start := time.Now()
	err = tr.Run(ctx, ticks)
	if err != nil && !errors.Is(err, context.Canceled) {
		fail("simulation failed", err)
	}

	slog.Info("simulation finished",
		"tick", tr.Tick(),
		"sim_time", tr.SimTime(),
		"speed", tr.Speed(),
		"distance", tr.Distance(),
		"wall_time", time.Since(start).String(),
		"interrupted", err != nil,
		"perf", tr.PerfStats(),
	)
}
