package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/verdant/config"
	"github.com/pthm-cable/verdant/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Uint64("stats-window", 0, "Stats window size in ticks (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	snapshotEvery := flag.Uint64("snapshot-every", 0, "Save a snapshot every N ticks (0 = final only)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	restorePath := flag.String("restore", "", "Snapshot file to resume from")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 86400, "Stop after N ticks")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	s, err := sim.New(cfg, sim.Options{
		Seed:        rngSeed,
		LogStats:    *logStats,
		WindowTicks: *statsWindow,
		OutputDir:   *outputDir,
		SnapshotDir: *snapshotDir,
	})
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if *restorePath != "" {
		snap, err := sim.LoadSnapshot(*restorePath)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		s.RestoreSnapshot(snap)
		slog.Info("resumed from snapshot", "path", *restorePath, "tick", s.Tick())
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"output_dir", *outputDir,
	)

	for s.Tick() < *maxTicks {
		s.Step()

		if *snapshotEvery > 0 && s.Tick()%*snapshotEvery == 0 {
			if path, err := s.SaveSnapshot(); err != nil {
				slog.Error("failed to save snapshot", "error", err)
			} else if path != "" {
				slog.Info("snapshot saved", "path", path, "tick", s.Tick())
			}
		}
	}

	if path, err := s.SaveSnapshot(); err != nil {
		slog.Error("failed to save final snapshot", "error", err)
	} else if path != "" {
		slog.Info("final snapshot saved", "path", path, "tick", s.Tick())
	}
	slog.Info("max ticks reached", "tick", s.Tick())
}
