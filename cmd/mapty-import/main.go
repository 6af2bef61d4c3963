package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/importer"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "Mapty server URL; when set, workouts are sent over HTTP instead of written to the store")
	filePath := flag.String("file", "", "path to a JSON export of workouts (required)")
	dryRun := flag.Bool("dry-run", false, "validate records without importing them")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-import -file workouts.json [-config config.yaml | -server URL] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Error("failed to open export", "path", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode — nothing will be written")
	}

	var sink importer.Sink
	if *serverURL != "" {
		sink = importer.NewClient(*serverURL)
		log.Info("importing over HTTP", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if cfg.Storage.Driver == config.DriverPostgres {
			db := cfg.Storage.Postgres
			if err := storage.RunMigrations(db.DSN(), db.Migrations); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
		}

		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			log.Error("failed to open store", "driver", cfg.Storage.Driver, "error", err)
			os.Exit(1)
		}
		defer store.Close()

		mgr := session.NewManager(session.Deps{Store: store, Log: log}, session.WithKey(cfg.Storage.Key))
		if err := mgr.Initialize(ctx); err != nil {
			// Importing on top of an unreadable collection would overwrite it.
			log.Error("failed to load existing workouts", "error", err)
			os.Exit(1)
		}
		sink = mgr
		log.Info("importing into store", "driver", cfg.Storage.Driver, "existing", len(mgr.Workouts()))
	}

	stats, err := importer.New(sink, log, *dryRun).Import(ctx, f)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"records_read", stats.Read,
		"workouts_imported", stats.Imported,
		"records_rejected", stats.Rejected,
	)
}
