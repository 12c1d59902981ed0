// Command backfill-payments itemizes legacy advance payments on hotel
// bookings and repairs payment summaries that drifted from their
// payment list. Run it once after upgrading; the server never does this.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"deora-backend/internal/booking"
	"deora-backend/internal/config"
	"deora-backend/internal/database"
	"deora-backend/internal/logger"

	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the changes without writing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := database.Init(cfg, log); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	report, err := booking.Backfill(context.Background(), database.DB, *dryRun, log)
	if err != nil {
		log.Fatal("backfill failed", zap.Error(err), zap.Int("changes_before_error", len(report.Changes)))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal("print report", zap.Error(err))
	}
	log.Info("backfill finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("changed", len(report.Changes)),
		zap.Bool("dry_run", *dryRun),
	)
}
