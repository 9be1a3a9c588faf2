package main

import (
	"flag"

	"sp-sync/internal/config"
	"sp-sync/internal/database"
	"sp-sync/internal/jobs"
	"sp-sync/internal/logging"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"
)

var historic = flag.Bool("historic", false, "run the 720-day backfill with Excel export instead of the daily update")

func main() {
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogFile)

	if err := spapi.Validate(); err != nil {
		log.Fatalf("Marketplace table invalid: %v", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	runner := jobs.NewRunner(store.New(db), cfg, log)

	var total int
	if *historic {
		total, err = runner.BackfillSales()
	} else {
		total, err = runner.SyncDailySales()
	}
	if err != nil {
		log.Fatalf("Sales sync failed: %v", err)
	}
	log.Infof("Sales sync complete. Inserted: %d", total)
}
