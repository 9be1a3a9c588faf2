package main

import (
	"sp-sync/internal/config"
	"sp-sync/internal/database"
	"sp-sync/internal/jobs"
	"sp-sync/internal/logging"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"
)

func main() {
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
	total, err := runner.SyncItems()
	if err != nil {
		log.Fatalf("Item sync failed: %v", err)
	}
	log.Infof("Item sync complete. Total items inserted: %d", total)
}
