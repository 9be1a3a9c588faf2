package main

import (
	"sp-sync/internal/config"
	"sp-sync/internal/database"
	"sp-sync/internal/jobs"
	"sp-sync/internal/logging"
	"sp-sync/internal/spapi"
	"sp-sync/internal/store"
)

// run-all executes the three sync jobs in sequence in one process:
// orders, then items, then the daily sales summaries. Each job fails soft so a
// broken upstream never blocks the jobs after it.
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

	if total, err := runner.SyncOrders(); err != nil {
		log.Errorf("Order sync failed: %v", err)
	} else {
		log.Infof("Order sync inserted %d rows", total)
	}

	if total, err := runner.SyncItems(); err != nil {
		log.Errorf("Item sync failed: %v", err)
	} else {
		log.Infof("Item sync inserted %d rows", total)
	}

	if total, err := runner.SyncDailySales(); err != nil {
		log.Errorf("Sales sync failed: %v", err)
	} else {
		log.Infof("Sales sync inserted %d rows", total)
	}
}
