package main

import (
	"sp-sync/internal/api"
	"sp-sync/internal/config"
	"sp-sync/internal/database"
	"sp-sync/internal/logging"

	"github.com/gin-gonic/gin"
)

// monitor serves the read-only audit API over the sync database.
func main() {
	cfg := config.Load()
	log := logging.New("")

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	r := gin.Default()
	api.SetupRoutes(r, db)

	log.Infof("Monitor listening on %s", cfg.MonitorAddr)
	if err := r.Run(cfg.MonitorAddr); err != nil {
		log.Fatalf("Monitor server failed: %v", err)
	}
}
