package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Credentials is the LWA credential bundle shared by all marketplaces of a region.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Config struct {
	DatabaseURL string

	// Regions maps a region label ("North America", "Europe", "Far East",
	// "Australia") to its credential bundle. Marketplaces of a region with no
	// entry here are skipped by the sync jobs.
	Regions map[string]Credentials

	PageSize      int
	SelectorLimit int
	ExportPath    string
	MonitorAddr   string
	LogFile       string
}

// regionEnvPrefixes ties region labels to the env var prefix carrying their
// LWA credentials (e.g. SP_EU_CLIENT_ID).
var regionEnvPrefixes = map[string]string{
	"North America": "SP_NA",
	"Europe":        "SP_EU",
	"Far East":      "SP_FE",
	"Australia":     "SP_AU",
}

func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	pageSize, _ := strconv.Atoi(getEnv("SP_PAGE_SIZE", "100"))
	selectorLimit, _ := strconv.Atoi(getEnv("SP_SELECTOR_LIMIT", "100"))

	regions := make(map[string]Credentials)
	for label, prefix := range regionEnvPrefixes {
		creds := Credentials{
			ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
			ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
			RefreshToken: os.Getenv(prefix + "_REFRESH_TOKEN"),
		}
		if creds.ClientID != "" && creds.ClientSecret != "" && creds.RefreshToken != "" {
			regions[label] = creds
		}
	}

	return &Config{
		DatabaseURL:   getEnv("DATABASE_URL", "root:root@tcp(localhost:3306)/sp_sync?charset=utf8mb4&parseTime=True&loc=UTC"),
		Regions:       regions,
		PageSize:      pageSize,
		SelectorLimit: selectorLimit,
		ExportPath:    getEnv("SP_EXPORT_PATH", "sales_data.xlsx"),
		MonitorAddr:   getEnv("MONITOR_ADDR", ":8080"),
		LogFile:       getEnv("SP_LOG_FILE", "logs/sync.log"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
