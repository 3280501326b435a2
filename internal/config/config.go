// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need to wire themselves up.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string

	// StoreBackend selects the ledger store: "memory" or "postgres".
	StoreBackend string

	// DatabaseURL is the Postgres connection string. Required when
	// StoreBackend is "postgres".
	DatabaseURL string

	// NotionToken and NotionDatabaseID configure the Notion calendar
	// backend. When the token is empty the in-memory calendar is used.
	NotionToken      string
	NotionDatabaseID string

	// BQProject and BQDataset name the BigQuery export destination.
	BQProject string
	BQDataset string

	// SnapshotBucket and SnapshotPrefix name the GCS snapshot destination.
	SnapshotBucket string
	SnapshotPrefix string

	// GenAIModel is the Gemini model for category suggestions. Empty
	// disables the suggester.
	GenAIModel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getenv("PORT", "8080"),
		StoreBackend:     getenv("STORE_BACKEND", "memory"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		NotionDatabaseID: os.Getenv("NOTION_CALENDAR_DATABASE_ID"),
		BQProject:        os.Getenv("BQ_PROJECT"),
		BQDataset:        getenv("BQ_DATASET", "ledger"),
		SnapshotBucket:   os.Getenv("SNAPSHOT_BUCKET"),
		SnapshotPrefix:   getenv("SNAPSHOT_PREFIX", "snapshots"),
		GenAIModel:       os.Getenv("GENAI_MODEL"),
	}

	switch cfg.StoreBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.NotionToken != "" && cfg.NotionDatabaseID == "" {
		return nil, fmt.Errorf("config: NOTION_CALENDAR_DATABASE_ID is required when NOTION_TOKEN is set")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
