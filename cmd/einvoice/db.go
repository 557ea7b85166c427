package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/superset-studio/einvoice-vault/internal/config"
	"github.com/superset-studio/einvoice-vault/internal/storage"
)

// connectDB creates a PostgresStorage connection using the config.
// It loads .env and config file, then connects to the database.
func connectDB(configPath string) *storage.PostgresStorage {
	cfg := loadConfig(configPath)

	store, err := storage.NewPostgresStorage(
		context.Background(),
		cfg.Storage.Postgres.DSN(),
		cfg.Storage.Postgres.MaxConns,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	return store
}

// loadConfig loads the application configuration from the given path.
// It loads .env file first and returns the parsed config.
func loadConfig(configPath string) *config.Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}
