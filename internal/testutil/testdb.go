// Package testutil provides utilities for testing.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"myfeed/internal/database"
)

// getTestConfig builds the test database config from environment variables or
// defaults.
func getTestConfig() database.Config {
	cfg := database.DefaultConfig()
	cfg.Database = getEnvOrDefault("DB_NAME", "myfeed_test")
	cfg.Host = getEnvOrDefault("DB_HOST", cfg.Host)
	cfg.User = getEnvOrDefault("DB_USER", cfg.User)
	cfg.Password = getEnvOrDefault("DB_PASSWORD", cfg.Password)
	cfg.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.SSLMode)
	if v := os.Getenv("DB_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Port)
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// NewTestDB opens a migrated connection to the test database. It skips the
// test when the database is not reachable.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(getTestConfig())
	if err != nil {
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: unable to migrate database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// ResetTables clears every table touched by a test, child tables first.
func ResetTables(t *testing.T, db *database.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range []string{"items_to_tags", "sources_to_tags", "items", "tags", "sources"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to reset table %s: %v", table, err)
		}
	}
}
