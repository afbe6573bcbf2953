// Package database provides the PostgreSQL persistence layer.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrDuplicateLink is returned when inserting an item whose link already
// exists. Callers treat this as an expected re-poll condition, not a fault.
var ErrDuplicateLink = errors.New("item link already exists")

// Config holds database configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "myfeed",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
	config Config
}

// New creates a new database connection.
func New(config Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, config: config}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Migrate runs database migrations.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationSources,
		migrationItems,
		migrationTags,
		migrationSourceTags,
		migrationItemTags,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Migration SQL statements
const migrationSources = `
CREATE TABLE IF NOT EXISTS sources (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    url VARCHAR(1024) NOT NULL,
    last_pub TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_poll TIMESTAMPTZ,
    ttl BIGINT,
    min_date TIMESTAMPTZ,
    favorite BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migrationItems = `
CREATE TABLE IF NOT EXISTS items (
    id BIGSERIAL PRIMARY KEY,
    link VARCHAR(2048) NOT NULL UNIQUE,
    title TEXT,
    description TEXT,
    author VARCHAR(255),
    published TIMESTAMPTZ,
    image VARCHAR(2048),
    favorite BOOLEAN NOT NULL DEFAULT false,
    done BOOLEAN NOT NULL DEFAULT false,
    source_id BIGINT REFERENCES sources(id) ON DELETE SET NULL,
    source_link VARCHAR(1024),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migrationTags = `
CREATE TABLE IF NOT EXISTS tags (
    name VARCHAR(255) PRIMARY KEY,
    background_color VARCHAR(32),
    text_color VARCHAR(32),
    border_color VARCHAR(32),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migrationSourceTags = `
CREATE TABLE IF NOT EXISTS sources_to_tags (
    source_id BIGINT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    tag_id VARCHAR(255) NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
    PRIMARY KEY (source_id, tag_id)
);
`

const migrationItemTags = `
CREATE TABLE IF NOT EXISTS items_to_tags (
    item_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    tag_id VARCHAR(255) NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
    PRIMARY KEY (item_id, tag_id)
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_items_source ON items(source_id);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);
CREATE INDEX IF NOT EXISTS idx_items_done ON items(done);
CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON items_to_tags(tag_id);
CREATE INDEX IF NOT EXISTS idx_source_tags_tag ON sources_to_tags(tag_id);
`
