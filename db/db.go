package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB opens a connection to connStr and makes sure the schema exists
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	if connStr == "" {
		return nil, fmt.Errorf("no database connection string configured")
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			sample_data BOOLEAN NOT NULL DEFAULT FALSE,
			raw_count INTEGER DEFAULT 0,
			unique_count INTEGER DEFAULT 0,
			persisted_count INTEGER DEFAULT 0,
			failed_count INTEGER DEFAULT 0,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('in_progress', 'done'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id SERIAL PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT,
			price_per_week INTEGER,
			suburb TEXT NOT NULL,
			date_posted DATE,
			source VARCHAR(50) NOT NULL,
			image_url TEXT,
			summary TEXT,
			relevant BOOLEAN NOT NULL DEFAULT FALSE,
			nationalities TEXT[] NOT NULL DEFAULT '{}',
			tags TEXT[] NOT NULL DEFAULT '{}',
			reasons TEXT[] NOT NULL DEFAULT '{}',
			score INTEGER NOT NULL,
			fallback BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(20) NOT NULL DEFAULT 'Not started',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_score CHECK (score BETWEEN 0 AND 100)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}

	// Create indexes
	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_listings_score ON listings(score DESC)`)
	if err != nil {
		log.Printf("Warning: Failed to create index idx_listings_score: %v\n", err)
	}
	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`)
	if err != nil {
		log.Printf("Warning: Failed to create index idx_runs_started_at: %v\n", err)
	}

	return nil
}
