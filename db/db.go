package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB opens a connection, pings it and creates the schema
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	if connStr == "" {
		return nil, errors.New("database connection string is empty")
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
		CREATE TABLE IF NOT EXISTS crawl_runs (
			id SERIAL PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			search_url TEXT NOT NULL,
			engine VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			termination VARCHAR(40),
			pages_count INTEGER NOT NULL DEFAULT 0,
			listings_count INTEGER NOT NULL DEFAULT 0,
			snapshot_path TEXT,
			last_error TEXT,
			CONSTRAINT valid_run_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create crawl_runs table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS job_listings (
			id SERIAL PRIMARY KEY,
			run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			brief_desc TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL,
			salary TEXT NOT NULL,
			salary_currency VARCHAR(10),
			salary_min INTEGER,
			salary_max INTEGER,
			employment_type TEXT NOT NULL,
			poster TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create job_listings table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_crawl_runs_status ON crawl_runs(status)`)
	if err != nil {
		log.Printf("[db] Warning: Failed to create index on crawl_runs.status: %v\n", err)
	}

	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_job_listings_run_id ON job_listings(run_id, position)`)
	if err != nil {
		log.Printf("[db] Warning: Failed to create index on job_listings.run_id: %v\n", err)
	}

	log.Println("[db] Database schema initialized successfully")
	return nil
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}
