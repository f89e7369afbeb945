package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"brightermonday-scraper/models"
	"brightermonday-scraper/salary"
)

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Run represents one crawl invocation
type Run struct {
	ID            int
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	SearchURL     string
	Engine        string
	Status        string // "in_progress", "done", "failed"
	Termination   sql.NullString
	PagesCount    int
	ListingsCount int
	SnapshotPath  sql.NullString
	LastError     sql.NullString
}

// Listing is a job listing stored in the database
type Listing struct {
	ID             int
	RunID          int
	Position       int // 0-based order within the run
	Title          string
	Link           string
	BriefDesc      string
	Location       string
	Salary         string
	SalaryCurrency sql.NullString
	SalaryMin      sql.NullInt64
	SalaryMax      sql.NullInt64
	EmploymentType string
	Poster         string
	Category       string
}

// RunSummary carries the outcome of a finished crawl
type RunSummary struct {
	Termination  string
	Pages        int
	Listings     int
	SnapshotPath string
}

const runColumns = `id, started_at, finished_at, search_url, engine, status, termination,
	pages_count, listings_count, snapshot_path, last_error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	err := s.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.SearchURL, &run.Engine, &run.Status,
		&run.Termination, &run.PagesCount, &run.ListingsCount, &run.SnapshotPath, &run.LastError,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun records a crawl that has just started
func (db *DB) CreateRun(ctx context.Context, startedAt time.Time, searchURL, engine string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO crawl_runs (started_at, search_url, engine, status)
		VALUES ($1, $2, $3, 'in_progress')
		RETURNING `+runColumns,
		startedAt, searchURL, engine)
	return scanRun(row)
}

// CompleteRun marks a run done with its counts
func (db *DB) CompleteRun(ctx context.Context, runID int, finishedAt time.Time, summary RunSummary) error {
	var snapshotVal sql.NullString
	if summary.SnapshotPath != "" {
		snapshotVal = sql.NullString{String: summary.SnapshotPath, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		UPDATE crawl_runs
		SET status = 'done', finished_at = $1, termination = $2, pages_count = $3,
			listings_count = $4, snapshot_path = $5
		WHERE id = $6
	`, finishedAt, summary.Termination, summary.Pages, summary.Listings, snapshotVal, runID)
	return err
}

// FailRun marks a run failed and keeps the error text
func (db *DB) FailRun(ctx context.Context, runID int, finishedAt time.Time, runErr error) error {
	var lastErrorVal sql.NullString
	if runErr != nil {
		lastErrorVal = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		UPDATE crawl_runs
		SET status = 'failed', finished_at = $1, last_error = $2
		WHERE id = $3
	`, finishedAt, lastErrorVal, runID)
	return err
}

// SaveListings stores a run's listings in crawl order in one transaction
func (db *DB) SaveListings(ctx context.Context, runID int, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_listings (run_id, position, title, link, brief_desc, location, salary,
			salary_currency, salary_min, salary_max, employment_type, poster, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, listing := range listings {
		row := toRow(runID, i, listing)
		_, err := stmt.ExecContext(ctx,
			row.RunID, row.Position, row.Title, row.Link, row.BriefDesc, row.Location, row.Salary,
			row.SalaryCurrency, row.SalaryMin, row.SalaryMax, row.EmploymentType, row.Poster, row.Category,
		)
		if err != nil {
			return fmt.Errorf("failed to insert listing (runID=%d, position=%d): %w", runID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// toRow maps a listing to its database row, splitting out the parsed salary
func toRow(runID, position int, l models.Listing) Listing {
	row := Listing{
		RunID:          runID,
		Position:       position,
		Title:          l.Title,
		Link:           l.DetailURL,
		BriefDesc:      l.BriefDescription,
		Location:       l.Location,
		Salary:         l.Salary,
		EmploymentType: l.EmploymentType,
		Poster:         l.PostedBy,
		Category:       l.Category,
	}
	if r, ok := salary.Parse(l.Salary); ok {
		if r.Currency != "" {
			row.SalaryCurrency = sql.NullString{String: r.Currency, Valid: true}
		}
		row.SalaryMin = sql.NullInt64{Int64: int64(r.Min), Valid: true}
		row.SalaryMax = sql.NullInt64{Int64: int64(r.Max), Valid: true}
	}
	return row
}

// Model converts a stored row back into a listing
func (l Listing) Model() models.Listing {
	return models.Listing{
		Title:            l.Title,
		DetailURL:        l.Link,
		BriefDescription: l.BriefDesc,
		Location:         l.Location,
		Salary:           l.Salary,
		EmploymentType:   l.EmploymentType,
		PostedBy:         l.Poster,
		Category:         l.Category,
	}
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, runID int) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = $1`, runID)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM crawl_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetListingsByRun retrieves a run's listings in crawl order
func (db *DB) GetListingsByRun(ctx context.Context, runID int) ([]Listing, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, run_id, position, title, link, brief_desc, location, salary,
			salary_currency, salary_min, salary_max, employment_type, poster, category
		FROM job_listings
		WHERE run_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		err := rows.Scan(
			&l.ID, &l.RunID, &l.Position, &l.Title, &l.Link, &l.BriefDesc, &l.Location, &l.Salary,
			&l.SalaryCurrency, &l.SalaryMin, &l.SalaryMax, &l.EmploymentType, &l.Poster, &l.Category,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}
