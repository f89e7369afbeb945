// Package runner performs one crawl end to end: open the site, crawl,
// snapshot the results and hand them to the configured sinks.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"brightermonday-scraper/config"
	"brightermonday-scraper/db"
	"brightermonday-scraper/fetcher"
	"brightermonday-scraper/models"
	"brightermonday-scraper/parser"
	"brightermonday-scraper/scraper"
	"brightermonday-scraper/sheets"
	"brightermonday-scraper/snapshot"
)

// sinkTimeout bounds each store, sheet or notification call
const sinkTimeout = 10 * time.Second

// Opener starts a page provider positioned on the first results page
type Opener func(ctx context.Context) (fetcher.Fetcher, error)

// RunStore records crawl runs and their listings
type RunStore interface {
	CreateRun(ctx context.Context, startedAt time.Time, searchURL, engine string) (*db.Run, error)
	CompleteRun(ctx context.Context, runID int, finishedAt time.Time, summary db.RunSummary) error
	FailRun(ctx context.Context, runID int, finishedAt time.Time, runErr error) error
	SaveListings(ctx context.Context, runID int, listings []models.Listing) error
}

// SheetWriter exports listings to a new spreadsheet tab
type SheetWriter interface {
	CreateSheetAndWriteListings(ctx context.Context, sheetName string, listings []models.Listing, searchURL, snapshotPath string) (string, int64, error)
}

// Notifier reports run outcomes
type Notifier interface {
	NotifyCompleted(ctx context.Context, report *Report) error
	NotifyFailed(ctx context.Context, runErr error) error
}

// Report describes a finished crawl
type Report struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	SearchURL    string
	SnapshotPath string
	SheetName    string
	SheetURL     string
	Result       *scraper.Result
}

// Runner performs crawl invocations
type Runner struct {
	cfg      *config.Config
	open     Opener
	crawler  *scraper.Crawler
	store    RunStore
	sheets   SheetWriter
	notifier Notifier
	now      func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithStore records runs in the database
func WithStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithSheets exports each successful run to Google Sheets
func WithSheets(w SheetWriter) Option {
	return func(r *Runner) { r.sheets = w }
}

// WithNotifier reports each run
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithOpener replaces the engine selected in config
func WithOpener(open Opener) Option {
	return func(r *Runner) { r.open = open }
}

// New creates a Runner for cfg
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg: cfg,
		open: func(ctx context.Context) (fetcher.Fetcher, error) {
			return fetcher.Open(ctx, cfg)
		},
		crawler: scraper.NewCrawler(parser.NewParser(), scraper.WithMaxPages(cfg.Crawl.MaxPages)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one crawl. Aborted crawls write no snapshot.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: r.now()}
	searchURL, err := r.cfg.SearchURL()
	if err != nil {
		return nil, err
	}
	report.SearchURL = searchURL

	runID := r.createRun(ctx, report.StartedAt, searchURL)

	log.Printf("[runner] Opening %s with engine %s\n", searchURL, r.cfg.Crawl.Engine)
	provider, err := r.open(ctx)
	if err != nil {
		err = fmt.Errorf("failed to open search results: %w", err)
		r.fail(ctx, runID, err)
		return nil, err
	}
	defer func() {
		if cerr := provider.Close(); cerr != nil {
			log.Printf("[runner] Warning: Failed to close page provider: %v\n", cerr)
		}
	}()

	result, err := r.crawler.Run(ctx, provider)
	if err != nil {
		if result != nil {
			log.Printf("[runner] Crawl aborted after %d pages, discarding %d listings\n", result.Pages, len(result.Listings))
		}
		r.fail(ctx, runID, err)
		return nil, err
	}
	report.Result = result

	path, err := snapshot.Write(r.cfg.Output.Dir, report.StartedAt, result.Listings)
	if err != nil {
		err = fmt.Errorf("failed to write snapshot: %w", err)
		r.fail(ctx, runID, err)
		return nil, err
	}
	report.SnapshotPath = path
	log.Printf("[runner] Wrote %d listings from %d pages to %s (%s)\n", len(result.Listings), result.Pages, path, result.Termination)

	r.exportSheet(ctx, report)
	report.FinishedAt = r.now()
	r.complete(ctx, runID, report)

	if r.notifier != nil {
		nctx, cancel := detach(ctx)
		defer cancel()
		if err := r.notifier.NotifyCompleted(nctx, report); err != nil {
			log.Printf("[runner] Warning: Failed to send completion notice: %v\n", err)
		}
	}

	return report, nil
}

func (r *Runner) createRun(ctx context.Context, startedAt time.Time, searchURL string) int {
	if r.store == nil {
		return 0
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	run, err := r.store.CreateRun(ctx, startedAt, searchURL, r.cfg.Crawl.Engine)
	if err != nil {
		log.Printf("[runner] Warning: Failed to record run: %v\n", err)
		return 0
	}
	return run.ID
}

func (r *Runner) complete(ctx context.Context, runID int, report *Report) {
	if r.store == nil || runID == 0 {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := r.store.SaveListings(ctx, runID, report.Result.Listings); err != nil {
		log.Printf("[runner] Warning: Failed to save listings to database: %v\n", err)
	}
	summary := db.RunSummary{
		Termination:  string(report.Result.Termination),
		Pages:        report.Result.Pages,
		Listings:     len(report.Result.Listings),
		SnapshotPath: report.SnapshotPath,
	}
	if err := r.store.CompleteRun(ctx, runID, report.FinishedAt, summary); err != nil {
		log.Printf("[runner] Warning: Failed to mark run %d done: %v\n", runID, err)
	}
}

func (r *Runner) fail(ctx context.Context, runID int, runErr error) {
	log.Printf("[runner] Error: %v\n", runErr)
	ctx, cancel := detach(ctx)
	defer cancel()

	if r.store != nil && runID != 0 {
		if err := r.store.FailRun(ctx, runID, r.now(), runErr); err != nil {
			log.Printf("[runner] Warning: Failed to mark run %d failed: %v\n", runID, err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyFailed(ctx, runErr); err != nil {
			log.Printf("[runner] Warning: Failed to send failure notice: %v\n", err)
		}
	}
}

func (r *Runner) exportSheet(ctx context.Context, report *Report) {
	if r.sheets == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	name, sheetID, err := r.sheets.CreateSheetAndWriteListings(ctx, sheets.SheetName(report.StartedAt),
		report.Result.Listings, report.SearchURL, report.SnapshotPath)
	if err != nil {
		log.Printf("[runner] Warning: Failed to export to Google Sheets: %v\n", err)
		return
	}
	report.SheetName = name
	report.SheetURL = sheetURL(r.cfg.Sheets.SpreadsheetURL, sheetID)
}

// detach keeps ctx values but not its cancellation, so a run interrupted by
// shutdown is still recorded and reported
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
}

// sheetURL links straight to a tab of the spreadsheet
func sheetURL(spreadsheetURL string, sheetID int64) string {
	spreadsheetID := sheets.ExtractSpreadsheetID(spreadsheetURL)
	if spreadsheetID == "" {
		return spreadsheetURL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, sheetID)
}
