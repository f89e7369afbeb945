package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"brightermonday-scraper/config"
	"brightermonday-scraper/console"
	"brightermonday-scraper/db"
	"brightermonday-scraper/filter"
	"brightermonday-scraper/models"
	"brightermonday-scraper/notify"
	"brightermonday-scraper/runner"
	"brightermonday-scraper/scheduler"
	"brightermonday-scraper/sheets"
	"brightermonday-scraper/snapshot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file (optional)")
	mode := flag.String("mode", "menu", "Run mode: scrape, search, menu, serve or runs")
	engine := flag.String("engine", "", "Page provider: rod (headless browser) or http")
	maxPages := flag.Int("pages", -1, "Maximum number of pages to crawl (0 = until the last page)")
	outDir := flag.String("out", "", "Directory for snapshot files")
	file := flag.String("file", "", "Snapshot to search (default: latest in the output directory)")
	title := flag.String("title", "", "Search: job title contains")
	location := flag.String("location", "", "Search: location contains")
	poster := flag.String("poster", "", "Search: company contains")
	minSalary := flag.Int("min-salary", 0, "Search: minimum salary upper bound")
	printCount := flag.Int("print", 0, "Scrape: print the first N jobs")
	runID := flag.Int("run-id", 0, "Search: listings of a stored run instead of a snapshot (needs DATABASE_URL)")
	limit := flag.Int("limit", 20, "Runs: number of recent runs to show")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: Failed to load config: %v\n", err)
	}
	if *engine != "" {
		cfg.Crawl.Engine = *engine
	}
	if *maxPages >= 0 {
		cfg.Crawl.MaxPages = *maxPages
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: Invalid configuration: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "scrape":
		err = runScrape(ctx, cfg, *printCount)
	case "search":
		criteria := filter.Criteria{Title: *title, Location: *location, Poster: *poster, MinSalary: *minSalary}
		err = runSearch(ctx, cfg, *file, *runID, criteria)
	case "menu":
		err = runMenu(ctx, cfg, *file)
	case "serve":
		err = runServe(ctx, cfg)
	case "runs":
		err = runRuns(ctx, cfg, *limit)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		stop()
		log.Fatalf("Error: %v\n", err)
	}
}

// runScrape crawls once and reports where the snapshot went
func runScrape(ctx context.Context, cfg *config.Config, printCount int) error {
	r, cleanup := buildRunner(ctx, cfg)
	defer cleanup()

	fmt.Println("Beginning scraping operation...")
	report, err := r.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Scraping complete.")
	fmt.Printf("Scraped job listings = %d jobs\n", len(report.Result.Listings))
	fmt.Printf("Saving to file: %s\n", report.SnapshotPath)
	if report.SheetURL != "" {
		fmt.Printf("Google Sheets: %s\n", report.SheetURL)
	}

	if printCount > 0 {
		fmt.Println()
		console.PrintRecords(os.Stdout, report.Result.Listings, printCount)
	}
	return nil
}

// runSearch searches a snapshot, or a stored run, with the flag criteria
func runSearch(ctx context.Context, cfg *config.Config, file string, runID int, criteria filter.Criteria) error {
	var listings []models.Listing
	var err error
	if runID > 0 {
		listings, err = loadRunListings(ctx, cfg, runID)
	} else {
		listings, err = loadListings(cfg, file)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Total jobs found: %d\n\n", len(listings))
	if criteria.Empty() {
		log.Println("No search terms given, printing every job")
	}

	console.PrintMatches(os.Stdout, filter.NewFilter(criteria).Apply(listings))
	return nil
}

// runMenu starts the interactive shell
func runMenu(ctx context.Context, cfg *config.Config, file string) error {
	r, cleanup := buildRunner(ctx, cfg)
	defer cleanup()

	load := func() ([]models.Listing, error) {
		return loadListings(cfg, file)
	}
	return console.NewMenu(os.Stdin, os.Stdout, r.Run, load).Run(ctx)
}

// runServe crawls on the configured schedule until interrupted
func runServe(ctx context.Context, cfg *config.Config) error {
	r, cleanup := buildRunner(ctx, cfg)
	defer cleanup()

	var opts []scheduler.Option
	if cfg.Schedule.RunOnStart {
		opts = append(opts, scheduler.WithRunOnStart())
	}
	sched, err := scheduler.New(cfg.Schedule.Spec, func(ctx context.Context) error {
		_, err := r.Run(ctx)
		return err
	}, opts...)
	if err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	log.Println("Scheduler started, waiting for interrupt")

	<-ctx.Done()
	sched.Stop()
	return nil
}

// loadListings reads file, or the newest snapshot in the output directory
func loadListings(cfg *config.Config, file string) ([]models.Listing, error) {
	if file == "" {
		latest, err := snapshot.Latest(cfg.Output.Dir)
		if err != nil {
			if errors.Is(err, snapshot.ErrNoSnapshots) {
				return nil, fmt.Errorf("nothing to search, run a scrape first: %w", err)
			}
			return nil, err
		}
		file = latest
	}
	if scrapedAt, err := snapshot.Timestamp(file); err == nil {
		log.Printf("Loading jobs from %s (scraped %s)\n", file, scrapedAt.Format("2006-01-02 15:04:05"))
	} else {
		log.Printf("Loading jobs from %s\n", file)
	}
	return snapshot.Load(file)
}

// loadRunListings reads the listings of a recorded run from the database
func loadRunListings(ctx context.Context, cfg *config.Config, runID int) ([]models.Listing, error) {
	database, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	run, err := database.GetRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	if run.Status != db.StatusDone {
		log.Printf("Warning: Run %d is %s, its listings may be incomplete\n", runID, run.Status)
	}

	rows, err := database.GetListingsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings of run %d: %w", runID, err)
	}
	listings := make([]models.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, row.Model())
	}
	log.Printf("Loading jobs from run %d started %s\n", runID, run.StartedAt.Format("2006-01-02 15:04:05"))
	return listings, nil
}

// runRuns prints the most recent recorded runs
func runRuns(ctx context.Context, cfg *config.Config, limit int) error {
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	console.PrintRuns(os.Stdout, runs)
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("no database configured, set DATABASE_URL")
	}
	return db.NewDB(ctx, cfg.Database.URL)
}

// buildRunner wires the optional sinks; a sink that fails to start is skipped
func buildRunner(ctx context.Context, cfg *config.Config) (*runner.Runner, func()) {
	var opts []runner.Option
	var closers []func() error

	if cfg.Database.URL != "" {
		database, err := db.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			log.Printf("Warning: Failed to initialize database, runs will not be recorded: %v\n", err)
		} else {
			log.Println("Database initialized successfully")
			opts = append(opts, runner.WithStore(database))
			closers = append(closers, database.Close)
		}
	}

	if cfg.Sheets.SpreadsheetURL != "" {
		spreadsheetID := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL)
		writer, err := sheets.NewWriter(ctx, spreadsheetID, cfg.Sheets.CredentialsPath)
		if err != nil {
			log.Printf("Warning: Failed to initialize Google Sheets writer: %v\n", err)
		} else {
			log.Printf("Google Sheets writer initialized for spreadsheet: %s\n", spreadsheetID)
			opts = append(opts, runner.WithSheets(writer))
		}
	}

	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("Warning: Failed to initialize Telegram notifier: %v\n", err)
		} else {
			opts = append(opts, runner.WithNotifier(tg))
		}
	}

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("Warning: %v\n", err)
			}
		}
	}
	return runner.New(cfg, opts...), cleanup
}
