package fetcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"brightermonday-scraper/config"
	"brightermonday-scraper/scraper"
)

// Fetcher is a page provider that holds a browser or HTTP session.
// The caller owns it and must Close it.
type Fetcher interface {
	scraper.Provider
	io.Closer
}

// Open starts the configured engine and loads the first search results page
func Open(ctx context.Context, cfg *config.Config) (Fetcher, error) {
	searchURL, err := cfg.SearchURL()
	if err != nil {
		return nil, err
	}

	switch cfg.Crawl.Engine {
	case config.EngineHTTP:
		cf := NewCollyFetcher(cfg.Crawl.UserAgent, cfg.Crawl.PageTimeout, cfg.Crawl.Throttle)
		if err := cf.Open(ctx, searchURL); err != nil {
			cf.Close()
			return nil, err
		}
		return cf, nil

	case config.EngineRod:
		rf, err := NewRodFetcher(BrowserOptions{
			Headless:    cfg.Browser.Headless,
			NoSandbox:   cfg.Browser.NoSandbox,
			Bin:         cfg.Browser.Bin,
			DataDir:     cfg.Browser.DataDir,
			UserAgent:   cfg.Crawl.UserAgent,
			PageTimeout: cfg.Crawl.PageTimeout,
			Throttle:    cfg.Crawl.Throttle,
		})
		if err != nil {
			return nil, err
		}
		if err := rf.Open(ctx, searchURL); err != nil {
			if cerr := rf.Close(); cerr != nil {
				log.Printf("[rod] Warning: Failed to close browser: %v\n", cerr)
			}
			return nil, err
		}
		return rf, nil
	}

	return nil, fmt.Errorf("unknown engine %q", cfg.Crawl.Engine)
}

// pause waits for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
