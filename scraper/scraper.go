package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"

	"brightermonday-scraper/models"
	"brightermonday-scraper/parser"
)

// Provider is the rendering collaborator the crawler drives.
// It owns the browser session; the crawler never touches it directly.
type Provider interface {
	// CurrentMarkup returns the rendered markup of the current results page
	CurrentMarkup(ctx context.Context) (string, error)
	// Advance navigates to the next results page and reports whether it succeeded
	Advance(ctx context.Context) bool
	// Throttle blocks for the provider's pacing delay
	Throttle(ctx context.Context) error
}

// Extractor turns one page of markup into listings
type Extractor interface {
	ParseHTML(htmlContent string, pageNumber int) (*parser.Page, error)
}

// Termination describes why a crawl stopped without error
type Termination string

const (
	// TerminationLastPage means the page reported no next page
	TerminationLastPage Termination = "last_page"
	// TerminationNavigationUnavailable means the provider could not advance
	TerminationNavigationUnavailable Termination = "navigation_unavailable"
	// TerminationMaxPages means the configured page cap was reached
	TerminationMaxPages Termination = "max_pages"
)

// Result holds the listings of a crawl and how it ended
type Result struct {
	Listings    []models.Listing
	Pages       int
	Termination Termination
}

type crawlState int

const (
	stateFetching crawlState = iota
	stateExtracting
	stateDeciding
	stateAdvancing
	stateTerminated
)

func (s crawlState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateExtracting:
		return "extracting"
	case stateDeciding:
		return "deciding"
	case stateAdvancing:
		return "advancing"
	case stateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Crawler walks the results pages of a provider and accumulates listings
type Crawler struct {
	extractor Extractor
	maxPages  int
}

// Option configures a Crawler
type Option func(*Crawler)

// WithMaxPages caps the number of pages crawled. Zero means no cap.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// NewCrawler creates a new Crawler
func NewCrawler(extractor Extractor, opts ...Option) *Crawler {
	c := &Crawler{extractor: extractor}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls from the provider's current page until there is no next page,
// navigation fails, or the page cap is reached. It never retries.
//
// On error the returned Result still holds the listings of the pages completed
// before the failure; the failing page contributes nothing. A
// *parser.ExtractionError means the markup changed shape.
func (c *Crawler) Run(ctx context.Context, p Provider) (*Result, error) {
	var (
		state   = stateFetching
		pageNum = 1
		records []models.Listing
		markup  string
		page    *parser.Page
		result  = &Result{}
	)

	abort := func(err error) (*Result, error) {
		log.Printf("[crawler] Stopped while %s page %d: %v\n", state, pageNum, err)
		result.Listings = records
		return result, err
	}

	for state != stateTerminated {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		switch state {
		case stateFetching:
			log.Printf("[crawler] Scraping page %d\n", pageNum)
			html, err := p.CurrentMarkup(ctx)
			if err != nil {
				return abort(fmt.Errorf("page %d: failed to read markup: %w", pageNum, err))
			}
			markup = html
			state = stateExtracting

		case stateExtracting:
			parsed, err := c.extractor.ParseHTML(markup, pageNum)
			if err != nil {
				var extractErr *parser.ExtractionError
				if errors.As(err, &extractErr) {
					// already names the page
					return abort(err)
				}
				return abort(fmt.Errorf("page %d: %w", pageNum, err))
			}
			page = parsed
			records = append(records, page.Listings...)
			result.Pages = pageNum
			log.Printf("[crawler] Page %d: %d listings (total %d)\n", pageNum, len(page.Listings), len(records))
			state = stateDeciding

		case stateDeciding:
			switch {
			case !page.HasNext:
				log.Println("[crawler] No other pages found. Finishing scraping job.")
				result.Termination = TerminationLastPage
				state = stateTerminated
			case c.maxPages > 0 && pageNum >= c.maxPages:
				log.Printf("[crawler] Reached page limit %d\n", c.maxPages)
				result.Termination = TerminationMaxPages
				state = stateTerminated
			default:
				state = stateAdvancing
			}

		case stateAdvancing:
			if !p.Advance(ctx) {
				if err := ctx.Err(); err != nil {
					return abort(err)
				}
				log.Printf("[crawler] Could not navigate past page %d\n", pageNum)
				result.Termination = TerminationNavigationUnavailable
				state = stateTerminated
				continue
			}
			if err := p.Throttle(ctx); err != nil {
				return abort(err)
			}
			pageNum++
			state = stateFetching
		}
	}

	result.Listings = records
	return result, nil
}
