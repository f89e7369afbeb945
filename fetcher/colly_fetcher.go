package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"brightermonday-scraper/parser"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements the page provider over plain HTTP using colly.
// Pages are used as served; no JavaScript runs.
type CollyFetcher struct {
	collector *colly.Collector
	current   *colly.Response
	throttle  time.Duration
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(userAgent string, timeout, throttle time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1}); err != nil {
		log.Printf("[colly] Warning: Failed to set limit rule: %v\n", err)
	}

	cf := &CollyFetcher{collector: c, throttle: throttle}

	c.OnResponse(func(r *colly.Response) {
		cf.current = r
	})
	c.OnError(func(r *colly.Response, err error) {
		log.Printf("[colly] Error fetching %s: %v\n", r.Request.URL, err)
	})

	return cf
}

// Open fetches the search results URL
func (cf *CollyFetcher) Open(ctx context.Context, url string) error {
	if err := cf.visit(ctx, url); err != nil {
		return fmt.Errorf("failed to visit URL: %w", err)
	}
	log.Printf("[colly] Opened %s\n", url)
	return nil
}

func (cf *CollyFetcher) visit(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// cancels the request in flight, not just the next one
	cf.collector.Context = ctx
	previous := cf.current
	cf.current = nil
	if err := cf.collector.Visit(url); err != nil {
		cf.current = previous
		return err
	}
	if cf.current == nil {
		cf.current = previous
		return fmt.Errorf("no response for %s", url)
	}
	return nil
}

// CurrentMarkup returns the body of the last fetched page
func (cf *CollyFetcher) CurrentMarkup(ctx context.Context) (string, error) {
	if cf.current == nil {
		return "", errors.New("no page fetched")
	}
	return string(cf.current.Body), nil
}

// Advance follows the next page control of the current page
func (cf *CollyFetcher) Advance(ctx context.Context) bool {
	if cf.current == nil {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(cf.current.Body))
	if err != nil {
		log.Printf("[colly] Failed to parse %s: %v\n", cf.current.Request.URL, err)
		return false
	}
	href, ok := doc.Find(parser.NextControlSelector).First().Attr("href")
	if !ok || href == "" {
		return false
	}

	next := cf.current.Request.AbsoluteURL(href)
	if next == "" {
		log.Printf("[colly] Invalid next page link %q\n", href)
		return false
	}
	if err := cf.visit(ctx, next); err != nil {
		log.Printf("[colly] Failed to follow next page link %s: %v\n", next, err)
		return false
	}
	return true
}

// Throttle pauses between requests
func (cf *CollyFetcher) Throttle(ctx context.Context) error {
	return pause(ctx, cf.throttle)
}

// Close drops the last fetched page
func (cf *CollyFetcher) Close() error {
	cf.current = nil
	return nil
}
