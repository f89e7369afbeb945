package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"brightermonday-scraper/parser"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserOptions configures the headless browser
type BrowserOptions struct {
	Headless    bool
	NoSandbox   bool
	Bin         string // empty means discover a local Chrome/Chromium
	DataDir     string
	UserAgent   string
	PageTimeout time.Duration
	Throttle    time.Duration
}

// RodFetcher implements the page provider with rod (headless browser)
type RodFetcher struct {
	browser *rod.Browser
	page    *rod.Page
	opts    BrowserOptions
	pageNum int
}

var linuxBrowserPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
}

// NewRodFetcher launches a browser and connects to it
func NewRodFetcher(opts BrowserOptions) (*RodFetcher, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 30 * time.Second
	}

	userDataDir := opts.DataDir
	if userDataDir != "" {
		if err := os.MkdirAll(userDataDir, 0755); err != nil {
			log.Printf("[rod] Warning: Failed to create browser data directory %s: %v\n", userDataDir, err)
			userDataDir = ""
		}
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("mute-audio")
	if userDataDir != "" {
		l = l.UserDataDir(userDataDir)
	}

	if bin := findBrowser(opts.Bin); bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser, err := connectBrowser(controlURL)
	if err != nil {
		// nothing else reaps the process without leakless
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{browser: browser, opts: opts}, nil
}

var connectBrowser = func(controlURL string) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL)
	return browser, browser.Connect()
}

// findBrowser returns the configured binary, a known system path,
// or empty to let the launcher download Chromium
func findBrowser(configured string) string {
	if configured != "" {
		return configured
	}
	for _, path := range linuxBrowserPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if path, ok := launcher.LookPath(); ok {
		return path
	}
	return ""
}

// Open creates a tab and navigates it to the search results URL
func (rf *RodFetcher) Open(ctx context.Context, url string) error {
	page, err := rf.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	rf.page = page

	if rf.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rf.opts.UserAgent}); err != nil {
			log.Printf("[rod] Warning: Failed to set user agent: %v\n", err)
		}
	}

	if err := page.Context(ctx).Timeout(rf.opts.PageTimeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	rf.waitRendered(ctx)
	rf.pageNum = 1

	log.Printf("[rod] Opened %s\n", url)
	return nil
}

// CurrentMarkup returns the rendered HTML of the current tab
func (rf *RodFetcher) CurrentMarkup(ctx context.Context) (string, error) {
	if rf.page == nil {
		return "", errors.New("no page open")
	}
	html, err := rf.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// Advance clicks the next page control and waits for the new page to render
func (rf *RodFetcher) Advance(ctx context.Context) bool {
	if rf.page == nil {
		return false
	}
	page := rf.page.Context(ctx)

	next, err := page.Timeout(5 * time.Second).Element(parser.NextControlSelector)
	if err != nil {
		log.Printf("[rod] No next page control after page %d: %v\n", rf.pageNum, err)
		return false
	}
	next = next.Context(ctx)

	visible, err := next.Visible()
	if err != nil || !visible {
		log.Printf("[rod] Next page control not visible after page %d\n", rf.pageNum)
		return false
	}

	wait := page.Timeout(rf.opts.PageTimeout).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := next.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.Printf("[rod] Failed to click next page control: %v\n", err)
		return false
	}
	wait()
	rf.waitRendered(ctx)

	rf.pageNum++
	return true
}

// Throttle pauses between page loads
func (rf *RodFetcher) Throttle(ctx context.Context) error {
	return pause(ctx, rf.opts.Throttle)
}

// waitRendered waits for load and a stable DOM; a timeout only logs
func (rf *RodFetcher) waitRendered(ctx context.Context) {
	page := rf.page.Context(ctx).Timeout(rf.opts.PageTimeout)
	if err := page.WaitLoad(); err != nil {
		log.Printf("[rod] Warning: Page did not finish loading: %v\n", err)
	}
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		log.Printf("[rod] Warning: Page did not stabilize within timeout, continuing anyway: %v\n", err)
	}
}

// Close closes the tab and the browser
func (rf *RodFetcher) Close() error {
	var errs []error
	if rf.page != nil {
		if err := rf.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		rf.page = nil
	}
	if rf.browser != nil {
		if err := rf.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		rf.browser = nil
	}
	return errors.Join(errs...)
}
