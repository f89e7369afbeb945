package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"brightermonday-scraper/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves canned pages in order
type fakeProvider struct {
	pages      []string
	current    int
	advanceOK  func(next int) bool
	markupErr  error
	throttles  int
	advances   int
	throttleFn func(ctx context.Context) error
}

func (f *fakeProvider) CurrentMarkup(ctx context.Context) (string, error) {
	if f.markupErr != nil {
		return "", f.markupErr
	}
	return f.pages[f.current], nil
}

func (f *fakeProvider) Advance(ctx context.Context) bool {
	f.advances++
	next := f.current + 1
	if next >= len(f.pages) {
		return false
	}
	if f.advanceOK != nil && !f.advanceOK(next) {
		return false
	}
	f.current = next
	return true
}

func (f *fakeProvider) Throttle(ctx context.Context) error {
	f.throttles++
	if f.throttleFn != nil {
		return f.throttleFn(ctx)
	}
	return nil
}

func listingHTML(title string) string {
	return fmt.Sprintf(`<article class="search-result">
  <a class="search-result__job-title" href="/listings/%s"><h3>%s</h3></a>
  <article class="search-result__content">About %s</article>
  <div class="search-result__location"><a href="/jobs/nairobi">Nairobi</a></div>
  <div class="search-result__job-type">Full Time</div>
  <div class="search-result__job-meta"><a href="/company/acme">Acme</a></div>
  <div class="search-result__job-category"><a href="/c/it">IT</a></div>
</article>`, strings.ToLower(strings.ReplaceAll(title, " ", "-")), title, title)
}

// resultsPage renders page n of total with the given listing titles
func resultsPage(n, total int, titles ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, t := range titles {
		sb.WriteString(listingHTML(t))
	}
	sb.WriteString("<ul class=\"pagination\">")
	for i := 1; i <= total; i++ {
		sb.WriteString(fmt.Sprintf(`<li><a href="?page=%d">%d</a></li>`, i, i))
	}
	if n < total {
		sb.WriteString(fmt.Sprintf(`<li><a rel="next" href="?page=%d">&rsaquo;</a></li>`, n+1))
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

func threePages() []string {
	return []string{
		resultsPage(1, 3, "Job 1", "Job 2"),
		resultsPage(2, 3, "Job 3", "Job 4"),
		resultsPage(3, 3, "Job 5"),
	}
}

func titles(r *Result) []string {
	var out []string
	for _, l := range r.Listings {
		out = append(out, l.Title)
	}
	return out
}

func TestCrawler_Run_ThreePages(t *testing.T) {
	provider := &fakeProvider{pages: threePages()}
	crawler := NewCrawler(parser.NewParser())

	result, err := crawler.Run(context.Background(), provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"Job 1", "Job 2", "Job 3", "Job 4", "Job 5"}, titles(result))
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, TerminationLastPage, result.Termination)
	assert.Equal(t, 2, provider.advances)
	assert.Equal(t, 2, provider.throttles, "throttle follows every successful advance")
}

func TestCrawler_Run_NavigationFailureKeepsPartialResults(t *testing.T) {
	provider := &fakeProvider{
		pages:     threePages(),
		advanceOK: func(next int) bool { return next < 2 },
	}

	result, err := NewCrawler(parser.NewParser()).Run(context.Background(), provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"Job 1", "Job 2", "Job 3", "Job 4"}, titles(result))
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, TerminationNavigationUnavailable, result.Termination)
	assert.Equal(t, 2, provider.advances, "a failed advance is not retried")
	assert.Equal(t, 1, provider.throttles)
}

func TestCrawler_Run_MaxPages(t *testing.T) {
	provider := &fakeProvider{pages: threePages()}

	result, err := NewCrawler(parser.NewParser(), WithMaxPages(2)).Run(context.Background(), provider)
	require.NoError(t, err)

	assert.Equal(t, []string{"Job 1", "Job 2", "Job 3", "Job 4"}, titles(result))
	assert.Equal(t, TerminationMaxPages, result.Termination)
	assert.Equal(t, 1, provider.advances)
}

func TestCrawler_Run_ExtractionErrorAborts(t *testing.T) {
	pages := threePages()
	// page 2 has a listing without a title link
	pages[1] = strings.Replace(pages[1], `class="search-result__job-title"`, `class="renamed"`, 1)
	provider := &fakeProvider{pages: pages}

	result, err := NewCrawler(parser.NewParser()).Run(context.Background(), provider)
	require.Error(t, err)

	var extractErr *parser.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, 2, extractErr.Page)
	assert.Equal(t, "Title", extractErr.Field)
	assert.Equal(t, extractErr.Error(), err.Error(), "page number is not repeated")
	assert.True(t, strings.HasPrefix(err.Error(), "page 2, listing "))

	assert.Equal(t, []string{"Job 1", "Job 2"}, titles(result), "no listing of the failing page is kept")
	assert.Equal(t, 1, result.Pages)
	assert.Empty(t, result.Termination)
	assert.Equal(t, 1, provider.advances, "crawl stops at the failing page")
}

func TestCrawler_Run_MarkupError(t *testing.T) {
	provider := &fakeProvider{pages: threePages(), markupErr: errors.New("tab crashed")}

	result, err := NewCrawler(parser.NewParser()).Run(context.Background(), provider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tab crashed")
	assert.Empty(t, result.Listings)
}

func TestCrawler_Run_CancelledDuringThrottle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{
		pages: threePages(),
		throttleFn: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
	}

	result, err := NewCrawler(parser.NewParser()).Run(ctx, provider)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Job 1", "Job 2"}, titles(result))
}

func TestCrawler_Run_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeProvider{pages: threePages()}
	result, err := NewCrawler(parser.NewParser()).Run(ctx, provider)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Listings)
}

func TestCrawlState_String(t *testing.T) {
	assert.Equal(t, "fetching", stateFetching.String())
	assert.Equal(t, "terminated", stateTerminated.String())
	assert.Equal(t, "state(42)", crawlState(42).String())
}
