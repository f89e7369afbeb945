package parser

import (
	"fmt"
	"strconv"
	"strings"

	"brightermonday-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the search results markup
const (
	ListingSelector     = "article.search-result"
	TitleLinkSelector   = "a.search-result__job-title"
	TitleSelector       = "h3"
	ContentSelector     = "article.search-result__content"
	LocationSelector    = "div.search-result__location"
	SalarySelector      = "div.search-result__job-salary"
	CurrencySelector    = "span.search-result__currency-symbol"
	TypeSelector        = "div.search-result__job-type"
	MetaSelector        = "div.search-result__job-meta"
	CategorySelector    = "div.search-result__job-category"
	NextControlSelector = "a[rel='next']"
)

// Page is the result of extracting one results page
type Page struct {
	Number   int
	Listings []models.Listing
	HasNext  bool
	NextPage int // Number+1 when HasNext, otherwise 0
}

// ExtractionError reports a listing element missing a required part.
// It means the markup no longer matches the selectors above.
type ExtractionError struct {
	Page   int
	Index  int // zero-based position of the listing on the page
	Field  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("page %d, listing %d: %s: %s", e.Page, e.Index, e.Field, e.Reason)
}

// Parser extracts listing data from HTML
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseHTML extracts the listings of one results page from HTML content.
// pageNumber is the 1-based number of the page being parsed.
func (p *Parser) ParseHTML(htmlContent string, pageNumber int) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.ParseDocument(doc, pageNumber)
}

// ParseDocument is ParseHTML for an already parsed document.
// The first malformed listing aborts the page and no listings are returned.
func (p *Parser) ParseDocument(doc *goquery.Document, pageNumber int) (*Page, error) {
	page := &Page{Number: pageNumber}

	var extractErr error
	doc.Find(ListingSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		listing, err := p.extractListing(s)
		if err != nil {
			err.Page = pageNumber
			err.Index = i
			extractErr = err
			return false
		}
		page.Listings = append(page.Listings, listing)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	page.HasNext = p.hasNextPage(doc.Selection, pageNumber)
	if page.HasNext {
		page.NextPage = pageNumber + 1
	}

	return page, nil
}

// extractListing extracts a single listing from a listing element
func (p *Parser) extractListing(s *goquery.Selection) (models.Listing, *ExtractionError) {
	var listing models.Listing

	titleLink := s.Find(TitleLinkSelector).First()
	if titleLink.Length() == 0 {
		return listing, &ExtractionError{Field: "Title", Reason: "title link not found"}
	}
	heading := titleLink.Find(TitleSelector).First()
	if heading.Length() == 0 {
		return listing, &ExtractionError{Field: "Title", Reason: "title heading not found"}
	}
	listing.Title = strings.TrimSpace(heading.Text())
	if listing.Title == "" {
		return listing, &ExtractionError{Field: "Title", Reason: "title is empty"}
	}

	href, ok := titleLink.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return listing, &ExtractionError{Field: "Link", Reason: "title link has no href"}
	}
	listing.DetailURL = href

	listing.BriefDescription = strings.TrimSpace(s.Find(ContentSelector).First().Text())

	location := s.Find(LocationSelector).First()
	if location.Length() == 0 {
		return listing, &ExtractionError{Field: "Location", Reason: "location block not found"}
	}
	locationLink := location.Find("a").First()
	if locationLink.Length() == 0 {
		return listing, &ExtractionError{Field: "Location", Reason: "location block has no link"}
	}
	listing.Location = strings.TrimSpace(locationLink.Text())

	listing.Salary = p.extractSalary(s)

	jobType := s.Find(TypeSelector).First()
	if jobType.Length() == 0 {
		return listing, &ExtractionError{Field: "Type", Reason: "job type block not found"}
	}
	listing.EmploymentType = strings.TrimSpace(jobType.Text())

	listing.PostedBy = linkTextOr(s.Find(MetaSelector).First(), models.PosterAnonymous)
	listing.Category = linkTextOr(s.Find(CategorySelector).First(), models.CategoryNone)

	return listing, nil
}

// extractSalary joins the currency symbol with the salary block's own text.
// Text inside child elements other than the currency is ignored.
func (p *Parser) extractSalary(s *goquery.Selection) string {
	block := s.Find(SalarySelector).First()
	if block.Length() == 0 {
		return models.SalaryNotProvided
	}

	currency := strings.TrimSpace(block.Find(CurrencySelector).First().Text())
	return currency + strings.TrimSpace(directText(block))
}

// hasNextPage requires both a next control and a link labelled with the next page number.
// A next control alone is not trusted; some pages render it disabled on the last page.
func (p *Parser) hasNextPage(root *goquery.Selection, pageNumber int) bool {
	if root.Find(NextControlSelector).Length() == 0 {
		return false
	}

	label := strconv.Itoa(pageNumber + 1)
	found := false
	root.Find("a").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) == label {
			found = true
			return false
		}
		return true
	})
	return found
}

// directText returns the concatenated text nodes that are direct children of s
func directText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(i int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
		}
	})
	return sb.String()
}

// linkTextOr returns the trimmed text of the first link inside block, or fallback
func linkTextOr(block *goquery.Selection, fallback string) string {
	link := block.Find("a").First()
	if link.Length() == 0 {
		return fallback
	}
	return strings.TrimSpace(link.Text())
}
