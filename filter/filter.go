package filter

import (
	"strings"

	"brightermonday-scraper/models"
	"brightermonday-scraper/salary"

	"golang.org/x/text/cases"
)

// Criteria holds the search terms. Empty terms match every listing.
type Criteria struct {
	Title     string
	Location  string
	Poster    string
	MinSalary int
}

// Empty reports whether no term is set
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.Title) == "" &&
		strings.TrimSpace(c.Location) == "" &&
		strings.TrimSpace(c.Poster) == "" &&
		c.MinSalary <= 0
}

// Filter applies search criteria to listings
type Filter struct {
	criteria Criteria
	fold     cases.Caser
}

// NewFilter creates a new Filter instance
func NewFilter(criteria Criteria) *Filter {
	return &Filter{
		criteria: criteria,
		fold:     cases.Fold(),
	}
}

// ByTitle searches job titles
func ByTitle(term string) *Filter {
	return NewFilter(Criteria{Title: term})
}

// ByLocation searches locations
func ByLocation(term string) *Filter {
	return NewFilter(Criteria{Location: term})
}

// ByPoster searches the company that posted the job
func ByPoster(term string) *Filter {
	return NewFilter(Criteria{Poster: term})
}

// ByAll requires title, location and poster to match
func ByAll(title, location, poster string) *Filter {
	return NewFilter(Criteria{Title: title, Location: location, Poster: poster})
}

// Apply returns the matching listings in their original order
func (f *Filter) Apply(listings []models.Listing) []models.Listing {
	var matched []models.Listing

	for _, listing := range listings {
		if f.matches(listing) {
			matched = append(matched, listing)
		}
	}

	return matched
}

// matches checks a listing against every non-empty term
func (f *Filter) matches(listing models.Listing) bool {
	if !f.contains(listing.Title, f.criteria.Title) {
		return false
	}
	if !f.contains(listing.Location, f.criteria.Location) {
		return false
	}
	if !f.contains(listing.PostedBy, f.criteria.Poster) {
		return false
	}

	// listings without a parseable salary never pass a salary floor
	if f.criteria.MinSalary > 0 {
		if !listing.HasSalary() {
			return false
		}
		r, ok := salary.Parse(listing.Salary)
		if !ok || r.Max < f.criteria.MinSalary {
			return false
		}
	}

	return true
}

func (f *Filter) contains(value, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(f.fold.String(value), f.fold.String(term))
}
