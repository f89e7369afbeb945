package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"brightermonday-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullListing = `
<article class="search-result">
  <a class="search-result__job-title" href="https://www.brightermonday.co.ke/listings/accountant-abc">
    <h3> Senior Accountant </h3>
  </a>
  <article class="search-result__content">
    Prepare monthly reports.
  </article>
  <div class="search-result__location"><a href="/jobs/nairobi"> Nairobi </a></div>
  <div class="search-result__job-salary"><span class="search-result__currency-symbol"> KSh </span> 50,000 - 70,000 </div>
  <div class="search-result__job-type"> Full Time </div>
  <div class="search-result__job-meta">Posted by <a href="/company/acme"> Acme Ltd </a></div>
  <div class="search-result__job-category"><a href="/jobs/accounting"> Accounting </a></div>
</article>`

func page(listings string, pagination string) string {
	return "<html><body><section>" + listings + "</section><nav>" + pagination + "</nav></body></html>"
}

func TestParseHTML_FullListing(t *testing.T) {
	p := NewParser()

	got, err := p.ParseHTML(page(fullListing, ""), 1)
	require.NoError(t, err)
	require.Len(t, got.Listings, 1)

	assert.Equal(t, models.Listing{
		Title:            "Senior Accountant",
		DetailURL:        "https://www.brightermonday.co.ke/listings/accountant-abc",
		BriefDescription: "Prepare monthly reports.",
		Location:         "Nairobi",
		Salary:           "KSh50,000 - 70,000",
		EmploymentType:   "Full Time",
		PostedBy:         "Acme Ltd",
		Category:         "Accounting",
	}, got.Listings[0])
	assert.Equal(t, 1, got.Number)
}

func TestParseHTML_Salary(t *testing.T) {
	tests := []struct {
		name   string
		salary string
		want   string
	}{
		{
			name:   "currency symbol and direct text",
			salary: `<div class="search-result__job-salary"><span class="search-result__currency-symbol">KSh</span>50,000 - 70,000</div>`,
			want:   "KSh50,000 - 70,000",
		},
		{
			name:   "direct text only",
			salary: `<div class="search-result__job-salary">  Negotiable  </div>`,
			want:   "Negotiable",
		},
		{
			name:   "descendant text is not direct text",
			salary: `<div class="search-result__job-salary"><span class="search-result__currency-symbol">KSh</span>30,000<em>per month</em></div>`,
			want:   "KSh30,000",
		},
		{
			name:   "no salary block",
			salary: ``,
			want:   models.SalaryNotProvided,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := buildListing(map[string]string{"salary": tt.salary})
			got, err := NewParser().ParseHTML(page(listing, ""), 1)
			require.NoError(t, err)
			require.Len(t, got.Listings, 1)
			assert.Equal(t, tt.want, got.Listings[0].Salary)
		})
	}
}

func TestParseHTML_PosterAndCategoryDefaults(t *testing.T) {
	tests := []struct {
		name         string
		parts        map[string]string
		wantPoster   string
		wantCategory string
	}{
		{
			name:         "meta block without link",
			parts:        map[string]string{"meta": `<div class="search-result__job-meta">Posted 2 days ago</div>`},
			wantPoster:   models.PosterAnonymous,
			wantCategory: "Accounting",
		},
		{
			name:         "meta block missing",
			parts:        map[string]string{"meta": ``},
			wantPoster:   models.PosterAnonymous,
			wantCategory: "Accounting",
		},
		{
			name:         "category block without link",
			parts:        map[string]string{"category": `<div class="search-result__job-category">Other</div>`},
			wantPoster:   "Acme Ltd",
			wantCategory: "",
		},
		{
			name:         "category block missing",
			parts:        map[string]string{"category": ``},
			wantPoster:   "Acme Ltd",
			wantCategory: models.CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser().ParseHTML(page(buildListing(tt.parts), ""), 1)
			require.NoError(t, err)
			require.Len(t, got.Listings, 1)
			assert.Equal(t, tt.wantPoster, got.Listings[0].PostedBy)
			assert.Equal(t, tt.wantCategory, got.Listings[0].Category)
		})
	}
}

func TestParseHTML_BriefDescription(t *testing.T) {
	empty := buildListing(map[string]string{"content": `<article class="search-result__content">   </article>`})
	got, err := NewParser().ParseHTML(page(empty, ""), 1)
	require.NoError(t, err)
	assert.Equal(t, "", got.Listings[0].BriefDescription)

	missing := buildListing(map[string]string{"content": ``})
	got, err = NewParser().ParseHTML(page(missing, ""), 1)
	require.NoError(t, err)
	assert.Equal(t, "", got.Listings[0].BriefDescription)
}

func TestParseHTML_ExtractionErrors(t *testing.T) {
	tests := []struct {
		name  string
		parts map[string]string
		field string
	}{
		{
			name:  "missing title link",
			parts: map[string]string{"title": ``},
			field: "Title",
		},
		{
			name:  "title link without heading",
			parts: map[string]string{"title": `<a class="search-result__job-title" href="/x">Accountant</a>`},
			field: "Title",
		},
		{
			name:  "blank title",
			parts: map[string]string{"title": `<a class="search-result__job-title" href="/x"><h3>  </h3></a>`},
			field: "Title",
		},
		{
			name:  "missing href",
			parts: map[string]string{"title": `<a class="search-result__job-title"><h3>Accountant</h3></a>`},
			field: "Link",
		},
		{
			name:  "location without link",
			parts: map[string]string{"location": `<div class="search-result__location">Nairobi</div>`},
			field: "Location",
		},
		{
			name:  "missing location block",
			parts: map[string]string{"location": ``},
			field: "Location",
		},
		{
			name:  "missing job type",
			parts: map[string]string{"type": ``},
			field: "Type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := buildListing(tt.parts)
			got, err := NewParser().ParseHTML(page(fullListing+broken, ""), 3)
			require.Error(t, err)
			assert.Nil(t, got, "a malformed page yields no listings")

			var extractErr *ExtractionError
			require.True(t, errors.As(err, &extractErr))
			assert.Equal(t, tt.field, extractErr.Field)
			assert.Equal(t, 3, extractErr.Page)
			assert.Equal(t, 1, extractErr.Index)
		})
	}
}

func TestParseHTML_HasNext(t *testing.T) {
	nextControl := `<a rel="next" href="?page=%d">Next</a>`
	pageLink := `<a href="?page=%d"> %d </a>`

	tests := []struct {
		name       string
		current    int
		pagination string
		wantNext   bool
		wantPage   int
	}{
		{
			name:       "next control and next page link",
			current:    1,
			pagination: fmt.Sprintf(pageLink, 2, 2) + fmt.Sprintf(nextControl, 2),
			wantNext:   true,
			wantPage:   2,
		},
		{
			name:       "next control without next page link",
			current:    4,
			pagination: fmt.Sprintf(pageLink, 3, 3) + fmt.Sprintf(nextControl, 5),
			wantNext:   false,
		},
		{
			name:       "next page link without next control",
			current:    1,
			pagination: fmt.Sprintf(pageLink, 2, 2),
			wantNext:   false,
		},
		{
			name:       "no pagination",
			current:    1,
			pagination: "",
			wantNext:   false,
		},
		{
			name:       "link for a later page only",
			current:    2,
			pagination: fmt.Sprintf(pageLink, 4, 4) + fmt.Sprintf(nextControl, 3),
			wantNext:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser().ParseHTML(page(fullListing, tt.pagination), tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, got.HasNext)
			assert.Equal(t, tt.wantPage, got.NextPage)
		})
	}
}

func TestParseHTML_NoListings(t *testing.T) {
	got, err := NewParser().ParseHTML(page("<p>No results</p>", ""), 1)
	require.NoError(t, err)
	assert.Empty(t, got.Listings)
	assert.False(t, got.HasNext)
}

func TestParseHTML_KeepsDocumentOrder(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 3; i++ {
		sb.WriteString(buildListing(map[string]string{
			"title": fmt.Sprintf(`<a class="search-result__job-title" href="/job/%d"><h3>Job %d</h3></a>`, i, i),
		}))
	}

	got, err := NewParser().ParseHTML(page(sb.String(), ""), 1)
	require.NoError(t, err)
	require.Len(t, got.Listings, 3)
	for i, l := range got.Listings {
		assert.Equal(t, fmt.Sprintf("Job %d", i+1), l.Title)
		assert.Equal(t, fmt.Sprintf("/job/%d", i+1), l.DetailURL)
	}
}

// buildListing renders a listing element, replacing the named parts
func buildListing(overrides map[string]string) string {
	parts := map[string]string{
		"title":    `<a class="search-result__job-title" href="/listings/accountant"><h3>Senior Accountant</h3></a>`,
		"content":  `<article class="search-result__content">Prepare monthly reports.</article>`,
		"location": `<div class="search-result__location"><a href="/jobs/nairobi">Nairobi</a></div>`,
		"salary":   `<div class="search-result__job-salary"><span class="search-result__currency-symbol">KSh</span>50,000</div>`,
		"type":     `<div class="search-result__job-type">Full Time</div>`,
		"meta":     `<div class="search-result__job-meta"><a href="/company/acme">Acme Ltd</a></div>`,
		"category": `<div class="search-result__job-category"><a href="/jobs/accounting">Accounting</a></div>`,
	}
	for k, v := range overrides {
		parts[k] = v
	}

	order := []string{"title", "content", "location", "salary", "type", "meta", "category"}
	var sb strings.Builder
	sb.WriteString(`<article class="search-result">`)
	for _, k := range order {
		sb.WriteString(parts[k])
	}
	sb.WriteString(`</article>`)
	return sb.String()
}
