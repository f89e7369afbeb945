package models

// Default values substituted when a listing lacks the corresponding block.
// Poster and category deliberately use different defaults.
const (
	SalaryNotProvided = "Not provided"
	PosterAnonymous   = "Anonymous"
	CategoryNone      = ""
)

// FieldOrder is the key order of every serialized listing.
var FieldOrder = []string{"Title", "Link", "BriefDesc", "Location", "Salary", "Type", "Poster", "Category"}

// Listing represents one job posting from the search results.
// Struct field order matches FieldOrder; encoding/json relies on it.
type Listing struct {
	Title            string `json:"Title"`
	DetailURL        string `json:"Link"`
	BriefDescription string `json:"BriefDesc"`
	Location         string `json:"Location"`
	Salary           string `json:"Salary"`
	EmploymentType   string `json:"Type"`
	PostedBy         string `json:"Poster"`
	Category         string `json:"Category"`
}

// Field is a single key/value pair of a listing
type Field struct {
	Key   string
	Value string
}

// Fields returns the listing's values keyed and ordered like FieldOrder
func (l Listing) Fields() []Field {
	return []Field{
		{Key: "Title", Value: l.Title},
		{Key: "Link", Value: l.DetailURL},
		{Key: "BriefDesc", Value: l.BriefDescription},
		{Key: "Location", Value: l.Location},
		{Key: "Salary", Value: l.Salary},
		{Key: "Type", Value: l.EmploymentType},
		{Key: "Poster", Value: l.PostedBy},
		{Key: "Category", Value: l.Category},
	}
}

// HasSalary reports whether the listing carried a salary block
func (l Listing) HasSalary() bool {
	return l.Salary != SalaryNotProvided
}
