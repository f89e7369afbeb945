// Package salary turns the salary text shown on a listing into numbers.
package salary

import (
	"regexp"
	"strconv"
	"strings"

	"brightermonday-scraper/models"
)

// Range is a parsed salary, e.g. "KSh80,000 - 120,000"
type Range struct {
	Currency string
	Min      int
	Max      int
}

var amountPattern = regexp.MustCompile(`[0-9][0-9,]*`)

// Parse extracts the currency and bounds from a salary string.
// A single amount yields Min == Max. Returns false when no amount is present,
// which includes models.SalaryNotProvided.
func Parse(s string) (Range, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == models.SalaryNotProvided {
		return Range{}, false
	}

	loc := amountPattern.FindAllStringIndex(s, 2)
	if len(loc) == 0 {
		return Range{}, false
	}

	var amounts []int
	for _, l := range loc {
		n, err := strconv.Atoi(strings.ReplaceAll(s[l[0]:l[1]], ",", ""))
		if err != nil {
			return Range{}, false
		}
		amounts = append(amounts, n)
	}

	r := Range{
		Currency: strings.TrimSpace(s[:loc[0][0]]),
		Min:      amounts[0],
		Max:      amounts[0],
	}
	if len(amounts) > 1 {
		r.Max = amounts[1]
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	return r, true
}
