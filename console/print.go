// Package console renders listings and drives the interactive menu.
package console

import (
	"fmt"
	"io"

	"brightermonday-scraper/db"
	"brightermonday-scraper/models"
)

// NoMatches is printed when a search finds nothing
const NoMatches = "No matches found. Sorry."

// PrintListing writes one search match with 20-wide labels
func PrintListing(w io.Writer, l models.Listing) {
	rows := []struct{ label, value string }{
		{"Title", l.Title},
		{"Category", l.Category},
		{"Location", l.Location},
		{"Brief Description", l.BriefDescription},
		{"Posted by", l.PostedBy},
		{"Type", l.EmploymentType},
		{"Salary", l.Salary},
		{"Link", l.DetailURL},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s : %s\n", r.label, r.value)
	}
	fmt.Fprintln(w)
}

// PrintMatches writes every match, or NoMatches
func PrintMatches(w io.Writer, listings []models.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, NoMatches)
		return
	}
	for _, l := range listings {
		PrintListing(w, l)
	}
}

// PrintRecords writes the first n listings as raw key/value records
func PrintRecords(w io.Writer, listings []models.Listing, n int) {
	if n > len(listings) {
		n = len(listings)
	}
	for _, l := range listings[:max(n, 0)] {
		for _, f := range l.Fields() {
			fmt.Fprintf(w, "%-10s : %s\n", f.Key, f.Value)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Done.")
	fmt.Fprintln(w, rule)
}

const rule = "-----------------------------------------"

// PrintRuns writes one line per recorded crawl, newest first as given
func PrintRuns(w io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-6s %-19s %-11s %-22s %5s %8s  %s\n", "ID", "Started", "Status", "Stopped because", "Pages", "Listings", "Snapshot")
	for _, r := range runs {
		stopped := r.Termination.String
		if r.Status == db.StatusFailed {
			stopped = r.LastError.String
		}
		fmt.Fprintf(w, "%-6d %-19s %-11s %-22s %5d %8d  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, stopped,
			r.PagesCount, r.ListingsCount, r.SnapshotPath.String)
	}
}
