package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"brightermonday-scraper/filter"
	"brightermonday-scraper/models"
	"brightermonday-scraper/runner"
)

const banner = `----------------------------------------------------------------------------------------
Scraper: BrighterMondayJobs
Version: 1.0
----------------------------------------------------------------------------------------`

const mainMenu = banner + `
Main Menu

[1] Scrape
[2] Search
[3] Exit
`

const searchMenu = banner + `
Search Menu

Search scraped jobs by:
[1] Job Title
[2] Location
[3] Company
[4] All three
[5] Exit to Main Menu
`

// ScrapeFunc runs one crawl
type ScrapeFunc func(ctx context.Context) (*runner.Report, error)

// LoadFunc loads the listings to search
type LoadFunc func() ([]models.Listing, error)

// Menu is the interactive shell around scraping and searching
type Menu struct {
	in     *bufio.Scanner
	out    io.Writer
	scrape ScrapeFunc
	load   LoadFunc
}

// NewMenu creates a Menu reading answers from in
func NewMenu(in io.Reader, out io.Writer, scrape ScrapeFunc, load LoadFunc) *Menu {
	return &Menu{
		in:     bufio.NewScanner(in),
		out:    out,
		scrape: scrape,
		load:   load,
	}
}

// Run shows the main menu until the user scrapes, searches or exits.
// End of input exits quietly.
func (m *Menu) Run(ctx context.Context) error {
	for {
		fmt.Fprint(m.out, mainMenu)
		option, ok := m.ask("Option: ")
		if !ok {
			return nil
		}

		switch option {
		case "1":
			return m.runScrape(ctx)
		case "2":
			back, err := m.runSearch()
			if err != nil || !back {
				return err
			}
		case "3":
			fmt.Fprintln(m.out, "Exiting.")
			return nil
		default:
			fmt.Fprintln(m.out, "Wrong option.")
		}
	}
}

func (m *Menu) runScrape(ctx context.Context) error {
	fmt.Fprintln(m.out, "Beginning scraping operation...")
	report, err := m.scrape(ctx)
	if err != nil {
		return err
	}

	listings := report.Result.Listings
	fmt.Fprintln(m.out, "Scraping complete.")
	fmt.Fprintf(m.out, "Scraped job listings = %d jobs\n", len(listings))
	fmt.Fprintf(m.out, "Saving to file: %s\n", report.SnapshotPath)
	fmt.Fprintln(m.out)

	answer, ok := m.ask("Print jobs to screen? [Y]es or [N]o: ")
	if !ok {
		return nil
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "yeah":
		count, ok := m.ask(fmt.Sprintf("Enter number of jobs to print (Total Jobs = %d): ", len(listings)))
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(count)
		if err != nil || n < 0 {
			fmt.Fprintln(m.out, "Wrong input. Exiting.")
			return nil
		}
		PrintRecords(m.out, listings, n)
	case "n", "no", "nope":
		fmt.Fprintln(m.out, "Ok. Bye.")
	default:
		fmt.Fprintln(m.out, "Wrong input. Exiting.")
	}
	return nil
}

// runSearch reports whether the user asked to go back to the main menu
func (m *Menu) runSearch() (bool, error) {
	listings, err := m.load()
	if err != nil {
		return false, err
	}

	for {
		fmt.Fprint(m.out, searchMenu)
		fmt.Fprintf(m.out, "Total jobs found: %d\n\n", len(listings))

		option, ok := m.ask("Option: ")
		if !ok {
			return false, nil
		}

		var f *filter.Filter
		switch option {
		case "1":
			title, _ := m.ask("Enter job title: ")
			f = filter.ByTitle(title)
		case "2":
			location, _ := m.ask("Enter location: ")
			f = filter.ByLocation(location)
		case "3":
			company, _ := m.ask("Enter company name: ")
			f = filter.ByPoster(company)
		case "4":
			title, _ := m.ask("Enter job title: ")
			location, _ := m.ask("Enter location: ")
			company, _ := m.ask("Enter company name: ")
			f = filter.ByAll(title, location, company)
		case "5":
			return true, nil
		default:
			fmt.Fprintln(m.out, "Wrong option.")
			continue
		}

		fmt.Fprintln(m.out)
		PrintMatches(m.out, f.Apply(listings))
		return false, nil
	}
}

// ask prints prompt and reads one trimmed line; false means input ended
func (m *Menu) ask(prompt string) (string, bool) {
	fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}
