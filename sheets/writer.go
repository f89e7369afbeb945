package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"brightermonday-scraper/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const maxSheetNameLen = 100

// Writer exports crawl results to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer.
// Credentials come from credentialsPath or the GOOGLE_SHEETS_CREDENTIALS variable.
func NewWriter(ctx context.Context, spreadsheetID string, credentialsPath string) (*Writer, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is empty")
	}

	credsJSON, err := readCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func readCredentials(credentialsPath string) ([]byte, error) {
	var credsJSON []byte

	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, errors.New("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		log.Printf("[sheets] Reading credentials from GOOGLE_SHEETS_CREDENTIALS (%d bytes)\n", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	var creds struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON: %w", err)
	}
	if creds.Type != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %q", creds.Type)
	}

	return credsJSON, nil
}

// SheetName returns the tab name for a crawl started at t
func SheetName(t time.Time) string {
	return "Jobs_" + t.Format("20060102_150405")
}

// CreateSheetAndWriteListings adds a new tab at index 0 and writes the listings to it.
// searchURL and snapshotPath are optional metadata for the first row.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteListings(ctx context.Context, sheetName string, listings []models.Listing, searchURL, snapshotPath string) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
					},
				},
			},
		},
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	log.Printf("[sheets] Created sheet '%s' with ID %d\n", sheetName, sheetID)

	valueRange := &sheets.ValueRange{
		Values: buildValues(listings, searchURL, snapshotPath),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	log.Printf("[sheets] Wrote %d listings to sheet '%s'\n", len(listings), sheetName)
	return sheetName, sheetID, nil
}

// buildValues lays out the optional metadata row, the header and one row per listing
func buildValues(listings []models.Listing, searchURL, snapshotPath string) [][]interface{} {
	var values [][]interface{}

	if searchURL != "" || snapshotPath != "" {
		metadataRow := []interface{}{"URL", searchURL}
		if snapshotPath != "" {
			metadataRow = append(metadataRow, "Snapshot", snapshotPath)
		}
		values = append(values, metadataRow)
	}

	header := make([]interface{}, 0, len(models.FieldOrder))
	for _, key := range models.FieldOrder {
		header = append(header, key)
	}
	values = append(values, header)

	for _, listing := range listings {
		fields := listing.Fields()
		row := make([]interface{}, 0, len(fields))
		for _, f := range fields {
			row = append(row, f.Value)
		}
		values = append(values, row)
	}

	return values
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] :
	replacer := strings.NewReplacer("/", "_", "\\", "_", "?", "_", "*", "_", "[", "_", "]", "_", ":", "_", "'", "")
	result := strings.TrimSpace(replacer.Replace(name))
	if result == "" {
		result = "Sheet1"
	}
	// the limit counts characters
	if runes := []rune(result); len(runes) > maxSheetNameLen {
		result = string(runes[:maxSheetNameLen])
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func ExtractSpreadsheetID(url string) string {
	url = strings.TrimSpace(url)
	if !strings.Contains(url, "/") {
		return url
	}

	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.IndexAny(idPart, "/?#"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
