package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"flatshare-scraper/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header is the first row of the export sheet
var Header = []interface{}{"Date", "Title", "Link", "Price/week", "Suburb", "Source", "Score", "LGBTQ+", "Summary"}

// Writer handles writing listings to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewWriter creates a new Google Sheets writer. credentials is either the
// service account JSON itself or a path to it.
func NewWriter(ctx context.Context, spreadsheetID, sheetName, credentials string) (*Writer, error) {
	credsJSON, err := loadCredentials(credentials)
	if err != nil {
		return nil, err
	}

	// Create service
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(service, spreadsheetID, sheetName), nil
}

// NewWriterWithService builds a Writer on an existing Sheets service
func NewWriterWithService(service *sheets.Service, spreadsheetID, sheetName string) *Writer {
	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sanitizeSheetName(sheetName),
	}
}

func loadCredentials(credentials string) ([]byte, error) {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS is empty or not set")
	}

	var credsJSON []byte
	if strings.HasPrefix(credentials, "{") {
		log.Printf("Reading credentials from GOOGLE_SHEETS_CREDENTIALS environment variable (%d bytes)\n", len(credentials))
		credsJSON = []byte(credentials)
	} else {
		data, err := os.ReadFile(credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	}

	// Parse and validate JSON
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}

	// Validate that it's a service account credentials file
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	return credsJSON, nil
}

// Notify appends the batch to the sheet. Failures are only logged.
func (w *Writer) Notify(ctx context.Context, batch []models.Record) {
	if w == nil || len(batch) == 0 {
		return
	}
	if err := w.AppendRecords(ctx, batch); err != nil {
		log.Printf("Warning: Failed to write to Google Sheets: %v\n", err)
	}
}

// AppendRecords appends one row per record after the existing data, writing
// the header first when the sheet is empty
func (w *Writer) AppendRecords(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		log.Println("No listings to append")
		return nil
	}

	// First, find the last row with data
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, w.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read existing data: %w", err)
	}

	// Find the next empty row
	nextRow := len(resp.Values) + 1

	var values [][]interface{}
	if nextRow == 1 {
		values = append(values, Header)
	}
	for _, r := range records {
		values = append(values, BuildRow(r))
	}

	// Write to the next row
	updateRange := fmt.Sprintf("%s!A%d", w.sheetName, nextRow)
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, updateRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()

	if err != nil {
		return fmt.Errorf("failed to append to sheets: %w", err)
	}

	log.Printf("Successfully appended %d listings to Google Sheets (starting at row %d)\n", len(records), nextRow)
	return nil
}

// BuildRow lays out one record in Header order. Unknown prices stay blank.
func BuildRow(r models.Record) []interface{} {
	var price interface{} = ""
	if r.Listing.PricePerWeek != nil {
		price = *r.Listing.PricePerWeek
	}
	return []interface{}{
		r.Listing.DatePosted,
		r.Listing.Title,
		r.Listing.URL,
		price,
		r.Listing.Suburb,
		r.Listing.Source,
		r.Analysis.Score,
		r.Analysis.Relevant,
		r.Analysis.Summary,
	}
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	// Remove leading/trailing spaces
	result = strings.TrimSpace(result)
	// If empty after sanitization, use default
	if result == "" {
		result = "Sheet1"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing

	// Find the ID between /d/ and /edit or ?
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	// Remove everything after / or ?
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
