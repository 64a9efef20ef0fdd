package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"flatshare-scraper/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://docs.google.com/spreadsheets/d/abc123/edit", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123?x=1", "abc123"},
		{"https://example.com/nothing", ""},
	}
	for _, tt := range tests {
		if got := ExtractSpreadsheetID(tt.url); got != tt.want {
			t.Errorf("ExtractSpreadsheetID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSanitizeSheetName(t *testing.T) {
	tests := map[string]string{
		"Listings":      "Listings",
		" a/b\\c?d*[e] ": "a_b_c_d__e_",
		"":              "Sheet1",
		"///":           "___",
	}
	for in, want := range tests {
		if got := sanitizeSheetName(in); got != want {
			t.Errorf("sanitizeSheetName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeSheetName(strings.Repeat("x", 150)); len(got) != 100 {
		t.Errorf("long name kept %d chars", len(got))
	}
}

func TestBuildRow(t *testing.T) {
	r := models.Record{
		Listing: models.Listing{Title: "Room", URL: "https://x", Suburb: "Newtown", Source: "Gumtree", DatePosted: "2025-03-14"},
		Analysis: models.Analysis{Score: 85, Relevant: true, Summary: "ok"},
	}
	row := BuildRow(r)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	if row[3] != "" {
		t.Errorf("unknown price = %v, want blank", row[3])
	}

	r.Listing.PricePerWeek = models.IntPtr(380)
	if row := BuildRow(r); row[3] != 380 || row[6] != 85 || row[7] != true {
		t.Errorf("row = %v", row)
	}
}

func TestLoadCredentials(t *testing.T) {
	sa := `{"type":"service_account","client_email":"x@y"}`
	if _, err := loadCredentials(sa); err != nil {
		t.Errorf("inline JSON: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	os.WriteFile(path, []byte(sa), 0600)
	if _, err := loadCredentials(path); err != nil {
		t.Errorf("file: %v", err)
	}

	for _, bad := range []string{"", `{"type":"authorized_user"}`, "{not json", filepath.Join(t.TempDir(), "missing.json")} {
		if _, err := loadCredentials(bad); err == nil {
			t.Errorf("loadCredentials(%q) error = nil", bad)
		}
	}
}

func TestAppendRecords(t *testing.T) {
	tests := []struct {
		name        string
		existing    string
		wantRange   string
		wantRows    int
		wantsHeader bool
	}{
		{"empty sheet", `{"range":"Listings!A1:A1000"}`, "Listings!A1", 3, true},
		{"existing rows", `{"range":"Listings!A1:A1000","values":[["Date"],["2025-03-13"]]}`, "Listings!A3", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRange string
			var gotValues [][]interface{}

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch r.Method {
				case http.MethodGet:
					fmt.Fprint(w, tt.existing)
				case http.MethodPut:
					var vr sheets.ValueRange
					if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
						t.Errorf("decode body: %v", err)
					}
					parts := strings.Split(r.URL.Path, "/values/")
					gotRange = parts[len(parts)-1]
					gotValues = vr.Values
					fmt.Fprint(w, `{"updatedRows":1}`)
				}
			}))
			defer srv.Close()

			svc, err := sheets.NewService(context.Background(), option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
			if err != nil {
				t.Fatalf("sheets.NewService() error = %v", err)
			}
			w := NewWriterWithService(svc, "sheet-id", "Listings")

			records := []models.Record{
				{Listing: models.Listing{Title: "A", URL: "https://a"}},
				{Listing: models.Listing{Title: "B", URL: "https://b"}},
			}
			if err := w.AppendRecords(context.Background(), records); err != nil {
				t.Fatalf("AppendRecords() error = %v", err)
			}

			if gotRange != tt.wantRange {
				t.Errorf("range = %q, want %q", gotRange, tt.wantRange)
			}
			if len(gotValues) != tt.wantRows {
				t.Fatalf("wrote %d rows, want %d", len(gotValues), tt.wantRows)
			}
			if tt.wantsHeader && gotValues[0][0] != "Date" {
				t.Errorf("first row = %v, want header", gotValues[0])
			}
		})
	}
}
