package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flatshare-scraper/models"
)

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Sydney LGBTQ+ flatshares {{.Date}}</title></head>
<body style="font-family:Arial,sans-serif; background:#fafafa; padding:20px;">
  <h2>🏳️‍🌈 New LGBTQ+ Flatshare listings – {{.Date}}</h2>
{{- if .Sample}}
  <p style="color:#b00020;"><strong>SAMPLE DATA:</strong> no source returned listings, these records are built-in examples.</p>
{{- end}}
{{- range .Records}}
  <div style="border:1px solid #ddd; border-radius:8px; overflow:hidden; margin-bottom:20px;">
    {{- if .Listing.ImageURL}}
    <img src="{{.Listing.ImageURL}}" alt="" style="width:100%; height:auto;">
    {{- end}}
    <div style="padding:16px;">
      <h3 style="margin-top:0;">{{.Listing.Title}}</h3>
      <p><strong>{{.Listing.PriceLabel}}</strong> · {{.Listing.Suburb}} · {{.Listing.Source}}</p>
      <p>{{.Analysis.Summary}}</p>
      <p>Score: {{.Analysis.Score}}/100{{if .Analysis.Tags}} · {{join .Analysis.Tags}}{{end}}</p>
      <a href="{{.Listing.URL}}" style="color:#3366cc;">View listing</a>
    </div>
  </div>
{{- else}}
  <p>No new listings this run.</p>
{{- end}}
  <p style="color:#999;font-size:12px;">Generated automatically by the Sydney LGBTQ+ flatshare scraper · run {{.RunID}}</p>
</body></html>
`))

type digestData struct {
	Date    string
	RunID   string
	Sample  bool
	Records []models.Record
}

// RenderDigest renders the batch as a standalone HTML page. All listing text
// is escaped.
func RenderDigest(batch []models.Record, date time.Time, runID string, sample bool) (string, error) {
	var buf bytes.Buffer
	err := digestTemplate.Execute(&buf, digestData{
		Date:    date.Format("January 02, 2006"),
		RunID:   runID,
		Sample:  sample,
		Records: batch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

// WriteDigest writes the rendered digest to path, creating its directory
func WriteDigest(path, html string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create digest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write digest: %w", err)
	}
	log.Printf("HTML digest generated → %s\n", path)
	return nil
}
