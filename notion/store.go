package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jomei/notionapi"

	"flatshare-scraper/models"
)

// Property names of the listings database
const (
	PropTitle         = "Ad Title"
	PropSource        = "Source"
	PropPublishDate   = "Publish date"
	PropLocation      = "Location"
	PropRent          = "Rent/week"
	PropDescription   = "Description"
	PropSummary       = "Summary"
	PropLink          = "Link"
	PropImageURL      = "Image URL"
	PropScore         = "Score"
	PropNationalities = "Nationalities"
	PropTags          = "Tags"
	PropStatus        = "Status"
)

// InitialStatus is the workflow status of every new page
const InitialStatus = "Not started"

// Endpoint and version of the raw database query
const (
	APIURL        = "https://api.notion.com/v1"
	NotionVersion = "2022-06-28"
)

const (
	maxTitle       = 100
	maxDescription = 1800
	maxSummary     = 500
)

// Store persists listings as pages of a Notion database. It keeps no local
// state: every existence check is a fresh query.
type Store struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	token      string
	httpClient *http.Client
}

// NewStore creates a Store for the given integration token and database
func NewStore(token, databaseID string, httpClient *http.Client) *Store {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		client:     notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient)),
		databaseID: notionapi.DatabaseID(databaseID),
		token:      token,
		httpClient: httpClient,
	}
}

// ExistsByURL reports whether a page with this Link is already stored. Query
// failures are logged and reported as "not stored", which may lead to a
// duplicate page.
func (s *Store) ExistsByURL(ctx context.Context, url string) bool {
	found, err := s.queryByURL(ctx, url)
	if err != nil {
		log.Printf("Warning: Notion existence check failed for %s: %v\n", url, err)
		return false
	}
	return found
}

// urlQuery is a database query with a url property filter. notionapi's
// PropertyFilter has no url condition, so this request is built by hand.
type urlQuery struct {
	Filter struct {
		Property string `json:"property"`
		URL      struct {
			Equals string `json:"equals"`
		} `json:"url"`
	} `json:"filter"`
	PageSize int `json:"page_size"`
}

func (s *Store) queryByURL(ctx context.Context, link string) (bool, error) {
	var q urlQuery
	q.Filter.Property = PropLink
	q.Filter.URL.Equals = link
	q.PageSize = 1

	body, err := json.Marshal(q)
	if err != nil {
		return false, fmt.Errorf("failed to encode query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/databases/%s/query", APIURL, s.databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Notion-Version", NotionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("database query returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode query response: %w", err)
	}
	return len(result.Results) > 0, nil
}

// Upsert creates a page for the listing. It returns false on any failure.
func (s *Store) Upsert(ctx context.Context, listing models.Listing, analysis models.Analysis) bool {
	_, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.databaseID,
		},
		Properties: BuildProperties(listing, analysis),
	})
	if err != nil {
		log.Printf("Error: failed to add %q to Notion: %v\n", listing.Title, err)
		return false
	}

	log.Printf("Added to Notion: %s\n", listing.Title)
	return true
}

// BuildProperties maps a listing and its analysis onto the database columns.
// Rent and image are left out when unknown.
func BuildProperties(listing models.Listing, analysis models.Analysis) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Title: richText(truncate(listing.Title, maxTitle)),
		},
		PropSource: notionapi.SelectProperty{
			Select: notionapi.Option{Name: listing.Source},
		},
		PropLocation: notionapi.SelectProperty{
			Select: notionapi.Option{Name: listing.Suburb},
		},
		PropDescription: notionapi.RichTextProperty{
			RichText: richText(truncate(listing.Description, maxDescription)),
		},
		PropSummary: notionapi.RichTextProperty{
			RichText: richText(truncate(analysis.Summary, maxSummary)),
		},
		PropLink: notionapi.URLProperty{
			URL: listing.URL,
		},
		PropScore: notionapi.NumberProperty{
			Number: float64(analysis.Score),
		},
		PropNationalities: notionapi.MultiSelectProperty{
			MultiSelect: options(analysis.Nationalities),
		},
		PropTags: notionapi.MultiSelectProperty{
			MultiSelect: options(analysis.Tags),
		},
		PropStatus: notionapi.StatusProperty{
			Status: notionapi.Status{Name: InitialStatus},
		},
	}

	if posted, err := time.Parse("2006-01-02", listing.DatePosted); err == nil {
		start := notionapi.Date(posted)
		props[PropPublishDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		}
	}
	if listing.PricePerWeek != nil {
		props[PropRent] = notionapi.NumberProperty{Number: float64(*listing.PricePerWeek)}
	}
	if listing.ImageURL != "" {
		props[PropImageURL] = notionapi.URLProperty{URL: listing.ImageURL}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func options(names []string) []notionapi.Option {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, notionapi.Option{Name: n})
	}
	return opts
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
