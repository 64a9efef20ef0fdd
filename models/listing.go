package models

import "fmt"

// Source labels for the adapters
const (
	SourceFlatmates  = "Flatmates"
	SourceGumtree    = "Gumtree"
	SourceFairyFloss = "FairyFloss"
	SourceSample     = "Sample"
)

// DefaultSuburb is used when a card does not expose a locality
const DefaultSuburb = "Sydney"

// Listing represents a flatshare ad as scraped from one of the sources
type Listing struct {
	Title        string
	Description  string
	URL          string
	PricePerWeek *int // nil when the price text could not be parsed
	Suburb       string
	DatePosted   string // YYYY-MM-DD
	Source       string
	ImageURL     string
}

// Analysis is the summary/score annotation attached to a listing
type Analysis struct {
	Summary       string
	Relevant      bool
	Nationalities []string
	Tags          []string
	Score         int
	Reasons       []string
	Fallback      bool // true when produced by the deterministic scorer
}

// Record pairs a persisted listing with its analysis
type Record struct {
	Listing  Listing
	Analysis Analysis
}

// Text returns the free text used for classification
func (l Listing) Text() string {
	return l.Title + " " + l.Description
}

// PriceLabel formats the weekly rent for messages
func (l Listing) PriceLabel() string {
	if l.PricePerWeek == nil {
		return "price on request"
	}
	return fmt.Sprintf("$%d/week", *l.PricePerWeek)
}

// IsSample reports whether the listing comes from the built-in sample set
func (l Listing) IsSample() bool {
	return l.Source == SourceSample
}

// IntPtr is a small helper for building listings with a known price
func IntPtr(v int) *int {
	return &v
}

// RunSummary holds the counts recorded for one pipeline run
type RunSummary struct {
	RawCount       int
	UniqueCount    int
	PersistedCount int
	FailedCount    int
	SampleData     bool
}
