package filter

import (
	"strings"

	"flatshare-scraper/models"
)

// DefaultTargetSuburbs are treated as high priority regardless of wording
var DefaultTargetSuburbs = []string{"Surry Hills", "Darlinghurst", "Newtown"}

// Filter applies the keep rule and owns the target-suburb allow-list
type Filter struct {
	targetSuburbs map[string]bool
}

// NewFilter creates a new Filter instance. An empty list means the defaults.
func NewFilter(targetSuburbs []string) *Filter {
	if len(targetSuburbs) == 0 {
		targetSuburbs = DefaultTargetSuburbs
	}
	set := make(map[string]bool, len(targetSuburbs))
	for _, s := range targetSuburbs {
		set[normalizeSuburb(s)] = true
	}
	return &Filter{
		targetSuburbs: set,
	}
}

// InTargetSuburb reports whether suburb is on the allow-list
func (f *Filter) InTargetSuburb(suburb string) bool {
	return f.targetSuburbs[normalizeSuburb(suburb)]
}

// Keep decides whether an analysed listing goes on to persistence: it must be
// topical (per the service or the local patterns) or sit in a target suburb
func (f *Filter) Keep(listing models.Listing, analysis models.Analysis) bool {
	if analysis.Relevant {
		return true
	}
	if IsRelevant(listing.Text()) {
		return true
	}
	return f.InTargetSuburb(listing.Suburb)
}

func normalizeSuburb(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
