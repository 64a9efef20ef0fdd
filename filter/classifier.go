package filter

import (
	"fmt"
	"regexp"
	"strings"

	"flatshare-scraper/models"
)

// FallbackReason marks analyses produced without the text-generation service
const FallbackReason = "Fallback analysis used"

// topicPatterns match LGBTQ+-inclusive wording. Matching is existence-only and
// has no negation handling: "not lgbtq friendly" still matches.
var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lgbtq?\+?`),
	regexp.MustCompile(`(?i)queer[-\s]?friendly`),
	regexp.MustCompile(`(?i)gay[-\s]?share`),
	regexp.MustCompile(`(?i)gay[-\s]?friendly`),
	regexp.MustCompile(`(?i)rainbow\s*(home|house|household)`),
}

// nationality labels form the controlled vocabulary, in output order
var nationalityLabels = []string{"Australian", "Brazilian"}

var nationalityPatterns = map[string]*regexp.Regexp{
	"Australian": regexp.MustCompile(`(?i)\b(aussies?|australians?)\b`),
	"Brazilian":  regexp.MustCompile(`(?i)\b(brazil(ian)?s?|portuguese)\b`),
}

// IsRelevant reports whether text mentions any of the topical patterns
func IsRelevant(text string) bool {
	for _, p := range topicPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Nationalities returns the vocabulary labels mentioned in text
func Nationalities(text string) []string {
	found := []string{}
	for _, label := range nationalityLabels {
		if nationalityPatterns[label].MatchString(text) {
			found = append(found, label)
		}
	}
	return found
}

// KnownNationality reports whether label belongs to the vocabulary. The
// comparison ignores case and returns the canonical spelling.
func KnownNationality(label string) (string, bool) {
	for _, known := range nationalityLabels {
		if strings.EqualFold(strings.TrimSpace(label), known) {
			return known, true
		}
	}
	return "", false
}

// ClampScore keeps a score inside [0,100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FallbackScore is 50, +25 for a topical match, +10 for a target suburb
func FallbackScore(relevant, targetSuburb bool) int {
	score := 50
	if relevant {
		score += 25
	}
	if targetSuburb {
		score += 10
	}
	return ClampScore(score)
}

// Fallback builds the deterministic analysis used when the service fails
func (f *Filter) Fallback(listing models.Listing) models.Analysis {
	text := listing.Text()
	relevant := IsRelevant(text)

	return models.Analysis{
		Summary:       fmt.Sprintf("Flatshare in %s for %s.", listing.Suburb, listing.PriceLabel()),
		Relevant:      relevant,
		Nationalities: Nationalities(text),
		Tags:          []string{},
		Score:         FallbackScore(relevant, f.InTargetSuburb(listing.Suburb)),
		Reasons:       []string{FallbackReason},
		Fallback:      true,
	}
}
