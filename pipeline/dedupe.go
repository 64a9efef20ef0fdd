package pipeline

import "flatshare-scraper/models"

// Dedupe keeps the first listing seen for each URL, preserving order
func Dedupe(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool, len(listings))
	unique := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		unique = append(unique, l)
	}
	return unique
}
