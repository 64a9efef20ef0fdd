package parser

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Detail holds what a listing page adds on top of its index card
type Detail struct {
	ImageURL    string
	Description string
}

// DetailParser extracts detail information from listing detail pages
type DetailParser struct {
	origin string
}

// NewDetailParser creates a new DetailParser instance
func NewDetailParser(origin string) *DetailParser {
	return &DetailParser{origin: origin}
}

// ParseDetailPage extracts the lead image and description from a listing page
func (dp *DetailParser) ParseDetailPage(r io.Reader) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Detail{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return Detail{
		ImageURL:    dp.extractImage(doc),
		Description: dp.extractDescription(doc),
	}, nil
}

// extractImage prefers the Open Graph image, then a listing-image class,
// then the first image on the page
func (dp *DetailParser) extractImage(doc *goquery.Document) string {
	if og := doc.Find("meta[property='og:image']").First().AttrOr("content", ""); og != "" {
		return AbsoluteURL(dp.origin, og)
	}
	for _, selector := range []string{"img.listing-image", "img"} {
		if src := imageSource(doc.Find(selector).First()); src != "" {
			return AbsoluteURL(dp.origin, src)
		}
	}
	return ""
}

func (dp *DetailParser) extractDescription(doc *goquery.Document) string {
	selectors := []string{
		"[data-testid='listing-description']",
		"[itemprop='description']",
		".listing-description",
	}
	for _, selector := range selectors {
		if text := normalizeWhitespace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	if og := doc.Find("meta[property='og:description']").First().AttrOr("content", ""); og != "" {
		return normalizeWhitespace(og)
	}
	return normalizeWhitespace(doc.Find("meta[name='description']").First().AttrOr("content", ""))
}
