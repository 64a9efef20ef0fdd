package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors describes where each field lives inside a listing card. Each
// entry may list several comma-separated alternatives, since the target
// sites change their markup often.
type Selectors struct {
	Card        string
	Title       string
	Link        string
	Price       string
	Suburb      string
	Image       string
	Description string
}

// Card holds the raw fields pulled out of one card. Empty strings mean the
// field could not be found; callers apply their own defaults.
type Card struct {
	Title       string
	URL         string
	PriceText   string
	Suburb      string
	ImageURL    string
	Description string
}

// CardParser extracts listing cards from an index page
type CardParser struct {
	origin    string
	selectors Selectors
}

// NewCardParser creates a parser for one site
func NewCardParser(origin string, selectors Selectors) *CardParser {
	return &CardParser{
		origin:    origin,
		selectors: selectors,
	}
}

// ParseHTML extracts at most limit cards from HTML content
func (p *CardParser) ParseHTML(r io.Reader, limit int) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return p.ParseDocument(doc, limit), nil
}

// ParseDocument extracts at most limit cards from a parsed document
func (p *CardParser) ParseDocument(doc *goquery.Document, limit int) []Card {
	var cards []Card
	seen := make(map[string]bool)

	doc.Find(p.selectors.Card).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && len(cards) >= limit {
			return false
		}
		card := p.extractCard(s)
		// Without a link there is no identity key
		if card.URL == "" || seen[card.URL] {
			return true
		}
		seen[card.URL] = true
		cards = append(cards, card)
		return true
	})

	return cards
}

// extractCard pulls every field independently so one missing element does
// not cost the whole card
func (p *CardParser) extractCard(s *goquery.Selection) Card {
	card := Card{}

	card.Title = firstText(s, p.selectors.Title)
	if card.Title == "" {
		card.Title = normalizeWhitespace(s.Find("a[aria-label]").First().AttrOr("aria-label", ""))
	}

	href := ""
	if s.Is("a[href]") {
		href = s.AttrOr("href", "")
	}
	if href == "" && p.selectors.Link != "" {
		href = s.Find(p.selectors.Link).First().AttrOr("href", "")
	}
	card.URL = AbsoluteURL(p.origin, href)

	card.PriceText = firstText(s, p.selectors.Price)
	card.Suburb = firstText(s, p.selectors.Suburb)
	card.Description = firstText(s, p.selectors.Description)

	if p.selectors.Image != "" {
		card.ImageURL = AbsoluteURL(p.origin, imageSource(s.Find(p.selectors.Image).First()))
	}

	return card
}

// firstText returns the trimmed text of the first match, or "" when the
// selector is empty or matches nothing
func firstText(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return normalizeWhitespace(s.Find(selector).First().Text())
}

// imageSource prefers src, then lazy-loading attributes, then the first
// srcset candidate
func imageSource(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	if srcset := strings.TrimSpace(img.AttrOr("srcset", "")); srcset != "" {
		first := strings.Split(srcset, ",")[0]
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}
