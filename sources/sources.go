package sources

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"flatshare-scraper/fetcher"
	"flatshare-scraper/models"
	"flatshare-scraper/parser"
)

// Adapter turns one website into listings. Fetch never fails: anything that
// goes wrong is logged and yields an empty slice.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, limit int) []models.Listing
}

// Site describes one flatshare website
type Site struct {
	Name      string // also the Listing.Source label
	Origin    string
	IndexURL  string
	Selectors parser.Selectors
}

// Placeholder is the title used when a card has none
func (s Site) Placeholder() string {
	return fmt.Sprintf("Untitled %s listing", s.Name)
}

// SiteAdapter is the selector-driven adapter shared by every site
type SiteAdapter struct {
	site        Site
	fetcher     fetcher.Fetcher
	cards       *parser.CardParser
	details     *parser.DetailParser
	detailPages bool
	now         func() time.Time
}

// NewSiteAdapter creates an adapter for site. With detailPages set, cards
// missing an image or a description are completed from their listing page.
func NewSiteAdapter(site Site, f fetcher.Fetcher, detailPages bool) *SiteAdapter {
	return &SiteAdapter{
		site:        site,
		fetcher:     f,
		cards:       parser.NewCardParser(site.Origin, site.Selectors),
		details:     parser.NewDetailParser(site.Origin),
		detailPages: detailPages,
		now:         time.Now,
	}
}

// Name implements Adapter
func (a *SiteAdapter) Name() string {
	return a.site.Name
}

// Fetch implements Adapter
func (a *SiteAdapter) Fetch(ctx context.Context, limit int) []models.Listing {
	listings := []models.Listing{}

	html, err := a.fetcher.Fetch(ctx, a.site.IndexURL)
	if err != nil {
		log.Printf("Warning: %s: %v\n", a.site.Name, err)
		return listings
	}

	cards, err := a.cards.ParseHTML(strings.NewReader(html), limit)
	if err != nil {
		log.Printf("Warning: %s: %v\n", a.site.Name, err)
		return listings
	}
	if len(cards) == 0 {
		log.Printf("Warning: %s: no listing cards matched, the markup may have changed\n", a.site.Name)
		return listings
	}

	today := a.now().Format("2006-01-02")
	for _, card := range cards {
		if a.detailPages && (card.ImageURL == "" || card.Description == "") {
			card = a.enrich(ctx, card)
		}
		listings = append(listings, a.toListing(card, today))
	}

	log.Printf("%s: %d listing(s) scraped\n", a.site.Name, len(listings))
	return listings
}

// toListing applies the defaults for every field the card did not provide
func (a *SiteAdapter) toListing(card parser.Card, today string) models.Listing {
	title := card.Title
	if title == "" {
		title = a.site.Placeholder()
	}
	suburb := card.Suburb
	if suburb == "" {
		suburb = models.DefaultSuburb
	}

	return models.Listing{
		Title:        title,
		Description:  card.Description,
		URL:          card.URL,
		PricePerWeek: parser.ParsePrice(card.PriceText),
		Suburb:       suburb,
		DatePosted:   today,
		Source:       a.site.Name,
		ImageURL:     card.ImageURL,
	}
}

// enrich fills the image and description from the listing page. The card is
// returned unchanged when the page cannot be fetched.
func (a *SiteAdapter) enrich(ctx context.Context, card parser.Card) parser.Card {
	html, err := a.fetcher.Fetch(ctx, card.URL)
	if err != nil {
		log.Printf("Warning: %s: failed to fetch listing page: %v\n", a.site.Name, err)
		return card
	}

	detail, err := a.details.ParseDetailPage(strings.NewReader(html))
	if err != nil {
		log.Printf("Warning: %s: %v\n", a.site.Name, err)
		return card
	}

	if card.ImageURL == "" {
		card.ImageURL = detail.ImageURL
	}
	if card.Description == "" {
		card.Description = detail.Description
	}
	return card
}
