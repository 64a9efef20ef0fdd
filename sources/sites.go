package sources

import (
	"time"

	"flatshare-scraper/fetcher"
	"flatshare-scraper/models"
	"flatshare-scraper/parser"
)

// Flatmates is flatmates.com.au, Sydney shares
var Flatmates = Site{
	Name:     models.SourceFlatmates,
	Origin:   "https://flatmates.com.au",
	IndexURL: "https://flatmates.com.au/shares/sydney",
	Selectors: parser.Selectors{
		Card:        "li.FmListingCard__ListingCard-sc-1frgr5r-0, [data-testid='listing-card']",
		Title:       "h2, h3",
		Link:        "a[href]",
		Price:       ".price, [class*='price']",
		Suburb:      ".location, [class*='address']",
		Image:       "img",
		Description: "[class*='description']",
	},
}

// Gumtree is the Gumtree flatshare & houseshare category for Sydney
var Gumtree = Site{
	Name:     models.SourceGumtree,
	Origin:   "https://www.gumtree.com.au",
	IndexURL: "https://www.gumtree.com.au/s-flatshare-houseshare/sydney/c18294l3003435",
	Selectors: parser.Selectors{
		Card:        "a.user-ad-collection-new-design, article.user-ad-collection-new-design",
		Title:       ".user-ad-row-new-design__title-span, h3",
		Link:        "a[href]",
		Price:       ".user-ad-price-new-design__price, [class*='price']",
		Suburb:      ".user-ad-row-new-design__location-area, [class*='location']",
		Image:       "img",
		Description: ".user-ad-row-new-design__description-text",
	},
}

// FairyFloss is Fairy Floss Real Estate, a queer-run listings board
var FairyFloss = Site{
	Name:     models.SourceFairyFloss,
	Origin:   "https://fairyflossrealestate.com",
	IndexURL: "https://fairyflossrealestate.com/listings/sydney",
	Selectors: parser.Selectors{
		Card:        "article.listing, div.listing, li.listing",
		Title:       ".listing-title, h2, h3",
		Link:        "a[href]",
		Price:       ".listing-price, .price",
		Suburb:      ".suburb, .location",
		Image:       "img",
		Description: ".excerpt, .description",
	},
}

// Default returns the registered adapters in the order they are run
func Default(f fetcher.Fetcher, detailPages bool) []Adapter {
	return []Adapter{
		NewSiteAdapter(Flatmates, f, detailPages),
		NewSiteAdapter(Gumtree, f, detailPages),
		NewSiteAdapter(FairyFloss, f, detailPages),
	}
}

// SampleListings is the built-in record set used when every adapter comes
// back empty. It is labelled with the Sample source so it never passes for
// live data.
func SampleListings(now time.Time) []models.Listing {
	return []models.Listing{
		{
			Title:        "Queer-friendly ensuite in Surry Hills",
			Description:  "Spacious room in a welcoming LGBTQ+ household, near Oxford Street. Bills included, fully furnished.",
			URL:          "https://flatmates.com.au/listing/12345",
			PricePerWeek: models.IntPtr(420),
			Suburb:       "Surry Hills",
			DatePosted:   now.Format("2006-01-02"),
			Source:       models.SourceSample,
		},
	}
}
