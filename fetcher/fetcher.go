package fetcher

import (
	"context"
	"errors"
)

// ErrUnexpectedStatus is returned when the site answers with anything but 200
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Fetcher interface defines the contract for fetching implementations
type Fetcher interface {
	// Fetch retrieves the HTML of a single page
	Fetch(ctx context.Context, url string) (string, error)
}

// BrowserHeaders is the header set sent with every page request. It mimics a
// desktop Chrome so index pages are served the same markup a visitor gets.
var BrowserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-AU,en;q=0.9",
	"Cache-Control":   "no-cache",
	"Pragma":          "no-cache",
	"Referer":         "https://www.google.com/",
}
