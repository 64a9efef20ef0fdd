package fetcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements the Fetcher interface using colly. Every call runs
// on a clone of one base collector, so the HTTP client and cookie jar are
// shared between sites and runs.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.Headers(BrowserHeaders),
		// The same index page is requested on every scheduled run
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}

	return &CollyFetcher{
		collector: c,
	}
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := cf.collector.Clone()
	c.Context = ctx

	var (
		body   string
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("%w %d from %s: %v", ErrUnexpectedStatus, r.StatusCode, url, err)
			return
		}
		fetchErr = fmt.Errorf("failed to fetch %s: %w", url, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("failed to visit URL: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if status != 200 {
		return "", fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, status, url)
	}

	log.Printf("Fetched %s (%d bytes)\n", url, len(body))
	return body, nil
}
