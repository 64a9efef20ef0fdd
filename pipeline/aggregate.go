package pipeline

import (
	"context"
	"log"
	"math/rand/v2"
	"time"

	"flatshare-scraper/models"
	"flatshare-scraper/sources"
)

// Delay is a randomized politeness pause
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a duration in [Min, Max)
func (d Delay) Pick() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)))
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Collect runs the adapters in order and concatenates their listings. When
// nothing comes back at all, the built-in sample set is returned instead and
// sample is true.
func Collect(ctx context.Context, adapters []sources.Adapter, limit int, pause Delay, now time.Time) (listings []models.Listing, sample bool) {
	for i, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			sleepContext(ctx, pause.Pick())
		}
		listings = append(listings, safeFetch(ctx, a, limit)...)
	}

	if len(listings) == 0 {
		log.Println("Warning: SAMPLE DATA: no source returned listings, using the built-in sample set")
		return sources.SampleListings(now), true
	}
	return listings, false
}

// safeFetch treats a panicking adapter as an empty one
func safeFetch(ctx context.Context, a sources.Adapter, limit int) (listings []models.Listing) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: adapter %s panicked: %v\n", a.Name(), r)
			listings = nil
		}
	}()
	return a.Fetch(ctx, limit)
}
