package db

import (
	"context"
	"database/sql"
	"log"

	"github.com/lib/pq"

	"flatshare-scraper/models"
)

// ExistsByURL reports whether the listing is already stored. Query errors
// are logged and reported as "not stored".
func (db *DB) ExistsByURL(ctx context.Context, url string) bool {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		log.Printf("Warning: existence check failed for %s: %v\n", url, err)
		return false
	}
	return exists
}

// Upsert inserts the listing, or refreshes the stored row when the URL is
// already present. It returns false on any failure.
func (db *DB) Upsert(ctx context.Context, listing models.Listing, analysis models.Analysis) bool {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO listings (url, title, description, price_per_week, suburb, date_posted, source, image_url,
			summary, relevant, nationalities, tags, reasons, score, fallback)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price_per_week = EXCLUDED.price_per_week,
			suburb = EXCLUDED.suburb,
			image_url = EXCLUDED.image_url,
			summary = EXCLUDED.summary,
			relevant = EXCLUDED.relevant,
			nationalities = EXCLUDED.nationalities,
			tags = EXCLUDED.tags,
			reasons = EXCLUDED.reasons,
			score = EXCLUDED.score,
			fallback = EXCLUDED.fallback,
			updated_at = CURRENT_TIMESTAMP
	`,
		listing.URL, listing.Title, listing.Description, nullablePrice(listing.PricePerWeek), listing.Suburb,
		listing.DatePosted, listing.Source, listing.ImageURL,
		analysis.Summary, analysis.Relevant, pq.Array(nonNil(analysis.Nationalities)), pq.Array(nonNil(analysis.Tags)),
		pq.Array(nonNil(analysis.Reasons)), analysis.Score, analysis.Fallback,
	)
	if err != nil {
		log.Printf("Error: failed to save listing %s: %v\n", listing.URL, err)
		return false
	}
	return true
}

func nullablePrice(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
