package db

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"flatshare-scraper/models"
)

// openTestDB connects to TEST_DATABASE_URL, skipping when it is not set
func openTestDB(t *testing.T) *DB {
	t.Helper()
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := NewDB(context.Background(), connStr)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBRequiresConnString(t *testing.T) {
	if _, err := NewDB(context.Background(), ""); err == nil {
		t.Fatal("NewDB(\"\") error = nil")
	}
}

func TestNullablePrice(t *testing.T) {
	if got := nullablePrice(nil); got.Valid {
		t.Errorf("nullablePrice(nil) = %+v, want NULL", got)
	}
	if got := nullablePrice(models.IntPtr(0)); !got.Valid || got.Int64 != 0 {
		t.Errorf("nullablePrice(0) = %+v, want 0", got)
	}
}

func TestUpsertAndExists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	url := "https://example.com/share/" + uuid.NewString()
	t.Cleanup(func() { db.conn.Exec(`DELETE FROM listings WHERE url = $1`, url) })

	if db.ExistsByURL(ctx, url) {
		t.Fatal("ExistsByURL() = true before insert")
	}

	listing := models.Listing{
		Title:      "Queer-friendly room",
		URL:        url,
		Suburb:     "Newtown",
		DatePosted: "2025-03-14",
		Source:     models.SourceGumtree,
	}
	analysis := models.Analysis{Summary: "first", Score: 60, Nationalities: []string{"Brazilian"}}
	if !db.Upsert(ctx, listing, analysis) {
		t.Fatal("Upsert() = false")
	}
	if !db.ExistsByURL(ctx, url) {
		t.Fatal("ExistsByURL() = false after insert")
	}

	// a second write refreshes the same row
	listing.PricePerWeek = models.IntPtr(350)
	analysis.Score = 90
	if !db.Upsert(ctx, listing, analysis) {
		t.Fatal("second Upsert() = false")
	}

	var (
		count         int
		score         int
		price         sql.NullInt64
		nationalities []string
	)
	err := db.conn.QueryRow(`SELECT COUNT(*) OVER (), score, price_per_week, nationalities FROM listings WHERE url = $1`, url).
		Scan(&count, &score, &price, pq.Array(&nationalities))
	if err != nil {
		t.Fatalf("query listing: %v", err)
	}
	if count != 1 || score != 90 || !price.Valid || price.Int64 != 350 {
		t.Errorf("row = count %d score %d price %+v", count, score, price)
	}
	if len(nationalities) != 1 || nationalities[0] != "Brazilian" {
		t.Errorf("nationalities = %v", nationalities)
	}
}

func TestUpsertRejectsOutOfRangeScore(t *testing.T) {
	db := openTestDB(t)
	url := "https://example.com/share/" + uuid.NewString()
	t.Cleanup(func() { db.conn.Exec(`DELETE FROM listings WHERE url = $1`, url) })

	ok := db.Upsert(context.Background(), models.Listing{Title: "x", URL: url, Suburb: "Sydney", Source: "Test"},
		models.Analysis{Score: 150})
	if ok {
		t.Error("Upsert() = true for score 150")
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	runID := uuid.NewString()
	t.Cleanup(func() { db.conn.Exec(`DELETE FROM runs WHERE id = $1`, runID) })

	if err := db.StartRun(ctx, runID); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	summary := models.RunSummary{RawCount: 5, UniqueCount: 4, PersistedCount: 2, FailedCount: 1}
	if err := db.FinishRun(ctx, runID, summary); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	var status string
	var persisted int
	if err := db.conn.QueryRow(`SELECT status, persisted_count FROM runs WHERE id = $1`, runID).Scan(&status, &persisted); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if status != "done" || persisted != 2 {
		t.Errorf("run = %s/%d", status, persisted)
	}
}
