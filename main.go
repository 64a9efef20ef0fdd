package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flatshare-scraper/analyzer"
	"flatshare-scraper/config"
	"flatshare-scraper/db"
	"flatshare-scraper/fetcher"
	"flatshare-scraper/filter"
	"flatshare-scraper/models"
	"flatshare-scraper/notify"
	"flatshare-scraper/notion"
	"flatshare-scraper/pipeline"
	"flatshare-scraper/scheduler"
	"flatshare-scraper/sheets"
	"flatshare-scraper/sources"
)

func main() {
	log.SetFlags(log.LstdFlags)

	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	every := flag.Duration("every", 0, "Run repeatedly at this interval (e.g. 6h); 0 runs once")
	limit := flag.Int("limit", 0, "Maximum listings per source (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Do not persist or send anything; only write the digest")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: Failed to load configuration: %v\n", err)
	}
	if *limit > 0 {
		cfg.Scraping.PerSourceLimit = *limit
	}
	if *dryRun {
		cfg.Store.Kind = "none"
	}

	f, closeFetcher, err := newFetcher(cfg.Scraping)
	if err != nil {
		log.Fatalf("Error: Failed to initialize fetcher: %v\n", err)
	}
	defer closeFetcher()

	listingFilter := filter.NewFilter(cfg.Pipeline.TargetSuburbs)

	pcfg := pipeline.Config{
		Adapters:   sources.Default(f, cfg.Scraping.DetailPages),
		Analyzer:   analyzer.NewAnalyzer(cfg.Analysis, listingFilter),
		Filter:     listingFilter,
		DigestPath: cfg.Notify.DigestPath,
		Limit:      cfg.Scraping.PerSourceLimit,
		AdapterDelay: pipeline.Delay{
			Min: cfg.Pipeline.AdapterDelayMin,
			Max: cfg.Pipeline.AdapterDelayMax,
		},
		ListingDelay: pipeline.Delay{
			Min: cfg.Pipeline.ListingDelayMin,
			Max: cfg.Pipeline.ListingDelayMax,
		},
	}

	closeStore := wireStore(ctx, cfg.Store, &pcfg)
	defer closeStore()

	if *dryRun {
		log.Println("Dry run: store, chat, email and sheets are disabled")
	} else {
		wireNotifiers(ctx, cfg, &pcfg)
	}

	p := pipeline.New(pcfg)

	if *every <= 0 {
		report := p.Run(ctx)
		printReport(report)
		return
	}

	sched := scheduler.NewScheduler(ctx, p, *every)
	sched.Start()
	log.Printf("Scheduler started, running every %s\n", *every)
	sched.Wait()
	sched.Stop()
}

// newFetcher builds the configured page fetcher and its cleanup func
func newFetcher(sc config.ScrapingConfig) (fetcher.Fetcher, func(), error) {
	switch sc.Fetcher {
	case "rod":
		rf, err := fetcher.NewRodFetcher(sc.BrowserDataDir, sc.UserAgent, sc.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return rf, func() {
			if err := rf.Close(); err != nil {
				log.Printf("Warning: Failed to close browser: %v\n", err)
			}
		}, nil
	case "colly", "":
		return fetcher.NewCollyFetcher(sc.UserAgent, sc.Timeout), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher %q (want colly or rod)", sc.Fetcher)
	}
}

// wireStore sets the persistence backend (and run recorder for Postgres).
// A backend that cannot be reached leaves the pipeline in dry-run mode.
func wireStore(ctx context.Context, sc config.StoreConfig, pcfg *pipeline.Config) func() {
	switch sc.Kind {
	case "notion":
		pcfg.Store = notion.NewStore(sc.NotionToken, sc.NotionDatabaseID, nil)
		log.Printf("Storing listings in Notion database %s\n", sc.NotionDatabaseID)
	case "postgres":
		database, err := db.NewDB(ctx, sc.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to initialize database, falling back to dry run: %v\n", err)
			return func() {}
		}
		log.Println("Database initialized successfully")
		pcfg.Store = database
		pcfg.Recorder = database
		return func() { database.Close() }
	default:
		log.Println("No store configured: dry run")
	}
	return func() {}
}

// wireNotifiers adds the chat, email and spreadsheet stages that are configured
func wireNotifiers(ctx context.Context, cfg *config.Config, pcfg *pipeline.Config) {
	nc := cfg.Notify

	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(nc.TelegramToken, nc.TelegramChatID, "")
		if err != nil {
			log.Printf("Warning: Telegram disabled: %v\n", err)
		} else {
			pcfg.Chat = tg
		}
	}

	if cfg.MailEnabled() {
		mailer, err := notify.NewMailer(ctx, notify.MailerConfig{
			To:           nc.MailTo,
			Subject:      nc.MailSubject,
			TemplatePath: nc.MailTemplate,
			ContactEmail: nc.ContactEmail,
		}, nc.MailCredentials, nc.MailTokenPath)
		if err != nil {
			log.Printf("Warning: Email disabled: %v\n", err)
		} else {
			pcfg.Notifiers = append(pcfg.Notifiers, mailer)
		}
	}

	if cfg.SheetsEnabled() {
		spreadsheetID := sheets.ExtractSpreadsheetID(nc.SpreadsheetURL)
		if spreadsheetID == "" {
			log.Printf("Warning: Could not extract spreadsheet ID from URL: %s\n", nc.SpreadsheetURL)
			return
		}
		writer, err := sheets.NewWriter(ctx, spreadsheetID, "Listings", nc.SheetsCredentials)
		if err != nil {
			log.Printf("Warning: Google Sheets disabled: %v\n", err)
			return
		}
		log.Printf("Google Sheets writer initialized for spreadsheet: %s\n", spreadsheetID)
		pcfg.Notifiers = append(pcfg.Notifiers, writer)
	}
}

// printReport writes a short run summary to stdout
func printReport(report pipeline.Report) {
	fmt.Printf("Run %s\n", report.RunID)
	if report.Sample {
		fmt.Println("SAMPLE DATA: no live listings were scraped")
	}
	fmt.Printf("Found %d listings (%d unique)\n", report.Raw, report.Unique)
	for _, o := range []pipeline.Outcome{pipeline.Persisted, pipeline.SkippedExisting, pipeline.SkippedIrrelevant, pipeline.Failed} {
		fmt.Printf("  %-20s %d\n", o.String()+":", report.Counts[o])
	}
	fmt.Println("---")

	if len(report.Batch) == 0 {
		fmt.Println("No new listings this run.")
		return
	}
	formatRecordsConsole(report.Batch, time.Now())
}

// formatRecordsConsole formats stored records for console output
func formatRecordsConsole(batch []models.Record, now time.Time) {
	for i, r := range batch {
		fmt.Printf("\n%d. %s\n", i+1, r.Listing.Title)
		if r.Listing.URL != "" {
			fmt.Printf("   Link: %s\n", r.Listing.URL)
		}
		fmt.Printf("   Price: %s\n", r.Listing.PriceLabel())
		fmt.Printf("   Suburb: %s (%s)\n", r.Listing.Suburb, r.Listing.Source)
		fmt.Printf("   Score: %d\n", r.Analysis.Score)
		if r.Analysis.Fallback {
			fmt.Println("   Analysis: fallback")
		}
	}
	fmt.Printf("\nDone at %s\n", now.Format(time.RFC3339))
}
