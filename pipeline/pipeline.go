package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"flatshare-scraper/filter"
	"flatshare-scraper/models"
	"flatshare-scraper/notify"
	"flatshare-scraper/sources"
)

// Analyzer produces the analysis of one listing. It must not fail.
type Analyzer interface {
	Analyze(ctx context.Context, listing models.Listing) models.Analysis
}

// Store is the persistence contract. Both methods report failures as false.
type Store interface {
	ExistsByURL(ctx context.Context, url string) bool
	Upsert(ctx context.Context, listing models.Listing, analysis models.Analysis) bool
}

// Notifier delivers a batch of persisted records somewhere. Implementations
// ignore empty batches and log their own failures.
type Notifier interface {
	Notify(ctx context.Context, batch []models.Record)
}

// RunRecorder keeps a history of runs
type RunRecorder interface {
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, summary models.RunSummary) error
}

// Outcome is what happened to one listing
type Outcome int

const (
	Persisted Outcome = iota
	SkippedExisting
	SkippedIrrelevant
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Persisted:
		return "persisted"
	case SkippedExisting:
		return "skipped (already stored)"
	case SkippedIrrelevant:
		return "skipped (not relevant)"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the per-listing outcome of ProcessListing
type Result struct {
	Listing  models.Listing
	Analysis models.Analysis
	Outcome  Outcome
	Err      error
}

// Report summarises one run
type Report struct {
	RunID   string
	Sample  bool
	Raw     int
	Unique  int
	Counts  map[Outcome]int
	Results []Result
	Batch   []models.Record
}

// Summary converts the report into the counts kept in the run history
func (r Report) Summary() models.RunSummary {
	return models.RunSummary{
		RawCount:       r.Raw,
		UniqueCount:    r.Unique,
		PersistedCount: r.Counts[Persisted],
		FailedCount:    r.Counts[Failed],
		SampleData:     r.Sample,
	}
}

// Config wires a Pipeline. Chat, Notifiers and Recorder are optional.
type Config struct {
	Adapters     []sources.Adapter
	Analyzer     Analyzer
	Store        Store
	Filter       *filter.Filter
	Chat         Notifier
	Notifiers    []Notifier
	Recorder     RunRecorder
	DigestPath   string
	Limit        int
	AdapterDelay Delay
	ListingDelay Delay
}

// Pipeline runs collect, dedupe, per-listing processing and the
// notification stages, one listing at a time
type Pipeline struct {
	cfg      Config
	now      func() time.Time
	newRunID func() string
	sleep    func(context.Context, time.Duration)
}

// New creates a Pipeline. A nil Store means a dry run.
func New(cfg Config) *Pipeline {
	if cfg.Store == nil {
		cfg.Store = DryRunStore{}
	}
	if cfg.Filter == nil {
		cfg.Filter = filter.NewFilter(nil)
	}
	return &Pipeline{
		cfg:      cfg,
		now:      time.Now,
		newRunID: uuid.NewString,
		sleep:    sleepContext,
	}
}

// ProcessListing checks, analyses, filters and stores one listing. A panic
// anywhere in the step is reported as Failed.
func (p *Pipeline) ProcessListing(ctx context.Context, listing models.Listing) (res Result) {
	res = Result{Listing: listing}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("processing panicked: %v", r)
		}
	}()

	if p.cfg.Store.ExistsByURL(ctx, listing.URL) {
		res.Outcome = SkippedExisting
		return res
	}

	log.Printf("Analyzing: %s\n", listing.Title)
	res.Analysis = p.cfg.Analyzer.Analyze(ctx, listing)

	if !p.cfg.Filter.Keep(listing, res.Analysis) {
		res.Outcome = SkippedIrrelevant
		return res
	}

	if !p.cfg.Store.Upsert(ctx, listing, res.Analysis) {
		res.Outcome = Failed
		res.Err = fmt.Errorf("store rejected %s", listing.URL)
		return res
	}

	res.Outcome = Persisted
	return res
}

// Run executes one full pass. Partial failures never abort it: the
// notification stages always run, and cancellation only stops the
// per-listing loop.
func (p *Pipeline) Run(ctx context.Context) Report {
	report := Report{
		RunID:  p.newRunID(),
		Counts: make(map[Outcome]int),
	}
	log.Printf("Starting LGBTQ+ Sydney flatshare run %s\n", report.RunID)

	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.StartRun(ctx, report.RunID); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}

	raw, sample := Collect(ctx, p.cfg.Adapters, p.cfg.Limit, p.cfg.AdapterDelay, p.now())
	report.Raw = len(raw)
	report.Sample = sample

	unique := Dedupe(raw)
	report.Unique = len(unique)
	log.Printf("%d listing(s) retrieved, %d unique\n", report.Raw, report.Unique)

	for i, listing := range unique {
		if ctx.Err() != nil {
			log.Printf("Warning: run %s cancelled, %d listing(s) left unprocessed\n", report.RunID, len(unique)-i)
			break
		}

		res := p.ProcessListing(ctx, listing)
		report.Results = append(report.Results, res)
		report.Counts[res.Outcome]++

		switch res.Outcome {
		case Persisted:
			report.Batch = append(report.Batch, models.Record{Listing: res.Listing, Analysis: res.Analysis})
			// pause only after a write
			p.sleep(ctx, p.cfg.ListingDelay.Pick())
		case Failed:
			log.Printf("Warning: processing error for %s: %v\n", listing.URL, res.Err)
		}
	}

	// Deliver what was stored even if the run was interrupted
	downstream := context.WithoutCancel(ctx)
	p.deliver(downstream, report)

	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.FinishRun(downstream, report.RunID, report.Summary()); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}

	log.Printf("Done. %d listing(s) added, %d already stored, %d not relevant, %d failed.\n",
		report.Counts[Persisted], report.Counts[SkippedExisting], report.Counts[SkippedIrrelevant], report.Counts[Failed])
	return report
}

// deliver runs chat, digest, then the remaining notifiers
func (p *Pipeline) deliver(ctx context.Context, report Report) {
	if p.cfg.Chat != nil {
		p.cfg.Chat.Notify(ctx, report.Batch)
	}

	if p.cfg.DigestPath != "" {
		html, err := notify.RenderDigest(report.Batch, p.now(), report.RunID, report.Sample)
		if err != nil {
			log.Printf("Warning: %v\n", err)
		} else if err := notify.WriteDigest(p.cfg.DigestPath, html); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}

	for _, n := range p.cfg.Notifiers {
		n.Notify(ctx, report.Batch)
	}
}

// DryRunStore is used when no backend is configured: nothing is ever
// stored, and every write succeeds
type DryRunStore struct{}

// ExistsByURL implements Store
func (DryRunStore) ExistsByURL(ctx context.Context, url string) bool {
	return false
}

// Upsert implements Store
func (DryRunStore) Upsert(ctx context.Context, listing models.Listing, analysis models.Analysis) bool {
	log.Printf("Dry run: would store %s (score %d)\n", listing.URL, analysis.Score)
	return true
}
