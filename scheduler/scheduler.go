package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"flatshare-scraper/pipeline"
)

// Runner is one full pipeline pass
type Runner interface {
	Run(ctx context.Context) pipeline.Report
}

// Scheduler runs the pipeline immediately and then once per interval. Runs
// never overlap: a pass that outlasts the interval delays the next tick.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler bound to parent
func NewScheduler(parent context.Context, runner Runner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduler and waits for the current run to return
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

// Wait blocks until the parent context is done and the loop has exited
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	if s.ctx.Err() != nil {
		return
	}
	report := s.runner.Run(s.ctx)
	log.Printf("Run %s finished, next run in %s\n", report.RunID, s.interval)
}
