// Package scheduler runs the crawl on a cron schedule for serve mode.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled crawl
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron and never overlaps two crawls
type Scheduler struct {
	cron       *cron.Cron
	spec       string // cron spec, e.g. "@every 24h"
	job        Job
	runOnStart bool
	wrapped    cron.Job
	wg         sync.WaitGroup
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRunOnStart runs one crawl immediately instead of waiting for the first tick
func WithRunOnStart() Option {
	return func(s *Scheduler) { s.runOnStart = true }
}

// New creates a Scheduler for a standard cron spec or a descriptor such as "@every 6h"
func New(spec string, job Job, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler job is nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger := cron.DefaultLogger
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		spec: spec,
		job:  job,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the job and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.wrapped = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cron.FuncJob(func() {
		s.runCrawl(ctx)
	}))

	if _, err := s.cron.AddJob(s.spec, s.wrapped); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s\n", s.spec)

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.wrapped.Run()
		}()
	}

	return nil
}

// Stop halts the schedule and waits for a running crawl to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runCrawl(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Println("[scheduler] Crawl started")
	if err := s.job(ctx); err != nil {
		log.Printf("[scheduler] Crawl error: %v\n", err)
		return
	}
	log.Println("[scheduler] Crawl complete")
}
