// Package scheduler runs jobs on a cron schedule in a configured timezone.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // timezone lookups in minimal containers

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/marketbrief/internal/config"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner holding a single job.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	spec     string
	timeout  time.Duration
	logger   arbor.ILogger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool
}

// New creates a scheduler for cfg.Cron in cfg.Timezone. timeout bounds each
// run; zero means unbounded.
func New(cfg config.ScheduleConfig, timeout time.Duration, logger arbor.ILogger) (*Scheduler, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", cfg.Cron, err)
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		location: loc,
		spec:     cfg.Cron,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Schedule installs job, replacing any previously scheduled job.
func (s *Scheduler) Schedule(name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	id, err := s.cron.AddFunc(s.spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	s.entryID = id

	s.logger.Info().
		Str("job", name).
		Str("cron", s.spec).
		Str("timezone", s.location.String()).
		Msg("Job scheduled")
	return nil
}

// Next returns the next activation time, or the zero time if nothing is
// scheduled or the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// NextAfter returns the first activation strictly after t.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	sched, err := cron.ParseStandard(s.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.In(s.location))
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the scheduler and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.started = false
	return s.cron.Stop()
}

func (s *Scheduler) run(name string, job Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", name).Msgf("Job panicked: %v", r)
		}
	}()

	if err := job(ctx); err != nil {
		s.logger.Error().
			Str("job", name).
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Err(err).
			Msg("Scheduled job failed")
		return
	}
	s.logger.Info().
		Str("job", name).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Scheduled job finished")
}
