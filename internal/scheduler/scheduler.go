// Package scheduler wires up the cron jobs that periodically ingest new
// offers and rescore the stored ones.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Cycle is one unit of periodic work.
type Cycle struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// ErrCycleRunning is returned when a cycle is triggered while its previous
// run is still going.
var ErrCycleRunning = errors.New("cycle already running")

// Scheduler wraps robfig/cron. A cycle never overlaps with itself.
type Scheduler struct {
	cron   *cron.Cron
	cycles []*entry
	log    *slog.Logger
}

type entry struct {
	Cycle
	running sync.Mutex
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		log:  logger,
	}
}

// Add registers a cycle. It must be called before Start.
func (s *Scheduler) Add(c Cycle) error {
	if c.Every <= 0 {
		return fmt.Errorf("cycle %s: interval must be positive", c.Name)
	}
	if c.Run == nil {
		return fmt.Errorf("cycle %s: no run function", c.Name)
	}
	s.cycles = append(s.cycles, &entry{Cycle: c})
	return nil
}

// Start registers every cycle with cron and starts it. Each cycle also runs
// once immediately so the store is populated without waiting for the first
// tick.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, c := range s.cycles {
		c := c
		schedule := "@every " + c.Every.String()
		job := cron.FuncJob(func() { s.run(ctx, c) })
		if _, err := s.cron.AddJob(schedule, job); err != nil {
			return fmt.Errorf("cron.AddJob(%s): %w", c.Name, err)
		}
		s.log.Info("cycle scheduled", "cycle", c.Name, "schedule", schedule)
	}

	s.cron.Start()

	for _, c := range s.cycles {
		go s.run(ctx, c)
	}
	return nil
}

// Stop halts the scheduler and waits for running cycles to finish or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", "err", ctx.Err())
	}
}

// RunNow executes a cycle synchronously, outside the cron schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, c := range s.cycles {
		if c.Name == name {
			return s.run(ctx, c)
		}
	}
	return fmt.Errorf("unknown cycle %q", name)
}

func (s *Scheduler) run(ctx context.Context, c *entry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log := s.log.With("cycle", c.Name, "cycle_id", uuid.NewString())
	if !c.running.TryLock() {
		log.Warn("previous run still in progress, skipping")
		return ErrCycleRunning
	}
	defer c.running.Unlock()

	start := time.Now()
	log.Info("cycle started")

	if err := c.Run(ctx); err != nil {
		log.Error("cycle failed", "err", err, "elapsed", time.Since(start))
		return err
	}
	log.Info("cycle complete", "elapsed", time.Since(start))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
