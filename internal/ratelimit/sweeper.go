package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule runs the sweep once an hour
const DefaultSweepSchedule = "@every 1h"

// Sweeper periodically purges expired records from a store
type Sweeper struct {
	store    Store
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper. An empty schedule uses DefaultSweepSchedule.
func NewSweeper(store Store, schedule string, logger *zap.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.Named("ratelimit.sweeper"),
		now:      time.Now,
	}
}

// Start schedules the sweep. The sweeper stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("rate limit sweeper started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce performs a single sweep and returns the number of purged records.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	deleted, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		s.logger.Error("rate limit sweep failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("rate limit sweep completed", zap.Int("deleted", deleted))
	} else {
		s.logger.Debug("rate limit sweep completed, nothing to purge")
	}
	return deleted
}

// Stop stops the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("rate limit sweeper stopped")
}

// IsRunning returns true if the sweep is scheduled
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
