package service

import (
	"context"
	"fmt"
	"time"

	"bb-fantasy/pkg/logger"

	"github.com/robfig/cron/v3"
)

// rateLimitIdle is how long an in-process rate limit bucket may sit unused
// before the sweeper drops it
const rateLimitIdle = 10 * time.Minute

// Sweeper deletes expired sessions and verification tokens
type Sweeper interface {
	SweepExpired(ctx context.Context) (sessions, tokens int64, err error)
}

// Scheduler runs periodic housekeeping jobs
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	limiter  *RateLimiter
	schedule string
	logger   *logger.Logger
}

// NewScheduler creates a scheduler running the sweep on schedule, a standard
// cron spec or descriptor such as "@hourly". limiter may be nil.
func NewScheduler(schedule string, sweeper Sweeper, limiter *RateLimiter, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper:  sweeper,
		limiter:  limiter,
		schedule: schedule,
		logger:   logger.Named("scheduler"),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running job, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

// Sweep runs one housekeeping pass
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()

	// In-process buckets do not depend on the database
	buckets := 0
	if s.limiter != nil {
		buckets = s.limiter.Prune(rateLimitIdle)
	}

	sessions, tokens, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("buckets", buckets).Error("Failed to sweep expired sessions")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"sessions":    sessions,
		"tokens":      tokens,
		"buckets":     buckets,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Expired records swept")
}
