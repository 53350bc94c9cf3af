package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"bb-fantasy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpired(ctx context.Context) (int64, int64, error) {
	s.calls.Add(1)
	return 2, 1, s.err
}

func TestScheduler_Sweep(t *testing.T) {
	sweeper := &countingSweeper{}
	limiter := NewRateLimiter(nil, nil)
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	limiter.Allow(context.Background(), "me", "client", LimitMeGet)

	s := NewScheduler("@hourly", sweeper, limiter, logger.NewNop())

	limiter.now = func() time.Time { return base.Add(time.Hour) }
	s.Sweep()

	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Equal(t, 0, limiter.Prune(0))
}

func TestScheduler_SweepError(t *testing.T) {
	sweeper := &countingSweeper{err: assert.AnError}
	s := NewScheduler("@hourly", sweeper, nil, logger.NewNop())

	assert.NotPanics(t, s.Sweep)
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestScheduler_SweepErrorStillPrunes(t *testing.T) {
	sweeper := &countingSweeper{err: assert.AnError}
	limiter := NewRateLimiter(nil, nil)
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	limiter.Allow(context.Background(), "me", "client", LimitMeGet)

	s := NewScheduler("@hourly", sweeper, limiter, logger.NewNop())

	limiter.now = func() time.Time { return base.Add(time.Hour) }
	s.Sweep()

	assert.Equal(t, int32(1), sweeper.calls.Load())
	assert.Equal(t, 0, limiter.Prune(0))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler("@every 1h", &countingSweeper{}, nil, logger.NewNop())
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler("not a schedule", &countingSweeper{}, nil, logger.NewNop())
	assert.Error(t, s.Start())
}
