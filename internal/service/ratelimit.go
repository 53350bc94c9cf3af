package service

import (
	"context"
	"sync"
	"time"

	"bb-fantasy/pkg/redis"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limit is a fixed-window request budget
type Limit struct {
	Requests int
	Window   time.Duration
}

// Route budgets, per client
var (
	LimitMeGet       = Limit{Requests: 30, Window: time.Minute}
	LimitMeWrite     = Limit{Requests: 5, Window: time.Minute}
	LimitPicks       = Limit{Requests: 3, Window: time.Minute}
	LimitWeekCreate  = Limit{Requests: 5, Window: time.Minute}
	LimitWeekUpdate  = Limit{Requests: 10, Window: time.Minute}
	LimitEmailSignIn = Limit{Requests: 5, Window: time.Minute}
)

// RateLimitResult describes the outcome of one check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// RateLimiter counts requests per route and client in Redis, and falls back
// to in-process token buckets when Redis is absent or failing.
type RateLimiter struct {
	redis  *redis.Client
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. redisClient may be nil.
func NewRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		redis:   redisClient,
		logger:  logger,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow records one request and reports whether it fits the budget
func (l *RateLimiter) Allow(ctx context.Context, route, clientID string, limit Limit) *RateLimitResult {
	if l.redis != nil {
		result, err := l.allowRedis(ctx, route, clientID, limit)
		if err == nil {
			return result
		}
		l.logger.Warn("Rate limit store unavailable, using in-process limiter",
			zap.String("route", route),
			zap.Error(err))
	}
	return l.allowLocal(route, clientID, limit)
}

func (l *RateLimiter) allowRedis(ctx context.Context, route, clientID string, limit Limit) (*RateLimitResult, error) {
	key := l.redis.KeyBuilder.KeyRateLimit(route, clientID)

	count, err := l.redis.Incr(ctx, key)
	if err != nil {
		return nil, err
	}

	// Set expiry on first request
	if count == 1 {
		if err := l.redis.Expire(ctx, key, limit.Window); err != nil {
			l.logger.Warn("Failed to set rate limit key expiry", zap.Error(err))
		}
	}

	ttl, err := l.redis.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		// Key lost its expiry; reset it so the client is not locked out forever
		ttl = limit.Window
		_ = l.redis.Expire(ctx, key, ttl)
	}

	result := &RateLimitResult{
		Allowed:   count <= int64(limit.Requests),
		Limit:     limit.Requests,
		Remaining: limit.Requests - int(count),
		Reset:     l.now().Add(ttl),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = ttl
	}
	return result, nil
}

func (l *RateLimiter) allowLocal(route, clientID string, limit Limit) *RateLimitResult {
	now := l.now()
	key := route + ":" + clientID

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		every := limit.Window / time.Duration(limit.Requests)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), limit.Requests)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	result := &RateLimitResult{Limit: limit.Requests}

	reservation := b.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		result.RetryAfter = delay
		result.Reset = now.Add(delay)
		return result
	}

	result.Allowed = true
	tokens := b.limiter.TokensAt(now)
	if tokens > 0 {
		result.Remaining = int(tokens)
	}
	missing := float64(limit.Requests) - tokens
	result.Reset = now.Add(time.Duration(missing * float64(limit.Window) / float64(limit.Requests)))
	return result
}

// Prune drops in-process buckets idle for longer than idle
func (l *RateLimiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
