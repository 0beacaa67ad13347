package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/deusflow/newsdigest/internal/logger"
)

// ErrBudgetExceeded is returned once the per-run call budget is spent.
var ErrBudgetExceeded = errors.New("call budget exceeded")

// Limiter guards a shared backend: a request rate, a cap on calls in
// flight, and an optional number of calls allowed per run.
type Limiter struct {
	rate *rate.Limiter
	sem  *semaphore.Weighted

	mu          sync.Mutex
	maxPerRun   int
	used        int
	rejected    int
	cacheHits   int
	cacheMisses int
	concurrency int
}

// New creates a limiter. rps <= 0 disables rate limiting, concurrency <= 0
// means 1 and maxPerRun <= 0 means unlimited.
func New(rps float64, concurrency, maxPerRun int) *Limiter {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Limiter{
		rate:        rate.NewLimiter(limit, burst),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		maxPerRun:   maxPerRun,
		concurrency: concurrency,
	}
}

// Acquire reserves one call. The returned release must be called when the
// call is done. It blocks on the concurrency cap and the rate, and fails
// immediately when the run budget is spent.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	if l.maxPerRun > 0 && l.used >= l.maxPerRun {
		l.rejected++
		l.mu.Unlock()
		return nil, fmt.Errorf("%w (%d/%d)", ErrBudgetExceeded, l.used, l.maxPerRun)
	}
	l.used++
	l.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.refund()
		return nil, err
	}
	if err := l.rate.Wait(ctx); err != nil {
		l.sem.Release(1)
		l.refund()
		return nil, err
	}

	var once sync.Once
	return func() { once.Do(func() { l.sem.Release(1) }) }, nil
}

func (l *Limiter) refund() {
	l.mu.Lock()
	l.used--
	l.mu.Unlock()
}

// RecordCacheHit and RecordCacheMiss track how many calls a cache in front of
// the limiter saved.
func (l *Limiter) RecordCacheHit() {
	l.mu.Lock()
	l.cacheHits++
	l.mu.Unlock()
}

func (l *Limiter) RecordCacheMiss() {
	l.mu.Lock()
	l.cacheMisses++
	l.mu.Unlock()
}

// Reset starts a new run budget. Cache counters are kept.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used = 0
	l.rejected = 0
}

func (l *Limiter) cacheHitRate() float64 {
	total := l.cacheHits + l.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(l.cacheHits) / float64(total) * 100
}

// GetStats returns current limiter statistics
func (l *Limiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"used":           l.used,
		"limit":          l.maxPerRun,
		"rejected":       l.rejected,
		"concurrency":    l.concurrency,
		"cache_hits":     l.cacheHits,
		"cache_misses":   l.cacheMisses,
		"cache_hit_rate": l.cacheHitRate(),
	}
}

// PrintStats logs current statistics
func (l *Limiter) PrintStats() {
	stats := l.GetStats()
	logger.Info("translation limiter stats",
		"used", stats["used"],
		"limit", stats["limit"],
		"rejected", stats["rejected"],
		"cache_hits", stats["cache_hits"],
		"cache_misses", stats["cache_misses"],
		"cache_hit_rate", stats["cache_hit_rate"])
}
