package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget(t *testing.T) {
	l := New(0, 4, 2)

	for i := 0; i < 2; i++ {
		release, err := l.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}

	_, err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrBudgetExceeded)

	stats := l.GetStats()
	assert.Equal(t, 2, stats["used"])
	assert.Equal(t, 1, stats["rejected"])

	l.Reset()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestUnlimitedBudget(t *testing.T) {
	l := New(0, 1, 0)
	for i := 0; i < 50; i++ {
		release, err := l.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 50, l.GetStats()["used"])
}

func TestConcurrencyCap(t *testing.T) {
	l := New(0, 2, 0)

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if err != nil {
				return
			}
			defer release()

			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestAcquireHonoursContext(t *testing.T) {
	l := New(0, 1, 1)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	l.Reset()
	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// a cancelled wait does not consume budget
	assert.Equal(t, 0, l.GetStats()["used"])
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := New(0, 1, 0)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release()

	release, err = l.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestCacheHitRate(t *testing.T) {
	l := New(0, 1, 0)
	l.RecordCacheHit()
	l.RecordCacheHit()
	l.RecordCacheHit()
	l.RecordCacheMiss()

	stats := l.GetStats()
	assert.Equal(t, 3, stats["cache_hits"])
	assert.InDelta(t, 75.0, stats["cache_hit_rate"], 0.001)
}
