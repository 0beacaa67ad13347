package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/news"
	"github.com/deusflow/newsdigest/internal/ratelimit"
)

// Gateway is the process-wide entry point to a translation backend. It is
// safe for concurrent use: calls are served from the cache when possible and
// otherwise go through the limiter, whose concurrency cap is distinct from
// the fetch pool.
type Gateway struct {
	backend Translator
	limiter *ratelimit.Limiter
	cache   *cache.Cache[string]
	target  string
}

// NewGateway wraps backend. cache may be nil.
func NewGateway(backend Translator, limiter *ratelimit.Limiter, c *cache.Cache[string], target string) *Gateway {
	return &Gateway{backend: backend, limiter: limiter, cache: c, target: target}
}

// Translate returns the translation of text. On failure it returns text
// itself together with an error wrapping news.ErrTranslation, so callers can
// pass it through.
func (g *Gateway) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	key := cache.GenerateKey(g.target, text)
	if g.cache != nil {
		if v, ok := g.cache.Get(key); ok {
			g.limiter.RecordCacheHit()
			metrics.Global.IncrementCachedTranslations()
			return v, nil
		}
		g.limiter.RecordCacheMiss()
	}

	release, err := g.limiter.Acquire(ctx)
	if err != nil {
		metrics.Global.IncrementFailedTranslations()
		return text, fmt.Errorf("%w: %w", news.ErrTranslation, err)
	}
	defer release()

	out, err := g.backend.Translate(ctx, text)
	if err != nil {
		metrics.Global.IncrementFailedTranslations()
		return text, fmt.Errorf("%w: %w", news.ErrTranslation, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		metrics.Global.IncrementFailedTranslations()
		return text, fmt.Errorf("%w: empty answer", news.ErrTranslation)
	}

	if g.cache != nil {
		g.cache.Set(key, out)
	}
	metrics.Global.IncrementSuccessfulTranslations()
	return out, nil
}

// Stats exposes the limiter counters and the number of cached answers.
func (g *Gateway) Stats() map[string]interface{} {
	stats := g.limiter.GetStats()
	if g.cache != nil {
		stats["cache_entries"] = g.cache.Len()
	}
	return stats
}

// StartRun resets the per-run translation budget.
func (g *Gateway) StartRun() {
	g.limiter.Reset()
}
