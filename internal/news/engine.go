package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/sources"
)

// DefaultSelector is used when auto-discovery fails and the page is scraped.
const DefaultSelector = "a"

// Resolver finds the feed behind an ordinary web page.
type Resolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// FeedFetcher produces items from a feed. Category is left unset.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, src sources.Source, rc RunContext) ([]Item, error)
}

// PageScraper produces items from selector matches on a page. Category is
// left unset.
type PageScraper interface {
	Scrape(ctx context.Context, pageURL, selector string, limit int, rc RunContext) ([]Item, error)
}

// Translator localizes the display text of feed items.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Options tune the engine. Zero values pick defaults.
type Options struct {
	Workers         int
	FetchTimeout    time.Duration
	PageSize        int // 0 means unlimited
	MaxPerCategory  int
	DefaultSelector string
	// Translator is applied to feed titles and labels once the fetch has
	// finished. nil keeps the text as published.
	Translator      Translator
}

// Engine fetches every source of a registry and reduces the results into
// ranked pages.
type Engine struct {
	resolver Resolver
	feeds    FeedFetcher
	scraper  PageScraper
	opts     Options
}

// NewEngine wires the three fetch capabilities into an engine.
func NewEngine(r Resolver, f FeedFetcher, s PageScraper, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.PageSize < 0 {
		opts.PageSize = 0
	}
	if opts.DefaultSelector == "" {
		opts.DefaultSelector = DefaultSelector
	}
	return &Engine{resolver: r, feeds: f, scraper: s, opts: opts}
}

type task struct {
	category string
	position int
	source   sources.Source
}

// Aggregate runs one aggregation. It never fails: sources that error, panic
// or time out contribute zero items.
func (e *Engine) Aggregate(ctx context.Context, reg *sources.Registry, rc RunContext) []Page {
	results := e.Collect(ctx, reg, rc)

	raw := 0
	for _, r := range results {
		raw += len(r.Items)
	}

	items, stats := reduce(results, e.opts.MaxPerCategory)
	metrics.Global.AddItemsCollected(raw)
	metrics.Global.AddDuplicatesFiltered(stats.duplicates)
	metrics.Global.AddItemsCapped(stats.capped)

	logger.Info("aggregation finished",
		"sources", len(results),
		"raw_items", raw,
		"duplicates", stats.duplicates,
		"capped", stats.capped,
		"ranked_items", len(items))

	return Paginate(items, e.opts.PageSize)
}

// Collect fetches all sources over the worker pool and returns one result
// per source, in registry order. It returns only after every task has
// finished or timed out.
func (e *Engine) Collect(ctx context.Context, reg *sources.Registry, rc RunContext) []SourceResult {
	if reg == nil {
		return nil
	}

	var tasks []task
	for _, cat := range reg.Categories {
		for _, src := range cat.Sources {
			tasks = append(tasks, task{category: cat.Name, position: len(tasks), source: src})
		}
	}

	results := make([]SourceResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for i, t := range tasks {
		g.Go(func() error {
			results[i] = e.fetchSource(ctx, t, rc)
			return nil // errors stay per source
		})
	}
	_ = g.Wait()

	return results
}

// fetchSource runs one source under the per-fetch timeout. A fetch that does
// not honour its context is abandoned once the deadline passes. Feed items
// are then localized under ctx alone, so a slow translator never turns a
// fetched feed into a failure.
func (e *Engine) fetchSource(ctx context.Context, t task, rc RunContext) SourceResult {
	res := SourceResult{Category: t.category, Position: t.position}

	if ctx.Err() != nil {
		res.Err = fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		e.report(t, res)
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	type outcome struct {
		items    []Item
		localize bool
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic while fetching: %v", r)}
			}
		}()
		items, localize, err := e.dispatch(fetchCtx, t.source, rc)
		done <- outcome{items: items, localize: localize, err: err}
	}()

	select {
	case out := <-done:
		res.Items, res.Err = out.items, out.err
		if res.Err != nil && fetchCtx.Err() != nil && !errors.Is(res.Err, ErrTransport) {
			res.Err = fmt.Errorf("%w: %s: %w", ErrTransport, t.source.URL, res.Err)
		}
		if res.Err == nil && out.localize {
			res.Items = e.localize(ctx, res.Items)
		}
	case <-fetchCtx.Done():
		res.Err = fmt.Errorf("%w: %s: %v", ErrTransport, t.source.URL, fetchCtx.Err())
	}

	if res.Err != nil {
		res.Items = nil
	}
	e.report(t, res)
	return res
}

// localize returns a copy of items with translated titles and source labels.
// Text the translator cannot handle before ctx ends is kept as published.
func (e *Engine) localize(ctx context.Context, items []Item) []Item {
	if e.opts.Translator == nil || len(items) == 0 {
		return items
	}

	out := make([]Item, len(items))
	labels := make(map[string]string)
	for i, it := range items {
		label, ok := labels[it.Source]
		if !ok {
			label = e.translateOrKeep(ctx, it.Source)
			labels[it.Source] = label
		}
		it.Source = label
		it.Title = e.translateOrKeep(ctx, it.Title)
		out[i] = it
	}
	return out
}

func (e *Engine) translateOrKeep(ctx context.Context, text string) string {
	out, err := e.opts.Translator.Translate(ctx, text)
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			logger.Debug("keeping untranslated text", "text", text, "error", err)
		}
		return text
	}
	return out
}

func (e *Engine) report(t task, res SourceResult) {
	if res.Err != nil {
		metrics.Global.RecordSource(false)
		logger.Warn("source failed",
			"category", t.category,
			"source", t.source.Label(),
			"kind", t.source.Kind,
			"url", t.source.URL,
			"error", res.Err)
		return
	}
	metrics.Global.RecordSource(true)
	logger.Debug("source fetched",
		"category", t.category,
		"source", t.source.Label(),
		"kind", t.source.Kind,
		"url", t.source.URL,
		"items", len(res.Items))
}

// dispatch picks the fetch path for a source kind and reports whether the
// items came from a feed. Auto-discovery that finds no feed falls back to
// scraping the original page.
func (e *Engine) dispatch(ctx context.Context, src sources.Source, rc RunContext) ([]Item, bool, error) {
	switch src.Kind {
	case sources.KindFeed, "":
		items, err := e.feeds.FetchFeed(ctx, src, rc)
		return items, true, err

	case sources.KindAuto:
		feedURL, err := e.resolver.Resolve(ctx, src.URL)
		if err != nil {
			logger.Debug("auto-discovery found no feed, scraping page",
				"url", src.URL, "error", err)
			selector := src.Selector
			if selector == "" {
				selector = e.opts.DefaultSelector
			}
			items, err := e.scraper.Scrape(ctx, src.URL, selector, src.Limit, rc)
			return items, false, err
		}
		resolved := src
		resolved.URL = feedURL
		resolved.Kind = sources.KindFeed
		items, err := e.feeds.FetchFeed(ctx, resolved, rc)
		return items, true, err

	case sources.KindScrape:
		items, err := e.scraper.Scrape(ctx, src.URL, src.Selector, src.Limit, rc)
		return items, false, err

	default:
		return nil, false, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}
