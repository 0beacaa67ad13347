package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/sources"
)

var errNoFeed = errors.New("no feed")

type fakeResolver struct {
	feeds map[string]string
}

func (f fakeResolver) Resolve(_ context.Context, pageURL string) (string, error) {
	if u, ok := f.feeds[pageURL]; ok {
		return u, nil
	}
	return "", errNoFeed
}

// fakeFeeds serves canned items per URL. URLs listed in block wait for the
// context to end; URLs in panics panic.
type fakeFeeds struct {
	mu     sync.Mutex
	items  map[string][]Item
	block  map[string]bool
	panics map[string]bool
	calls  []sources.Source
}

func (f *fakeFeeds) FetchFeed(ctx context.Context, src sources.Source, _ RunContext) ([]Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()

	if f.panics[src.URL] {
		panic("boom")
	}
	if f.block[src.URL] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items[src.URL], nil
}

type scrapeCall struct {
	url, selector string
	limit         int
}

type fakeScraper struct {
	mu    sync.Mutex
	items map[string][]Item
	calls []scrapeCall
}

func (f *fakeScraper) Scrape(_ context.Context, pageURL, selector string, limit int, _ RunContext) ([]Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, scrapeCall{pageURL, selector, limit})
	f.mu.Unlock()
	if items, ok := f.items[pageURL]; ok {
		return items, nil
	}
	return nil, fmt.Errorf("%w: not found", ErrTransport)
}

// prefixTranslator marks translated text and fails on text containing fail.
type prefixTranslator struct {
	fail string
}

func (p prefixTranslator) Translate(_ context.Context, text string) (string, error) {
	if p.fail != "" && strings.Contains(text, p.fail) {
		return "", ErrTranslation
	}
	return "IT:" + text, nil
}

func makeItems(prefix string, n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{
			Title:     fmt.Sprintf("%s %d", prefix, i),
			Link:      fmt.Sprintf("https://%s.example.com/%d", prefix, i),
			Published: base.Add(-time.Duration(i) * time.Minute),
			Source:    prefix,
		}
	}
	return out
}

func registry(cats ...sources.Category) *sources.Registry {
	return &sources.Registry{Categories: cats}
}

func TestAggregateDegradesGracefullyOnTimeout(t *testing.T) {
	feeds := &fakeFeeds{
		items: map[string][]Item{
			"https://five.example.com/feed":  makeItems("five", 5),
			"https://seven.example.com/feed": makeItems("seven", 7),
		},
		block: map[string]bool{"https://slow.example.com/feed": true},
	}
	engine := NewEngine(fakeResolver{}, feeds, &fakeScraper{}, Options{
		Workers:      3,
		FetchTimeout: 50 * time.Millisecond,
		PageSize:     20,
	})

	reg := registry(sources.Category{Name: "news", Sources: []sources.Source{
		{Kind: sources.KindFeed, URL: "https://slow.example.com/feed"},
		{Kind: sources.KindFeed, URL: "https://five.example.com/feed"},
		{Kind: sources.KindFeed, URL: "https://seven.example.com/feed"},
	}})

	pages := engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, 24*time.Hour))

	require.Len(t, pages, 1)
	assert.Len(t, pages[0], 12)
}

func TestCollectReportsPerSourceErrors(t *testing.T) {
	feeds := &fakeFeeds{
		items:  map[string][]Item{"https://ok.example.com/feed": makeItems("ok", 2)},
		block:  map[string]bool{"https://slow.example.com/feed": true},
		panics: map[string]bool{"https://panic.example.com/feed": true},
	}
	engine := NewEngine(fakeResolver{}, feeds, &fakeScraper{}, Options{FetchTimeout: 30 * time.Millisecond})

	reg := registry(
		sources.Category{Name: "a", Sources: []sources.Source{
			{Kind: sources.KindFeed, URL: "https://slow.example.com/feed"},
			{Kind: sources.KindFeed, URL: "https://panic.example.com/feed"},
		}},
		sources.Category{Name: "b", Sources: []sources.Source{
			{Kind: sources.KindFeed, URL: "https://ok.example.com/feed"},
		}},
	)

	results := engine.Collect(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Category)
	assert.Equal(t, 0, results[0].Position)
	assert.ErrorIs(t, results[0].Err, ErrTransport)
	assert.Empty(t, results[0].Items)

	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Items)

	assert.Equal(t, "b", results[2].Category)
	assert.Equal(t, 2, results[2].Position)
	assert.NoError(t, results[2].Err)
	assert.Len(t, results[2].Items, 2)
}

func TestAggregateAllSourcesFail(t *testing.T) {
	engine := NewEngine(fakeResolver{}, &fakeFeeds{}, &fakeScraper{}, Options{})
	reg := registry(sources.Category{Name: "a", Sources: []sources.Source{
		{Kind: sources.KindScrape, URL: "https://down.example.com/", Selector: "a"},
	}})

	pages := engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))
	assert.Empty(t, pages)
}

func TestAggregateEmptyRegistry(t *testing.T) {
	engine := NewEngine(fakeResolver{}, &fakeFeeds{}, &fakeScraper{}, Options{})
	assert.Empty(t, engine.Aggregate(context.Background(), registry(), NewRunContext(base, time.UTC, time.Hour)))
	assert.Empty(t, engine.Aggregate(context.Background(), nil, NewRunContext(base, time.UTC, time.Hour)))
}

func TestDispatchAutoDiscoverUsesResolvedFeed(t *testing.T) {
	feeds := &fakeFeeds{items: map[string][]Item{
		"https://site.example.com/rss.xml": makeItems("site", 3),
	}}
	scraper := &fakeScraper{}
	engine := NewEngine(
		fakeResolver{feeds: map[string]string{"https://site.example.com/": "https://site.example.com/rss.xml"}},
		feeds, scraper, Options{})

	reg := registry(sources.Category{Name: "finanza", Sources: []sources.Source{
		{Kind: sources.KindAuto, URL: "https://site.example.com/", Name: "Site"},
	}})

	pages := engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))

	require.Len(t, pages, 1)
	assert.Len(t, pages[0], 3)
	require.Len(t, feeds.calls, 1)
	assert.Equal(t, "https://site.example.com/rss.xml", feeds.calls[0].URL)
	assert.Equal(t, "Site", feeds.calls[0].Name)
	assert.Empty(t, scraper.calls)
}

func TestDispatchAutoDiscoverFallsBackToScrape(t *testing.T) {
	scraper := &fakeScraper{items: map[string][]Item{
		"https://plain.example.com/": makeItems("plain", 4),
	}}
	feeds := &fakeFeeds{}
	engine := NewEngine(fakeResolver{}, feeds, scraper, Options{})

	reg := registry(sources.Category{Name: "x", Sources: []sources.Source{
		{Kind: sources.KindAuto, URL: "https://plain.example.com/"},
	}})

	pages := engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))

	require.Len(t, pages, 1)
	assert.Len(t, pages[0], 4)
	assert.Empty(t, feeds.calls)
	require.Len(t, scraper.calls, 1)
	assert.Equal(t, scrapeCall{"https://plain.example.com/", DefaultSelector, 0}, scraper.calls[0])
}

func TestDispatchScrapeUsesSourceSelector(t *testing.T) {
	scraper := &fakeScraper{items: map[string][]Item{
		"https://page.example.com/": makeItems("page", 2),
	}}
	engine := NewEngine(fakeResolver{}, &fakeFeeds{}, scraper, Options{})

	reg := registry(sources.Category{Name: "x", Sources: []sources.Source{
		{Kind: sources.KindScrape, URL: "https://page.example.com/", Selector: "h2 a", Limit: 5},
	}})

	engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))

	require.Len(t, scraper.calls, 1)
	assert.Equal(t, scrapeCall{"https://page.example.com/", "h2 a", 5}, scraper.calls[0])
}

func TestAggregateRespectsOverallDeadline(t *testing.T) {
	feeds := &fakeFeeds{
		items: map[string][]Item{"https://fast.example.com/feed": makeItems("fast", 1)},
		block: map[string]bool{
			"https://slow1.example.com/feed": true,
			"https://slow2.example.com/feed": true,
		},
	}
	engine := NewEngine(fakeResolver{}, feeds, &fakeScraper{}, Options{FetchTimeout: time.Minute})

	reg := registry(sources.Category{Name: "a", Sources: []sources.Source{
		{Kind: sources.KindFeed, URL: "https://slow1.example.com/feed"},
		{Kind: sources.KindFeed, URL: "https://fast.example.com/feed"},
		{Kind: sources.KindFeed, URL: "https://slow2.example.com/feed"},
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	pages := engine.Aggregate(ctx, reg, NewRunContext(base, time.UTC, time.Hour))

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, pages, 1)
	assert.Len(t, pages[0], 1)
}

func TestAggregateRanksAcrossCategories(t *testing.T) {
	shared := Item{Title: "shared", Link: "https://x.example.com/shared", Published: base.Add(-time.Hour)}
	fresh := Item{Title: "fresh", Link: "https://x.example.com/fresh", Published: base}
	sameTime := Item{Title: "same", Link: "https://x.example.com/same", Published: base.Add(-time.Hour)}

	feeds := &fakeFeeds{items: map[string][]Item{
		"https://a.example.com/feed": {sameTime, shared},
		"https://b.example.com/feed": {shared, fresh},
	}}
	engine := NewEngine(fakeResolver{}, feeds, &fakeScraper{}, Options{PageSize: 2})

	reg := registry(
		sources.Category{Name: "one", Sources: []sources.Source{{Kind: sources.KindFeed, URL: "https://a.example.com/feed"}}},
		sources.Category{Name: "two", Sources: []sources.Source{{Kind: sources.KindFeed, URL: "https://b.example.com/feed"}}},
	)

	pages := engine.Aggregate(context.Background(), reg, NewRunContext(base, time.UTC, 24*time.Hour))

	require.Len(t, pages, 2)
	assert.Equal(t, []string{fresh.Link, shared.Link}, links(pages[0]))
	assert.Equal(t, []string{sameTime.Link}, links(pages[1]))
	assert.Equal(t, 2, pages[0][1].Count)
	assert.Equal(t, "one", pages[0][1].Category)
	assert.Equal(t, "two", pages[0][0].Category)
}

func TestAggregateTranslatesFeedItemsOnly(t *testing.T) {
	fixture := makeItems("feed", 3)
	feeds := &fakeFeeds{items: map[string][]Item{"https://feed.example.com/rss": fixture}}
	scraper := &fakeScraper{items: map[string][]Item{"https://page.example.com/": makeItems("page", 2)}}
	engine := NewEngine(fakeResolver{}, feeds, scraper, Options{
		Translator: prefixTranslator{fail: "feed 1"},
	})

	reg := registry(sources.Category{Name: "x", Sources: []sources.Source{
		{Kind: sources.KindFeed, URL: "https://feed.example.com/rss"},
		{Kind: sources.KindScrape, URL: "https://page.example.com/", Selector: "a"},
	}})

	results := engine.Collect(context.Background(), reg, NewRunContext(base, time.UTC, time.Hour))
	require.Len(t, results, 2)

	feedItems := results[0].Items
	require.Len(t, feedItems, 3)
	assert.Equal(t, "IT:feed 0", feedItems[0].Title)
	assert.Equal(t, "feed 1", feedItems[1].Title, "a failed translation keeps the published text")
	assert.Equal(t, "IT:feed 2", feedItems[2].Title)
	assert.Equal(t, "IT:feed", feedItems[0].Source)

	for _, it := range results[1].Items {
		assert.False(t, strings.HasPrefix(it.Title, "IT:"), "scraped items are not translated")
	}
	assert.Equal(t, "feed 0", fixture[0].Title, "fetched items are copied before translation")
}
