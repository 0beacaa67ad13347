// Package rss fetches syndication feeds and turns their entries into news
// items.
package rss

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/atom"

	"github.com/deusflow/newsdigest/internal/httpclient"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/news"
	"github.com/deusflow/newsdigest/internal/sources"
)

var (
	strict     *bluemonday.Policy
	strictOnce sync.Once

	// a closed tag: "<em>", "</p>", "<br/>", "<a href=...>"
	tagPattern = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9]*)(?:\s[^<>]*)?/?>`)
)

func stripPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Fetcher downloads feeds and normalizes their entries.
type Fetcher struct {
	client *httpclient.Client
}

func NewFetcher(client *httpclient.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchFeed downloads src.URL and returns one item per entry published inside
// the run's recency window. Entries without a date are stamped with rc.Now.
// Titles and labels are returned untranslated and Category is left unset.
func (f *Fetcher) FetchFeed(ctx context.Context, src sources.Source, rc news.RunContext) ([]news.Item, error) {
	body, err := f.client.Get(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: feed %s: %v", news.ErrParse, src.URL, err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad feed url %s: %v", news.ErrParse, src.URL, err)
	}

	label := sourceLabel(src, feed)

	items := make([]news.Item, 0, len(feed.Items))
	skipped := 0
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		published := entryTime(entry, rc)
		if !rc.InWindow(published) {
			skipped++
			continue
		}

		link, ok := news.AbsoluteLink(base, entryLink(entry))
		if !ok {
			skipped++
			continue
		}

		title := CleanTitle(entry.Title)
		if title == "" {
			skipped++
			continue
		}

		items = append(items, news.Item{
			Title:     title,
			Link:      link,
			Published: published,
			Source:    label,
		})
	}

	logger.Debug("feed fetched",
		"url", src.URL,
		"entries", len(feed.Items),
		"items", len(items),
		"skipped", skipped)
	return items, nil
}

// sourceLabel prefers the configured name, then the feed title, then the URL.
func sourceLabel(src sources.Source, feed *gofeed.Feed) string {
	if name := strings.TrimSpace(src.Name); name != "" {
		return name
	}
	if title := CleanTitle(feed.Title); title != "" {
		return title
	}
	return src.URL
}

// CleanTitle decodes HTML entities and collapses whitespace. Markup is
// stripped only when the title holds real HTML elements, so a bare "<" in
// plain text survives.
func CleanTitle(s string) string {
	if hasMarkup(s) {
		s = stripPolicy().Sanitize(s)
	}
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func hasMarkup(s string) bool {
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		if atom.Lookup([]byte(strings.ToLower(m[1]))) != 0 {
			return true
		}
	}
	return false
}

// entryTime returns the published or updated instant in the run's zone, or
// the run's current time when the entry carries neither.
func entryTime(entry *gofeed.Item, rc news.RunContext) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.In(rc.Location)
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.In(rc.Location)
	default:
		return rc.Now
	}
}

func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if len(entry.Links) > 0 {
		return entry.Links[0]
	}
	return ""
}
