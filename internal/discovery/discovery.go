// Package discovery finds the RSS or Atom feed behind an ordinary web page.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsdigest/internal/httpclient"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/scraper"
)

// ErrNotFound is returned when a page advertises no feed and is not a feed
// itself.
var ErrNotFound = errors.New("no feed found")

// Resolver performs a single GET per page and inspects the result.
type Resolver struct {
	client  *httpclient.Client
	timeout time.Duration
}

// New creates a resolver. timeout bounds the whole resolution, 0 means 10s.
func New(client *httpclient.Client, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{client: client, timeout: timeout}
}

// Resolve returns the absolute feed URL for pageURL. The first
// <link rel="alternate"> whose type mentions rss or atom wins; otherwise the
// page itself is tried as a feed and, if it has entries, pageURL is returned.
// Any failure, including transport errors, yields ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	doc, body, err := scraper.FetchDocument(ctx, r.client, pageURL)
	if body == nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if doc != nil {
		if feedURL, ok := FindFeedLink(doc, base); ok {
			logger.Debug("feed advertised by page", "page", pageURL, "feed", feedURL)
			return feedURL, nil
		}
	}

	feed, perr := gofeed.NewParser().Parse(bytes.NewReader(body))
	if perr == nil && len(feed.Items) > 0 {
		logger.Debug("page is a feed", "page", pageURL)
		return pageURL, nil
	}

	return "", ErrNotFound
}

// FindFeedLink scans the document for an alternate link to an RSS or Atom
// feed and resolves it against base.
func FindFeedLink(doc *goquery.Document, base *url.URL) (string, bool) {
	var found string

	doc.Find("link[rel~='alternate']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ := strings.ToLower(sel.AttrOr("type", ""))
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") {
			return true
		}
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	return found, found != ""
}
