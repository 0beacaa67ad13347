package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newsdigest/internal/httpclient"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/news"
)

// Link is one (title, href) pair extracted from a page.
type Link struct {
	Title string
	URL   string
}

// Scraper turns selector matches on a page into items.
type Scraper struct {
	client *httpclient.Client
}

func New(client *httpclient.Client) *Scraper {
	return &Scraper{client: client}
}

// FetchDocument downloads and parses an HTML page.
func FetchDocument(ctx context.Context, client *httpclient.Client, pageURL string) (*goquery.Document, []byte, error) {
	body, err := client.Get(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, body, fmt.Errorf("%w: error parsing HTML of %s: %v", news.ErrParse, pageURL, err)
	}
	return doc, body, nil
}

// Scrape fetches pageURL and emits one item per element matching selector.
// Items carry the run's current instant in UTC, since raw pages have no
// per-item date, and the page URL as source. limit <= 0 means unlimited.
func (s *Scraper) Scrape(ctx context.Context, pageURL, selector string, limit int, rc news.RunContext) ([]news.Item, error) {
	doc, _, err := FetchDocument(ctx, s.client, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad page url %s: %v", news.ErrParse, pageURL, err)
	}

	links := Extract(doc, base, selector, limit)
	now := rc.Now.UTC()

	items := make([]news.Item, 0, len(links))
	for _, l := range links {
		items = append(items, news.Item{
			Title:     l.Title,
			Link:      l.URL,
			Published: now,
			Source:    pageURL,
		})
	}

	logger.Debug("scraped page", "url", pageURL, "selector", selector, "items", len(items))
	return items, nil
}

// Extract collects the visible text and href of every element matching
// selector. Elements without either are skipped; relative links are resolved
// against base. An invalid selector matches nothing.
func Extract(doc *goquery.Document, base *url.URL, selector string, limit int) []Link {
	var out []Link

	doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}

		title := strings.Join(strings.Fields(sel.Text()), " ")
		href, ok := sel.Attr("href")
		if title == "" || !ok {
			return true
		}

		link, ok := news.AbsoluteLink(base, href)
		if !ok {
			return true
		}

		out = append(out, Link{Title: title, URL: link})
		return true
	})

	return out
}
