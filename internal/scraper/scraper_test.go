package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/httpclient"
	"github.com/deusflow/newsdigest/internal/news"
)

const page = `<!doctype html>
<html><body>
  <div class="news">
    <h2><a href="/2025/03/10/first">  First
        headline </a></h2>
    <h2><a href="https://other.example.org/second">Second &amp; more</a></h2>
    <h2><a>No link here</a></h2>
    <h2><a href="/empty"> </a></h2>
    <h2><a href="javascript:void(0)">Script link</a></h2>
    <h2><a href="third.html">Third</a></h2>
  </div>
  <a href="/outside">Outside</a>
</body></html>`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract(t *testing.T) {
	base, _ := url.Parse("https://example.com/news/")

	links := Extract(parse(t, page), base, ".news h2 a", 0)

	require.Len(t, links, 3)
	assert.Equal(t, Link{Title: "First headline", URL: "https://example.com/2025/03/10/first"}, links[0])
	assert.Equal(t, Link{Title: "Second & more", URL: "https://other.example.org/second"}, links[1])
	assert.Equal(t, Link{Title: "Third", URL: "https://example.com/news/third.html"}, links[2])
}

func TestExtractLimitCountsMatchedElements(t *testing.T) {
	base, _ := url.Parse("https://example.com/")

	links := Extract(parse(t, page), base, ".news h2 a", 2)

	assert.Len(t, links, 2)
}

func TestExtractInvalidSelectorMatchesNothing(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	assert.Empty(t, Extract(parse(t, page), base, "a[href", 0))
}

func TestScrape(t *testing.T) {
	server := newServer(t, http.StatusOK, page)
	s := New(httpclient.New(time.Second, ""))

	now := time.Date(2025, 3, 10, 13, 30, 0, 0, time.FixedZone("CET", 3600))
	rc := news.NewRunContext(now, now.Location(), 24*time.Hour)

	items, err := s.Scrape(context.Background(), server.URL+"/news/", "a", 0, rc)
	require.NoError(t, err)
	require.Len(t, items, 4)

	for _, it := range items {
		assert.Equal(t, server.URL+"/news/", it.Source)
		assert.True(t, it.Published.Equal(now))
		assert.Equal(t, time.UTC, it.Published.Location())
		assert.Empty(t, it.Category)
		assert.True(t, strings.HasPrefix(it.Link, "http"))
	}
	assert.Equal(t, server.URL+"/outside", items[3].Link)
}

func TestScrapeHTTPErrorYieldsNoItems(t *testing.T) {
	server := newServer(t, http.StatusNotFound, "")
	s := New(httpclient.New(time.Second, ""))

	items, err := s.Scrape(context.Background(), server.URL, "a", 0, news.NewRunContext(time.Now(), time.UTC, time.Hour))
	assert.ErrorIs(t, err, news.ErrTransport)
	assert.Empty(t, items)
}

func TestFetchDocument(t *testing.T) {
	server := newServer(t, http.StatusOK, page)

	doc, body, err := FetchDocument(context.Background(), httpclient.New(time.Second, ""), server.URL)
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
	assert.Equal(t, 7, doc.Find("h2").Length()+doc.Find("body > a").Length())
}
