// Package httpclient provides the shared HTTP client used by the discovery
// resolver and both item fetchers.
//
// One pooled transport is shared by every Client so connections to the same
// host are reused across sources. Every request carries the configured
// User-Agent; some news sites reject the Go default.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/deusflow/newsdigest/internal/news"
)

// DefaultUserAgent looks enough like a browser to pass trivial bot filters.
const DefaultUserAgent = "Mozilla/5.0 (compatible; newsdigest/1.0)"

// maxBodyBytes caps a single response body.
const maxBodyBytes = 10 << 20

var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		}
	})
	return sharedTransport
}

// Client fetches pages with a fixed User-Agent and a hard timeout.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a Client. A zero timeout means 15s, an empty agent the default.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		http: &http.Client{
			Transport: getSharedTransport(),
			Timeout:   timeout,
		},
		userAgent: userAgent,
	}
}

// Get fetches url and returns its body. Network failures and non-2xx
// statuses are reported as news.ErrTransport.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request for %s: %v", news.ErrTransport, url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", news.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", news.ErrTransport, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", news.ErrTransport, url, err)
	}
	return body, nil
}
