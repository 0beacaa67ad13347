// Package news holds the aggregation core: the item model, the run context,
// the reduction that turns raw per-source results into ranked pages, and the
// engine that fans fetches out over a bounded worker pool.
package news

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Error taxonomy. Producers wrap these with fmt.Errorf("%w: ...") so callers
// can classify failures with errors.Is.
var (
	ErrTransport   = errors.New("transport error")
	ErrParse       = errors.New("parse error")
	ErrTranslation = errors.New("translation error")
)

// Item is one aggregated article.
type Item struct {
	Title     string
	Link      string
	Published time.Time
	Source    string
	Category  string
	Count     int
}

// Page is an ordered slice of items, used for presentation only.
type Page []Item

// RunContext carries the clock and zone of one aggregation run.
type RunContext struct {
	Location *time.Location
	Now      time.Time
	Since    time.Time
}

// NewRunContext builds a run context whose recency window ends at now.
// A nil location means the process local zone.
func NewRunContext(now time.Time, loc *time.Location, window time.Duration) RunContext {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	return RunContext{
		Location: loc,
		Now:      now,
		Since:    now.Add(-window),
	}
}

// InWindow reports whether t is inside the recency window. The lower bound is
// inclusive.
func (rc RunContext) InWindow(t time.Time) bool {
	return !t.Before(rc.Since)
}

// AbsoluteLink resolves href against base and returns it only if the result
// is an http(s) URL.
func AbsoluteLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	if ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}
