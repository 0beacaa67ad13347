// Package sources loads the static source registry: an ordered mapping from
// category name to the sources registered under it.
package sources

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Kind is the discovery mode of a source.
type Kind string

const (
	KindFeed   Kind = "direct-feed"
	KindAuto   Kind = "auto-discover"
	KindScrape Kind = "page-scrape"
)

// aliases accepted in the YAML file
var kindAliases = map[string]Kind{
	"":              KindFeed,
	"rss":           KindFeed,
	"feed":          KindFeed,
	"direct-feed":   KindFeed,
	"auto":          KindAuto,
	"auto-discover": KindAuto,
	"scraper":       KindScrape,
	"scrape":        KindScrape,
	"page-scrape":   KindScrape,
}

// Source is one configured origin of news items.
type Source struct {
	Kind     Kind   `yaml:"kind"`
	URL      string `yaml:"url"`
	Name     string `yaml:"name,omitempty"`
	Selector string `yaml:"selector,omitempty"`
	// Limit caps scraped elements, 0 means unlimited.
	Limit int `yaml:"limit,omitempty"`
}

// Label returns the display name or, when unset, the URL.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.URL
}

// Category groups sources under one name.
type Category struct {
	Name    string
	Sources []Source
}

// Registry is the ordered list of categories. YAML mapping order is kept.
//
//	categories:
//	  finance:
//	    - kind: auto-discover
//	      url: https://www.example.com/
type Registry struct {
	Categories []Category
}

// Load reads and validates the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Categories yaml.Node `yaml:"categories"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	node := raw.Categories
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: categories must be a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var list []Source
		if err := val.Decode(&list); err != nil {
			return fmt.Errorf("category %q: %w", key.Value, err)
		}
		r.Categories = append(r.Categories, Category{Name: key.Value, Sources: list})
	}
	return nil
}

// Validate normalises kinds and checks every source.
func (r *Registry) Validate() error {
	seen := make(map[string]bool, len(r.Categories))
	for ci := range r.Categories {
		cat := &r.Categories[ci]
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %d has an empty name", ci)
		}
		if seen[cat.Name] {
			return fmt.Errorf("category %q is declared twice", cat.Name)
		}
		seen[cat.Name] = true

		for si := range cat.Sources {
			if err := cat.Sources[si].normalize(); err != nil {
				return fmt.Errorf("category %q source %d: %w", cat.Name, si, err)
			}
		}
	}
	return nil
}

func (s *Source) normalize() error {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(string(s.Kind)))]
	if !ok {
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	s.Kind = kind

	s.URL = strings.TrimSpace(s.URL)
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) URL", s.URL)
	}

	if s.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", s.Limit)
	}

	if s.Kind == KindScrape && s.Selector == "" {
		return fmt.Errorf("page-scrape source %s needs a selector", s.URL)
	}
	if s.Selector != "" {
		if _, err := cascadia.Compile(s.Selector); err != nil {
			return fmt.Errorf("invalid selector %q: %w", s.Selector, err)
		}
	}
	return nil
}

// Len returns the total number of sources.
func (r *Registry) Len() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Sources)
	}
	return n
}
