package news

import (
	"sort"
)

// DefaultPageSize is the number of items per page when none is configured.
const DefaultPageSize = 20

// SourceResult is what one source produced in a run. Position is the index of
// the source entry in registry order and is the identity used for counting.
type SourceResult struct {
	Category string
	Position int
	Items    []Item
	Err      error
}

// linkIndex is an ordered map keyed by link: first-seen order, O(1) lookups.
type linkIndex struct {
	links []string
	items map[string]Item
}

func newLinkIndex() *linkIndex {
	return &linkIndex{items: make(map[string]Item)}
}

// add keeps the first item seen for a link and reports whether it was new.
func (x *linkIndex) add(it Item) bool {
	if _, dup := x.items[it.Link]; dup {
		return false
	}
	x.links = append(x.links, it.Link)
	x.items[it.Link] = it
	return true
}

func (x *linkIndex) list() []Item {
	out := make([]Item, 0, len(x.links))
	for _, l := range x.links {
		out = append(out, x.items[l])
	}
	return out
}

// CountOccurrences returns, per link, the number of distinct source entries
// that yielded it. Counting happens before any dedup.
func CountOccurrences(results []SourceResult) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		seen := make(map[string]bool, len(r.Items))
		for _, it := range r.Items {
			if it.Link == "" || seen[it.Link] {
				continue
			}
			seen[it.Link] = true
			counts[it.Link]++
		}
	}
	return counts
}

// Reduce merges per-source results into one flat, ranked, deduplicated list.
//
// Each category is deduplicated on its own (first occurrence wins and its
// fields are frozen) and stamped with its name. Categories are then
// concatenated in order of first appearance; a link already emitted by an
// earlier category is dropped. Every surviving item carries the occurrence
// count of its link. maxPerCategory > 0 keeps only the most recent items of
// each category.
func Reduce(results []SourceResult, maxPerCategory int) []Item {
	items, _ := reduce(results, maxPerCategory)
	return items
}

// reduceStats counts what a reduction dropped.
type reduceStats struct {
	duplicates int // link already seen in the category or an earlier one
	capped     int // cut by maxPerCategory
}

func reduce(results []SourceResult, maxPerCategory int) ([]Item, reduceStats) {
	var stats reduceStats
	counts := CountOccurrences(results)

	var order []string
	byCategory := make(map[string]*linkIndex)
	for _, r := range results {
		idx, ok := byCategory[r.Category]
		if !ok {
			idx = newLinkIndex()
			byCategory[r.Category] = idx
			order = append(order, r.Category)
		}
		for _, it := range r.Items {
			if it.Link == "" {
				continue
			}
			it.Category = r.Category
			if !idx.add(it) {
				stats.duplicates++
			}
		}
	}

	global := newLinkIndex()
	for _, cat := range order {
		items := byCategory[cat].list()
		if maxPerCategory > 0 && len(items) > maxPerCategory {
			sort.SliceStable(items, func(i, j int) bool {
				return items[i].Published.After(items[j].Published)
			})
			stats.capped += len(items) - maxPerCategory
			items = items[:maxPerCategory]
		}
		for _, it := range items {
			if !global.add(it) {
				stats.duplicates++
			}
		}
	}

	out := global.list()
	for i := range out {
		out[i].Count = counts[out[i].Link]
	}
	SortItems(out)
	return out, stats
}

// SortItems orders items by published time, then occurrence count, both
// descending. Equal keys keep their input order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		return a.Count > b.Count
	})
}

// Paginate slices items into pages of size. size <= 0 yields a single page.
// No items yields no pages.
func Paginate(items []Item, size int) []Page {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return []Page{Page(items)}
	}

	pages := make([]Page, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, Page(items[start:end]))
	}
	return pages
}
