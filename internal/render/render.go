// Package render serializes ranked pages into the self-contained HTML digest
// and its JSON page data.
package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/deusflow/newsdigest/internal/news"
)

// TimeLayout formats item timestamps as day/month hour:minute.
const TimeLayout = "02/01 15:04"

// Entry is the display record of one item.
type Entry struct {
	Category  string `json:"category"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
	Count     int    `json:"count"`
}

// Document is everything the HTML template needs.
type Document struct {
	Title          string
	Generated      string
	WindowHours    int
	RefreshSeconds int
	Pages          [][]Entry
	Total          int
}

// Entries formats pages for display, timestamps in loc.
func Entries(pages []news.Page, loc *time.Location) [][]Entry {
	if loc == nil {
		loc = time.Local
	}
	out := make([][]Entry, 0, len(pages))
	for _, p := range pages {
		entries := make([]Entry, 0, len(p))
		for _, it := range p {
			entries = append(entries, Entry{
				Category:  it.Category,
				Title:     it.Title,
				Link:      it.Link,
				Published: it.Published.In(loc).Format(TimeLayout),
				Source:    it.Source,
				Count:     it.Count,
			})
		}
		out = append(out, entries)
	}
	return out
}

// NewDocument builds the document of one run.
func NewDocument(title string, pages []news.Page, rc news.RunContext, refreshSeconds int) Document {
	entries := Entries(pages, rc.Location)
	total := 0
	for _, p := range entries {
		total += len(p)
	}
	return Document{
		Title:          title,
		Generated:      rc.Now.Format("02/01/2006 15:04"),
		WindowHours:    int(rc.Now.Sub(rc.Since).Round(time.Hour) / time.Hour),
		RefreshSeconds: max(refreshSeconds, 0),
		Pages:          entries,
		Total:          total,
	}
}

// HTML writes the digest document.
func HTML(w io.Writer, doc Document) error {
	if doc.Pages == nil {
		doc.Pages = [][]Entry{}
	}
	if err := pageTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// JSON writes the page data alone, as embedded in the HTML document.
func JSON(w io.Writer, doc Document) error {
	pages := doc.Pages
	if pages == nil {
		pages = [][]Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pages); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}

var pageTemplate = template.Must(template.New("digest").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  {{- if gt .RefreshSeconds 0}}
  <meta http-equiv="refresh" content="{{.RefreshSeconds}}">
  {{- end}}
  <title>{{.Title}} - {{.Generated}}</title>
  <style>
    body { font-family: sans-serif; background: #f5f5f5; color: #333; padding: 20px }
    table { border-collapse: collapse; width: 100%; background: white; box-shadow: 0 2px 4px rgba(0,0,0,0.1) }
    th { background: #007acc; color: white; padding: 8px; text-align: left }
    td { border: 1px solid #ccc; padding: 6px }
    tr:nth-child(even) { background: #f0f8ff }
    tr.popular { background: #ffeeba }
    a { color: #007acc; text-decoration: none }
    a:hover { text-decoration: underline }
    .nav { margin: 10px 0 }
    .nav button { padding: 6px 12px; margin-right: 8px }
    .empty { padding: 40px; text-align: center; background: white }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}} - {{.Generated}}</h1>
    <p>News from the last {{.WindowHours}} hours, sorted by time and popularity ({{.Total}} items)</p>
  </header>
{{- if .Pages}}
  <div class="nav">
    <button id="prev" disabled>&laquo; Previous</button>
    <span id="page-info"></span>
    <button id="next">Next &raquo;</button>
  </div>
  <table>
    <thead>
      <tr><th>Category</th><th>Title</th><th>Time</th><th>Source</th><th>Occurrences</th></tr>
    </thead>
    <tbody id="news-body"></tbody>
  </table>
{{- else}}
  <div class="empty" id="empty">No news in the last {{.WindowHours}} hours.</div>
{{- end}}
  <script>
    const pages = {{.Pages}};
    let current = 0;

    function cell(tr, text) {
      const td = document.createElement("td");
      td.textContent = text;
      tr.appendChild(td);
      return td;
    }

    function renderNav() {
      document.getElementById("prev").disabled = current === 0;
      document.getElementById("next").disabled = current === pages.length - 1;
      document.getElementById("page-info").textContent = "Page " + (current + 1) + " of " + pages.length;
    }

    function showPage(idx) {
      current = idx;
      const tbody = document.getElementById("news-body");
      tbody.replaceChildren();
      pages[current].forEach(function (i) {
        const tr = document.createElement("tr");
        if (i.count > 1) tr.className = "popular";
        cell(tr, i.category);
        const a = document.createElement("a");
        a.href = i.link;
        a.target = "_blank";
        a.rel = "noopener";
        a.textContent = i.title;
        cell(tr, "").appendChild(a);
        cell(tr, i.published);
        cell(tr, i.source);
        cell(tr, String(i.count));
        tbody.appendChild(tr);
      });
      renderNav();
    }

    document.addEventListener("DOMContentLoaded", function () {
      if (pages.length === 0) return;
      document.getElementById("prev").addEventListener("click", function () {
        if (current > 0) showPage(current - 1);
      });
      document.getElementById("next").addEventListener("click", function () {
        if (current < pages.length - 1) showPage(current + 1);
      });
      showPage(0);
    });
  </script>
</body>
</html>
`))
