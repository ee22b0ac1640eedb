// Package wikitable builds the id/title/redirect lookup tables of one dump
// snapshot and persists them as TSV files with a binary cache beside them.
package wikitable

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/sqldump"
)

// Columns of the page and redirect dumps that the builders index.
var (
	PageColumns     = []string{"page_id", "page_namespace", "page_title", "page_is_redirect"}
	RedirectColumns = []string{"rd_from", "rd_title"}
)

// ArticleNamespace is the namespace of genuine articles; talk, category and
// other pages are dropped.
const ArticleNamespace = "0"

// PageTable maps page ids to titles and back, and records which titles are
// redirect pages. It is immutable once built.
type PageTable struct {
	idToTitle map[string]string
	titleToID map[string]string
	redirects map[string]struct{}
	order     []string
}

func NewPageTable() *PageTable {
	return &PageTable{
		idToTitle: make(map[string]string),
		titleToID: make(map[string]string),
		redirects: make(map[string]struct{}),
	}
}

// Add registers one page. A repeated id keeps its first position in the
// output order but takes the latest title.
func (p *PageTable) Add(id, title string, isRedirect bool) {
	if _, seen := p.idToTitle[id]; !seen {
		p.order = append(p.order, id)
	}
	p.idToTitle[id] = title
	p.titleToID[title] = id
	if isRedirect {
		p.redirects[title] = struct{}{}
	}
}

func (p *PageTable) Title(id string) (string, bool) {
	t, ok := p.idToTitle[id]
	return t, ok
}

func (p *PageTable) ID(title string) (string, bool) {
	id, ok := p.titleToID[title]
	return id, ok
}

// HasTitle reports whether title is a known page title.
func (p *PageTable) HasTitle(title string) bool {
	_, ok := p.titleToID[title]
	return ok
}

func (p *PageTable) IsRedirect(title string) bool {
	_, ok := p.redirects[title]
	return ok
}

func (p *PageTable) Len() int {
	return len(p.order)
}

// Each visits pages in insertion order until fn returns false.
func (p *PageTable) Each(fn func(id, title string, isRedirect bool) bool) {
	for _, id := range p.order {
		title := p.idToTitle[id]
		if !fn(id, title, p.IsRedirect(title)) {
			return
		}
	}
}

// BuildStats reports what a table builder kept and dropped.
type BuildStats struct {
	Rows    int64
	Bad     int64
	Skipped int64
	Missed  int64
	Kept    int64
}

// BuildPageTable reads a page dump and keeps article-namespace rows.
func BuildPageTable(ctx context.Context, s *sqldump.Scanner, path string) (*PageTable, BuildStats, error) {
	pt := NewPageTable()
	var stats BuildStats
	scanStats, err := s.Scan(ctx, path, "page", PageColumns, func(r sqldump.Row) error {
		if r.Get("page_namespace") != ArticleNamespace {
			stats.Skipped++
			return nil
		}
		pt.Add(r.Get("page_id"), r.Title("page_title"), r.Get("page_is_redirect") == "1")
		stats.Kept++
		return nil
	})
	stats.Rows, stats.Bad = scanStats.Rows, scanStats.Bad
	if err != nil {
		return nil, stats, err
	}
	slog.Default().With("component", "wikitable").Info("page table built",
		"pages", pt.Len(),
		"redirect_pages", len(pt.redirects),
		"skipped_namespace", stats.Skipped,
		"bad_rows", stats.Bad,
	)
	return pt, stats, nil
}
