package wikitable

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/sqldump"
)

// RedirectTable maps a redirect title to the title it points at.
type RedirectTable map[string]string

// BuildRedirectTable reads a redirect dump. Only redirects whose source page
// id is present in pages are kept; the rest are counted as missed. This
// under-populates the table whenever the page table is incomplete, and no
// attempt is made to infer the missing sources.
func BuildRedirectTable(ctx context.Context, s *sqldump.Scanner, path string, pages *PageTable) (RedirectTable, BuildStats, error) {
	rt := make(RedirectTable)
	var stats BuildStats
	scanStats, err := s.Scan(ctx, path, "redirect", RedirectColumns, func(r sqldump.Row) error {
		source, ok := pages.Title(r.Get("rd_from"))
		if !ok {
			stats.Missed++
			return nil
		}
		rt[source] = r.Title("rd_title")
		stats.Kept++
		return nil
	})
	stats.Rows, stats.Bad = scanStats.Rows, scanStats.Bad
	if err != nil {
		return nil, stats, err
	}
	slog.Default().With("component", "wikitable").Info("redirect table built",
		"redirects", len(rt),
		"missed_ids", stats.Missed,
		"total", stats.Rows,
		"bad_rows", stats.Bad,
	)
	return rt, stats, nil
}
