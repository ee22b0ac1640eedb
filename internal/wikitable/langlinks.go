package wikitable

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/sqldump"
)

var LangLinkColumns = []string{"ll_from", "ll_lang", "ll_title"}

// Interlanguage targets in these namespaces never name an article.
var nonArticlePrefixes = []string{"user:", "template:", "wikipedia:", "category:"}

// LangLink is one interlanguage link of a local page.
type LangLink struct {
	PageID string
	Lang   string
	Title  string
}

// LangLinks holds every article interlanguage link of a dump and the
// local-title to target-language-title map derived from it.
type LangLinks struct {
	All    []LangLink
	Target map[string]string
}

func isArticleTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, prefix := range nonArticlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// BuildLangLinks reads a langlinks dump. Links into targetLang whose source
// page id is missing from pages are counted as missed.
func BuildLangLinks(ctx context.Context, s *sqldump.Scanner, path string, pages *PageTable, targetLang string) (*LangLinks, BuildStats, error) {
	ll := &LangLinks{Target: make(map[string]string)}
	var stats BuildStats
	scanStats, err := s.Scan(ctx, path, "langlinks", LangLinkColumns, func(r sqldump.Row) error {
		link := LangLink{
			PageID: r.Get("ll_from"),
			Lang:   r.Title("ll_lang"),
			Title:  strings.ReplaceAll(r.Title("ll_title"), " ", "_"),
		}
		if link.Title == "" || !isArticleTitle(link.Title) {
			stats.Skipped++
			return nil
		}
		ll.All = append(ll.All, link)
		if link.Lang != targetLang {
			return nil
		}
		local, ok := pages.Title(link.PageID)
		if !ok {
			stats.Missed++
			return nil
		}
		ll.Target[local] = link.Title
		stats.Kept++
		return nil
	})
	stats.Rows, stats.Bad = scanStats.Rows, scanStats.Bad
	if err != nil {
		return nil, stats, err
	}
	slog.Default().With("component", "wikitable").Info("language links built",
		"links", len(ll.All),
		"target_lang", targetLang,
		"mapped", len(ll.Target),
		"missed_ids", stats.Missed,
		"bad_rows", stats.Bad,
	)
	return ll, stats, nil
}
