// Package normalize resolves surface spellings of titles to canonical page
// titles through the redirect and page tables of one dump snapshot.
package normalize

import (
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// NullTitle is returned when a title cannot be resolved. '<' never occurs in
// a page title, so it cannot collide with a real one.
const NullTitle = "<NULL_TITLE>"

// Stats summarises normalizer usage.
type Stats struct {
	Calls    int64
	Nulls    int64
	NullRate float64
}

// Normalizer maps titles to canonical titles. It is safe for concurrent use
// once constructed.
type Normalizer struct {
	pages     *wikitable.PageTable
	redirects wikitable.RedirectTable
	lower     map[string]string

	calls atomic.Int64
	nulls atomic.Int64

	viaRedirect  prometheus.Counter
	canonical    prometheus.Counter
	recapitalize prometheus.Counter
	null         prometheus.Counter
	logger       *slog.Logger
}

func New(pages *wikitable.PageTable, redirects wikitable.RedirectTable, m *metrics.Metrics) *Normalizer {
	if m == nil {
		m = metrics.NewNop()
	}
	n := &Normalizer{
		pages:        pages,
		redirects:    redirects,
		lower:        make(map[string]string, pages.Len()+len(redirects)),
		viaRedirect:  m.TitleNormalizations.WithLabelValues("redirect"),
		canonical:    m.TitleNormalizations.WithLabelValues("canonical"),
		recapitalize: m.TitleNormalizations.WithLabelValues("recapitalized"),
		null:         m.TitleNormalizations.WithLabelValues("null"),
		logger:       slog.Default().With("component", "normalizer"),
	}
	pages.Each(func(_, title string, _ bool) bool {
		n.lower[strings.ToLower(title)] = title
		return true
	})
	keys := make([]string, 0, len(redirects))
	for k := range redirects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.lower[strings.ToLower(k)] = redirects[k]
	}
	return n
}

// Normalize resolves title in two passes: exactly as given, then with every
// "_"-separated segment capitalized. A redirect wins over a page of the same
// name. Redirects are followed one hop only.
func (n *Normalizer) Normalize(title string) string {
	n.calls.Add(1)
	if t, ok := n.lookup(title); ok {
		return t
	}
	if candidate := Capitalize(title); candidate != title {
		if t, ok := n.lookup(candidate); ok {
			n.recapitalize.Inc()
			return t
		}
	}
	n.nulls.Add(1)
	n.null.Inc()
	return NullTitle
}

func (n *Normalizer) lookup(title string) (string, bool) {
	if target, ok := n.redirects[title]; ok {
		n.viaRedirect.Inc()
		return target, true
	}
	if n.pages.HasTitle(title) {
		n.canonical.Inc()
		return title, true
	}
	return "", false
}

// LowerToUpper looks title up case-insensitively. When a lowercased page
// title and a lowercased redirect collide, the redirect target wins.
func (n *Normalizer) LowerToUpper(title string) (string, bool) {
	t, ok := n.lower[strings.ToLower(title)]
	return t, ok
}

// Stats returns the call and null counts so far.
func (n *Normalizer) Stats() Stats {
	s := Stats{Calls: n.calls.Load(), Nulls: n.nulls.Load()}
	if s.Calls > 0 {
		s.NullRate = float64(s.Nulls) / float64(s.Calls)
	}
	return s
}

// Report logs the coverage statistics. Owners call it once at end of run.
func (n *Normalizer) Report() {
	s := n.Stats()
	n.logger.Info("normalizer coverage",
		"calls", s.Calls,
		"nulls", s.Nulls,
		"null_rate", s.NullRate,
	)
}

// IsNull reports whether title is the unresolved sentinel.
func IsNull(title string) bool {
	return title == NullTitle
}

// Capitalize upper-cases the first letter of each "_"-separated segment and
// lower-cases the rest, so "new_york" and "NEW_YORK" both become "New_York".
func Capitalize(title string) string {
	segments := strings.Split(title, "_")
	for i, seg := range segments {
		segments[i] = capitalizeSegment(seg)
	}
	return strings.Join(segments, "_")
}

func capitalizeSegment(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
