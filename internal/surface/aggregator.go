// Package surface builds the surface-form/title multi-maps that the
// probability tables are computed from. An Aggregator fills one direction
// only, so a single map is resident at a time.
package surface

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

const progressInterval = 1_000_000

// Direction selects which side of a surface/title pair keys the map.
type Direction int

const (
	SurfaceToTitle Direction = iota
	TitleToSurface
)

func (d Direction) String() string {
	if d == TitleToSurface {
		return "title-to-surface"
	}
	return "surface-to-title"
}

// CJK scripts join title parts with a middle dot as well as "_".
const middleDot = "·"

// Options configures an Aggregator.
type Options struct {
	Mode      string
	Direction Direction
	AddASCII  bool
	Lang      string
	Tokenizer tokenizer.Tokenizer

	// Simplify maps a surface to simplified script. It is only applied for
	// Chinese; nil disables it.
	Simplify func(string) string
}

// Stats counts what an ingestion pass read.
type Stats struct {
	Lines int64
	Bad   int64
	Nulls int64
	Pairs int64
}

// Aggregator accumulates surface/title pairs into a MultiMap.
type Aggregator struct {
	opts       Options
	normalizer extract.Normalizer
	mm         *MultiMap
	fold       *folder
	pairs      *prometheus.CounterVec
	logger     *slog.Logger
}

func New(opts Options, n extract.Normalizer, m *metrics.Metrics) *Aggregator {
	if m == nil {
		m = metrics.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = config.ModePhrase
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.Whitespace{}
	}
	return &Aggregator{
		opts:       opts,
		normalizer: n,
		mm:         NewMultiMap(),
		fold:       newFolder(),
		pairs:      m.SurfacePairsTotal,
		logger: slog.Default().With(
			"component", "aggregator",
			"mode", opts.Mode,
			"direction", opts.Direction.String(),
		),
	}
}

// Map returns the accumulated map.
func (a *Aggregator) Map() *MultiMap {
	return a.mm
}

func (a *Aggregator) chinese() bool {
	return a.opts.Lang == "zh"
}

func (a *Aggregator) simplify(s string) string {
	if a.opts.Simplify == nil {
		return s
	}
	return a.opts.Simplify(s)
}

func (a *Aggregator) add(surface, title string, counter prometheus.Counter) {
	if surface == "" {
		return
	}
	if a.opts.Direction == SurfaceToTitle {
		a.mm.Add(surface, title)
	} else {
		a.mm.Add(title, surface)
	}
	counter.Inc()
}

// addSurface registers surface with its folded and simplified variants.
// Every enabled variant is registered, even when it equals surface, so an
// already-ASCII surface counts twice when folding is on.
func (a *Aggregator) addSurface(surface, title string, counter prometheus.Counter) {
	a.add(surface, title, counter)
	if a.opts.AddASCII {
		a.add(a.fold.phrase(surface), title, counter)
	}
	if a.chinese() && a.opts.Simplify != nil {
		a.add(a.simplify(surface), title, counter)
	}
}

// AddTitlesAndRedirects registers every canonical title as a surface of
// itself and every redirect as a surface of its target. Pages flagged as
// redirects are registered through the redirect table only.
func (a *Aggregator) AddTitlesAndRedirects(pages *wikitable.PageTable, redirects wikitable.RedirectTable) {
	titles := a.pairs.WithLabelValues(a.opts.Mode, "title")
	n := 0
	pages.Each(func(_, title string, isRedirect bool) bool {
		if isRedirect {
			return true
		}
		a.seed(title, title, titles)
		n++
		return true
	})

	sources := make([]string, 0, len(redirects))
	for r := range redirects {
		sources = append(sources, r)
	}
	sort.Strings(sources)
	viaRedirect := a.pairs.WithLabelValues(a.opts.Mode, "redirect")
	for _, r := range sources {
		a.seed(r, redirects[r], viaRedirect)
	}
	a.logger.Info("added titles and redirects as default surfaces",
		"titles", n,
		"redirects", len(sources),
		"keys", a.mm.Len(),
	)
}

func (a *Aggregator) seed(name, title string, counter prometheus.Counter) {
	if a.opts.Mode == config.ModeWord {
		for _, tok := range a.nameTokens(name) {
			a.addSurface(tok, title, counter)
		}
		return
	}
	a.addSurface(a.namePhrase(name), title, counter)
	if a.chinese() && a.opts.Simplify != nil {
		joined := strings.NewReplacer("_", "", middleDot, "").Replace(name)
		if joined != name {
			a.add(a.simplify(joined), title, counter)
		}
	}
}

// namePhrase turns a title into its phrase surface: separators become
// spaces and the result is lower-cased.
func (a *Aggregator) namePhrase(name string) string {
	phrase := strings.ReplaceAll(name, "_", " ")
	if a.chinese() {
		phrase = strings.ReplaceAll(phrase, middleDot, " ")
	}
	return strings.ToLower(strings.TrimSpace(phrase))
}

// nameTokens splits a title into its word surfaces.
func (a *Aggregator) nameTokens(name string) []string {
	if a.chinese() {
		return strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '·' })
	}
	return strings.Split(strings.ToLower(strings.TrimSpace(name)), "_")
}

// addLink registers an observed surface/title pair. In word mode each token
// of the surface is registered instead of the whole phrase.
func (a *Aggregator) addLink(surface, title string, counter prometheus.Counter) {
	if a.opts.Mode != config.ModeWord {
		a.addSurface(surface, title, counter)
		return
	}
	for _, tok := range a.opts.Tokenizer.Tokenize(surface, a.opts.Lang) {
		a.addSurface(tok.Term, title, counter)
	}
}

// ReadSurfaceTitleMaps ingests "surface\ttarget" lines. Surfaces are
// lower-cased and targets normalized; pairs whose target does not resolve
// are dropped and lines with fewer than two fields are counted as bad.
func (a *Aggregator) ReadSurfaceTitleMaps(r io.Reader) (Stats, error) {
	counter := a.pairs.WithLabelValues(a.opts.Mode, "link")
	before := a.mm.Pairs()
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		stats.Lines++
		if stats.Lines%progressInterval == 0 {
			a.logger.Info("read surface links",
				"lines", stats.Lines,
				"bad_frac", float64(stats.Bad)/float64(stats.Lines),
			)
		}
		parts := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(parts) < 2 {
			stats.Bad++
			continue
		}
		title := a.normalizer.Normalize(parts[1])
		if normalize.IsNull(title) {
			stats.Nulls++
			continue
		}
		a.addLink(strings.ToLower(parts[0]), title, counter)
	}
	stats.Pairs = a.mm.Pairs() - before
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading surface links: %w", err)
	}
	a.logger.Info("loaded surface links",
		"lines", stats.Lines,
		"bad", stats.Bad,
		"null_targets", stats.Nulls,
		"pairs", stats.Pairs,
	)
	return stats, nil
}

// ReadDocuments ingests the linked spans of extracted documents. The span
// text is the surface and the span label, already normalized, the title.
func (a *Aggregator) ReadDocuments(r io.Reader) (Stats, error) {
	counter := a.pairs.WithLabelValues(a.opts.Mode, "document")
	before := a.mm.Pairs()
	var stats Stats
	err := extract.ReadDocuments(r, func(doc extract.Document) error {
		for _, s := range doc.LinkedSpans {
			stats.Lines++
			if normalize.IsNull(s.Label) {
				stats.Nulls++
				continue
			}
			surface := doc.SpanText(s)
			if surface == "" {
				stats.Bad++
				continue
			}
			a.addLink(strings.ToLower(surface), s.Label, counter)
		}
		return nil
	})
	stats.Pairs = a.mm.Pairs() - before
	return stats, err
}
