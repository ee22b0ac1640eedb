// Package extract recovers hyperlink spans from extracted Wikipedia dump
// files. Each <doc> record becomes a Document whose spans index exactly into
// the document's detagged text.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/html"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// Normalizer resolves a link target to a canonical title.
type Normalizer interface {
	Normalize(title string) string
}

// Stats counts extraction outcomes.
type Stats struct {
	Documents  int64
	Anchors    int64
	Accepted   int64
	Skipped    int64
	Mismatched int64
	Nulls      int64
}

// Extractor turns dump markup into Documents. It is safe for concurrent use.
type Extractor struct {
	normalizer Normalizer
	ignoreNull bool

	documents  atomic.Int64
	anchors    atomic.Int64
	accepted   atomic.Int64
	skipped    atomic.Int64
	mismatched atomic.Int64
	nulls      atomic.Int64

	docsCounter prometheus.Counter
	anchorsVec  *prometheus.CounterVec
	logger      *slog.Logger
}

// NewExtractor returns an Extractor that labels spans through n. With
// ignoreNull set, anchors whose target does not resolve are dropped instead
// of being kept with the null title.
func NewExtractor(n Normalizer, ignoreNull bool, m *metrics.Metrics) *Extractor {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Extractor{
		normalizer:  n,
		ignoreNull:  ignoreNull,
		docsCounter: m.DocumentsExtractedTotal,
		anchorsVec:  m.AnchorsTotal,
		logger:      slog.Default().With("component", "extractor"),
	}
}

// ExtractDocuments parses every <doc> element in r. Documents without any
// accepted link are still returned.
func (e *Extractor) ExtractDocuments(r io.Reader) ([]Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	var docs []Document
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "doc" {
			docs = append(docs, e.extractDocument(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return docs, nil
}

func (e *Extractor) extractDocument(n *html.Node) Document {
	doc := Document{
		CurID:       attr(n, "id"),
		Title:       attr(n, "title"),
		LinkedSpans: []Span{},
	}
	var (
		text    strings.Builder
		anchors []*html.Node
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "a" {
				anchors = append(anchors, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	doc.Text = text.String()

	loc := locator{text: doc.Text}
	for _, a := range anchors {
		e.anchors.Add(1)
		span, status := e.resolve(&loc, a, doc.CurID)
		e.anchorsVec.WithLabelValues(status).Inc()
		if status == statusAccepted {
			doc.LinkedSpans = append(doc.LinkedSpans, span)
		}
	}
	e.documents.Add(1)
	e.docsCounter.Inc()
	return doc
}

const (
	statusAccepted = "accepted"
	statusSkipped  = "skipped"
	statusMismatch = "mismatch"
	statusNull     = "null"
)

func (e *Extractor) resolve(loc *locator, a *html.Node, docID string) (Span, string) {
	surface, ok := linkText(a)
	if !ok {
		e.skipped.Add(1)
		return Span{}, statusSkipped
	}
	href, ok := hasAttr(a, "href")
	if !ok {
		e.skipped.Add(1)
		return Span{}, statusSkipped
	}

	start, end, found := loc.find(siblingText(a.PrevSibling), surface, siblingText(a.NextSibling))
	if !found {
		e.mismatched.Add(1)
		e.logger.Warn("anchor offset mismatch",
			"curid", docID,
			"anchor", surface,
			"start", start,
		)
		return Span{}, statusMismatch
	}

	label := e.normalizer.Normalize(DecodeTarget(href))
	if normalize.IsNull(label) {
		e.nulls.Add(1)
		if e.ignoreNull {
			return Span{}, statusNull
		}
	}
	e.accepted.Add(1)
	return Span{Start: start, End: end, Label: label}, statusAccepted
}

// DecodeTarget percent-decodes an href and replaces spaces with
// underscores. Each valid %XX escape is decoded on its own; a "%" that does
// not start one is kept.
func DecodeTarget(href string) string {
	if !strings.Contains(href, "%") {
		return strings.ReplaceAll(href, " ", "_")
	}
	var b strings.Builder
	b.Grow(len(href))
	for i := 0; i < len(href); i++ {
		if href[i] == '%' && i+2 < len(href) && isHex(href[i+1]) && isHex(href[i+2]) {
			b.WriteByte(unhex(href[i+1])<<4 | unhex(href[i+2]))
			i += 2
			continue
		}
		b.WriteByte(href[i])
	}
	decoded := strings.ToValidUTF8(b.String(), "\uFFFD")
	return strings.ReplaceAll(decoded, " ", "_")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// locator finds anchors in a document's text, moving only forward.
type locator struct {
	text   string
	cursor int

	// rune offset of byte position lastByte
	lastByte int
	lastRune int
}

// find searches for prev+surface+next at or after the cursor and returns
// the rune span of surface. The cursor moves just past the resolved start.
func (l *locator) find(prev, surface, next string) (start, end int, ok bool) {
	needle := prev + surface + next
	idx := strings.Index(l.text[l.cursor:], needle)
	if idx < 0 {
		return l.runeOffset(l.cursor), 0, false
	}
	byteStart := l.cursor + idx + len(prev)
	byteEnd := byteStart + len(surface)
	if l.text[byteStart:byteEnd] != surface {
		return l.runeOffset(byteStart), 0, false
	}
	start = l.runeOffset(byteStart)
	end = start + utf8.RuneCountInString(surface)
	_, size := utf8.DecodeRuneInString(l.text[byteStart:])
	l.cursor = byteStart + size
	return start, end, true
}

func (l *locator) runeOffset(b int) int {
	if b < l.lastByte {
		l.lastByte, l.lastRune = 0, 0
	}
	l.lastRune += utf8.RuneCountInString(l.text[l.lastByte:b])
	l.lastByte = b
	return l.lastRune
}

// linkText returns the anchor's text when it is a single text node that is
// not blank.
func linkText(a *html.Node) (string, bool) {
	c := a.FirstChild
	if c == nil || c != a.LastChild || c.Type != html.TextNode {
		return "", false
	}
	if strings.TrimSpace(c.Data) == "" {
		return "", false
	}
	return c.Data, true
}

// siblingText is the data of n when it is a text node, otherwise empty.
func siblingText(n *html.Node) string {
	if n == nil || n.Type != html.TextNode {
		return ""
	}
	return n.Data
}

func attr(n *html.Node, key string) string {
	v, _ := hasAttr(n, key)
	return v
}

func hasAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Stats returns the counts accumulated so far.
func (e *Extractor) Stats() Stats {
	return Stats{
		Documents:  e.documents.Load(),
		Anchors:    e.anchors.Load(),
		Accepted:   e.accepted.Load(),
		Skipped:    e.skipped.Load(),
		Mismatched: e.mismatched.Load(),
		Nulls:      e.nulls.Load(),
	}
}
