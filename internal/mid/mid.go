// Package mid writes mention-in-document rows: one tab-separated line per
// linked span of an extracted document, carrying its token range, its
// surrounding text and every mention of the article.
package mid

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// OutputSuffix replaces the .json suffix of each input file.
const OutputSuffix = ".csv"

// Row is one MID line. TokenEnd is the index of the last token touching the
// span, inclusive.
type Row struct {
	CurID      string
	Title      string
	TokenStart int
	TokenEnd   int
	Label      string
	Window     string
	Mentions   string
}

func (r Row) String() string {
	return strings.Join([]string{
		"MID",
		r.CurID,
		r.Title,
		strconv.Itoa(r.TokenStart),
		strconv.Itoa(r.TokenEnd),
		r.Label,
		r.Window,
		r.Mentions,
	}, "\t")
}

// Generator turns extracted documents into MID rows.
type Generator struct {
	normalizer extract.Normalizer
	tokenizer  tokenizer.Tokenizer
	lang       string
	window     int

	rows      atomic.Int64
	unmatched atomic.Int64
	logger    *slog.Logger
}

func NewGenerator(n extract.Normalizer, tok tokenizer.Tokenizer, lang string, window int) *Generator {
	if tok == nil {
		tok = tokenizer.Words{}
	}
	return &Generator{
		normalizer: n,
		tokenizer:  tok,
		lang:       lang,
		window:     window,
		logger:     slog.Default().With("component", "mid"),
	}
}

// Rows builds the rows of one document. Spans that no token overlaps are
// left out but still listed among the mentions.
func (g *Generator) Rows(doc extract.Document) []Row {
	if len(doc.LinkedSpans) == 0 {
		return nil
	}
	labels := make([]string, len(doc.LinkedSpans))
	for i, s := range doc.LinkedSpans {
		labels[i] = s.Label
	}
	mentions := strings.Join(labels, " ")
	title := g.normalizer.Normalize(strings.ReplaceAll(doc.Title, " ", "_"))
	tokens := g.tokenizer.Tokenize(doc.Text, g.lang)
	text := []rune(doc.Text)

	var rows []Row
	for _, s := range doc.LinkedSpans {
		first, last := -1, -1
		for _, tok := range tokens {
			// a token ending right where the span starts still counts
			if tok.End < s.Start {
				continue
			}
			if tok.Start >= s.End {
				break
			}
			if first < 0 {
				first = tok.Position
			}
			last = tok.Position
		}
		if first < 0 {
			g.unmatched.Add(1)
			continue
		}
		rows = append(rows, Row{
			CurID:      doc.CurID,
			Title:      title,
			TokenStart: first,
			TokenEnd:   last,
			Label:      s.Label,
			Window:     window(text, s.Start, s.End, g.window),
			Mentions:   mentions,
		})
	}
	return rows
}

var flatten = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// window returns up to w runes on either side of [start, end), clamped to
// the text and flattened onto one line.
func window(text []rune, start, end, w int) string {
	from, to := start-w, end+w
	if from < 0 {
		from = 0
	}
	if to > len(text) {
		to = len(text)
	}
	if from >= to {
		return ""
	}
	return flatten.Replace(string(text[from:to]))
}

// WriteRows reads documents from r and writes their MID rows to w.
func (g *Generator) WriteRows(r io.Reader, w io.Writer) (int, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	n := 0
	err := extract.ReadDocuments(r, func(doc extract.Document) error {
		for _, row := range g.Rows(doc) {
			if _, err := bw.WriteString(row.String() + "\n"); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	g.rows.Add(int64(n))
	return n, bw.Flush()
}

// GenerateFile converts one extracted documents file into a MID file.
func (g *Generator) GenerateFile(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	tmp := out + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	n, err := g.WriteRows(src, dst)
	if err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("generating %s: %w", out, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	g.logger.Debug("mid file written", "path", out, "rows", n)
	return nil
}

// Stats returns the rows written and spans no token overlapped.
func (g *Generator) Stats() (rows, unmatched int64) {
	return g.rows.Load(), g.unmatched.Load()
}

// Run deals every extracted documents file under cfg.InputDir round-robin
// over workers partitions and writes one MID file per input, mirroring the
// subdirectory layout under cfg.OutputDir.
func Run(ctx context.Context, cfg config.MIDConfig, lang string, workers int, n extract.Normalizer, m *metrics.Metrics) (partition.Result, error) {
	byDir, err := partition.BySubdirectory(cfg.InputDir, func(name string) bool {
		return strings.HasSuffix(name, extract.DocumentSuffix)
	})
	if err != nil {
		return partition.Result{}, err
	}
	plan := partition.RoundRobin(byDir.Files(), workers)
	g := NewGenerator(n, tokenizer.Words{}, lang, cfg.Window)
	pool := partition.Pool{Stage: "mid", Metrics: m}
	res, err := pool.Run(ctx, plan, func(ctx context.Context, _ partition.Partition, path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(cfg.InputDir, path)
		if err != nil {
			return err
		}
		out := filepath.Join(cfg.OutputDir, strings.TrimSuffix(rel, extract.DocumentSuffix)+OutputSuffix)
		return g.GenerateFile(path, out)
	})
	rows, unmatched := g.Stats()
	g.logger.Info("mid generation complete",
		"files", res.Files,
		"failed", res.Failed,
		"rows", rows,
		"unmatched_spans", unmatched,
	)
	return res, err
}
