package probability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/surface"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// TableName returns the file suffix of the table keyed by the given side.
func TableName(mode string, d surface.Direction) string {
	switch {
	case mode == config.ModeWord && d == surface.SurfaceToTitle:
		return "w2t2prob"
	case mode == config.ModeWord:
		return "t2w2prob"
	case d == surface.SurfaceToTitle:
		return "p2t2prob"
	default:
		return "t2p2prob"
	}
}

// TablePaths returns the titles-and-redirects table and the full table for
// one direction.
func TablePaths(prefix, mode string, d surface.Direction) (tnr, full string) {
	name := TableName(mode, d)
	return prefix + ".tnr." + name, prefix + "." + name
}

// Pipeline computes both directions of one mode. Each direction is built,
// written and dropped before the next one starts, so at most one map is in
// memory.
type Pipeline struct {
	cfg        config.AggregateConfig
	lang       string
	addASCII   bool
	pages      *wikitable.PageTable
	redirects  wikitable.RedirectTable
	normalizer extract.Normalizer
	metrics    *metrics.Metrics
	writer     *Writer
	logger     *slog.Logger

	// Simplify is handed to the aggregators for Chinese surfaces.
	Simplify func(string) string
}

func NewPipeline(cfg *config.Config, pages *wikitable.PageTable, redirects wikitable.RedirectTable, n extract.Normalizer, m *metrics.Metrics) *Pipeline {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Pipeline{
		cfg:        cfg.Aggregate,
		lang:       cfg.Lang,
		addASCII:   cfg.AddASCII(),
		pages:      pages,
		redirects:  redirects,
		normalizer: n,
		metrics:    m,
		writer:     NewWriter(m),
		logger:     slog.Default().With("component", "probability-pipeline", "mode", cfg.Aggregate.Mode),
	}
}

// Run writes the four tables of the configured mode. Tables already on disk
// are left alone; a direction whose two tables both exist is not rebuilt.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.cfg.LinksFile == "" && p.cfg.DocsDir == "" {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"aggregate needs a links file or a documents directory")
	}
	start := time.Now()
	for _, d := range []surface.Direction{surface.SurfaceToTitle, surface.TitleToSurface} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runDirection(ctx, d); err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
	}
	p.metrics.StageDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	p.logger.Info("probability tables complete", "duration", time.Since(start))
	return nil
}

func (p *Pipeline) runDirection(ctx context.Context, d surface.Direction) error {
	tnr, full := TablePaths(p.cfg.OutPrefix, p.cfg.Mode, d)
	name := TableName(p.cfg.Mode, d)
	if Exists(tnr) && Exists(full) {
		p.logger.Info("tables already exist, skipping direction", "direction", d.String())
		return nil
	}

	agg := surface.New(surface.Options{
		Mode:      p.cfg.Mode,
		Direction: d,
		AddASCII:  p.addASCII,
		Lang:      p.lang,
		Simplify:  p.Simplify,
	}, p.normalizer, p.metrics)
	agg.AddTitlesAndRedirects(p.pages, p.redirects)
	if _, err := p.writer.WriteTable(tnr, "tnr."+name, agg.Map()); err != nil {
		return err
	}
	if Exists(full) {
		p.logger.Info("table already exists, skipping", "path", full)
		return nil
	}
	if err := p.ingest(ctx, agg); err != nil {
		return err
	}
	_, err := p.writer.WriteTable(full, name, agg.Map())
	return err
}

func (p *Pipeline) ingest(ctx context.Context, agg *surface.Aggregator) error {
	if p.cfg.LinksFile != "" {
		r, closeFn, err := openMaybeGzip(p.cfg.LinksFile)
		if err != nil {
			return err
		}
		_, err = agg.ReadSurfaceTitleMaps(r)
		closeFn()
		if err != nil {
			return err
		}
	}
	if p.cfg.DocsDir == "" {
		return nil
	}
	plan, err := partition.BySubdirectory(p.cfg.DocsDir, func(name string) bool {
		return strings.HasSuffix(name, extract.DocumentSuffix)
	})
	if err != nil {
		return err
	}
	var spans, pairs int64
	for _, path := range plan.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		stats, err := agg.ReadDocuments(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		spans += stats.Lines
		pairs += stats.Pairs
	}
	p.logger.Info("ingested extracted documents", "dir", p.cfg.DocsDir, "spans", spans, "pairs", pairs)
	return nil
}

func openMaybeGzip(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { f.Close() }, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("opening gzip %s: %w", path, err)
	}
	return gz, func() {
		gz.Close()
		f.Close()
	}, nil
}
