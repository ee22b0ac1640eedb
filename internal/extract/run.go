package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

const (
	DocumentSuffix = ".json"
	BriefSuffix    = ".json.brief"
)

var _ processor.Processor = (*FileProcessor)(nil)

// FileProcessor extracts one dump file into a documents file and a brief
// file under outputDir, mirroring the file's path below inputDir.
type FileProcessor struct {
	extractor *Extractor
	inputDir  string
	outputDir string

	files     atomic.Int64
	documents atomic.Int64

	mu     sync.Mutex
	dirs   map[string]*DirStats
	logger *slog.Logger
}

// DirStats counts the successfully extracted files of one directory.
type DirStats struct {
	Files     int64
	Documents int64
}

func NewFileProcessor(e *Extractor, inputDir, outputDir string) *FileProcessor {
	return &FileProcessor{
		extractor: e,
		inputDir:  inputDir,
		outputDir: outputDir,
		dirs:      make(map[string]*DirStats),
		logger:    slog.Default().With("component", "extract"),
	}
}

// OutputPath returns the documents file written for input path.
func (p *FileProcessor) OutputPath(path string) (string, error) {
	rel, err := filepath.Rel(p.inputDir, path)
	if err != nil {
		return "", fmt.Errorf("locating %s under %s: %w", path, p.inputDir, err)
	}
	return filepath.Join(p.outputDir, rel) + DocumentSuffix, nil
}

func (p *FileProcessor) ProcessFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := p.OutputPath(path)
	if err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	docs, err := p.extractor.ExtractDocuments(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("extracting %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := writeAtomic(out, func(f *os.File) error { return WriteDocuments(f, docs) }); err != nil {
		return err
	}
	brief := out[:len(out)-len(DocumentSuffix)] + BriefSuffix
	if err := writeAtomic(brief, func(f *os.File) error { return WriteBriefs(f, docs) }); err != nil {
		return err
	}
	p.documents.Add(int64(len(docs)))
	p.record(filepath.Dir(path), 0, int64(len(docs)))
	p.logger.Debug("file extracted", "path", path, "documents", len(docs))
	return nil
}

func (p *FileProcessor) record(dir string, files, documents int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.dirs[dir]
	if !ok {
		s = &DirStats{}
		p.dirs[dir] = s
	}
	s.Files += files
	s.Documents += documents
}

func (p *FileProcessor) AfterFile(path string) {
	p.files.Add(1)
	p.record(filepath.Dir(path), 1, 0)
}

// AfterDirectory logs what was extracted from dir and resets its counters.
func (p *FileProcessor) AfterDirectory(dir string) {
	p.mu.Lock()
	var s DirStats
	if d, ok := p.dirs[dir]; ok {
		s = *d
		delete(p.dirs, dir)
	}
	p.mu.Unlock()
	p.logger.Info("directory extracted",
		"dir", dir,
		"files", s.Files,
		"documents", s.Documents,
	)
}

// DirectoryStats returns the counters of dir since its last AfterDirectory.
func (p *FileProcessor) DirectoryStats(dir string) DirStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.dirs[dir]; ok {
		return *d
	}
	return DirStats{}
}

// Files returns the number of files extracted without error.
func (p *FileProcessor) Files() int64 {
	return p.files.Load()
}

// Finish logs the skip counters of the whole run.
func (p *FileProcessor) Finish() error {
	s := p.extractor.Stats()
	p.logger.Info("extraction complete",
		"files", p.files.Load(),
		"documents", p.documents.Load(),
		"parsed_documents", s.Documents,
		"anchors", s.Anchors,
		"accepted", s.Accepted,
		"skipped", s.Skipped,
		"offset_mismatches", s.Mismatched,
		"null_targets", s.Nulls,
	)
	return nil
}

func writeAtomic(path string, fn func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// Run extracts the whole corpus under cfg.InputDir with one partition per
// top-level subdirectory. Files inside a partition run sequentially; at most
// workers partitions run at once.
func Run(ctx context.Context, cfg config.ExtractConfig, workers int, n Normalizer, m *metrics.Metrics) (partition.Result, error) {
	plan, err := partition.BySubdirectory(cfg.InputDir, nil)
	if err != nil {
		return partition.Result{}, err
	}
	fp := NewFileProcessor(NewExtractor(n, cfg.IgnoreNull, m), cfg.InputDir, cfg.OutputDir)
	pool := partition.Pool{Stage: "extract", Limit: workers, Metrics: m}
	res, runErr := pool.Run(ctx, plan, func(ctx context.Context, part partition.Partition, path string) error {
		err := fp.ProcessFile(ctx, path)
		if err == nil {
			fp.AfterFile(path)
		}
		if path == part.Files[len(part.Files)-1] {
			fp.AfterDirectory(filepath.Dir(path))
		}
		return err
	})
	if err := fp.Finish(); err != nil {
		return res, err
	}
	return res, runErr
}
