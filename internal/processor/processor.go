// Package processor walks a directory of extracted wiki dump files and hands
// each file to a Processor, calling its hooks after every file, after every
// subdirectory and once at the end.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// Processor consumes dump files one at a time. AfterFile is only called for
// files whose ProcessFile succeeded.
type Processor interface {
	ProcessFile(ctx context.Context, path string) error
	AfterFile(path string)
	AfterDirectory(dir string)
	Finish() error
}

// Runner drives a Processor over a corpus sequentially.
type Runner struct {
	logger *slog.Logger
}

func NewRunner() *Runner {
	return &Runner{logger: slog.Default().With("component", "processor")}
}

// Run visits every subdirectory of root in name order, then calls Finish. A
// file that fails is logged and counted, and the walk continues; the
// returned error reports how many failed.
func (r *Runner) Run(ctx context.Context, root string, p Processor) error {
	dirs, err := listEntries(root, true)
	if err != nil {
		return err
	}
	var failed, total int
	for _, dir := range dirs {
		f, n, err := r.runDirectory(ctx, dir, p)
		failed += f
		total += n
		if err != nil {
			return err
		}
	}
	if err := p.Finish(); err != nil {
		return fmt.Errorf("finishing processor: %w", err)
	}
	return failedError(failed, total)
}

// RunDirectory processes the regular files of a single directory.
func (r *Runner) RunDirectory(ctx context.Context, dir string, p Processor) error {
	failed, total, err := r.runDirectory(ctx, dir, p)
	if err != nil {
		return err
	}
	return failedError(failed, total)
}

func (r *Runner) runDirectory(ctx context.Context, dir string, p Processor) (failed, total int, err error) {
	files, err := listEntries(dir, false)
	if err != nil {
		return 0, 0, err
	}
	r.logger.Info("processing directory", "dir", dir, "files", len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return failed, total, err
		}
		total++
		if err := p.ProcessFile(ctx, path); err != nil {
			failed++
			r.logger.Error("file failed", "path", path, "error", err)
			continue
		}
		p.AfterFile(path)
	}
	p.AfterDirectory(dir)
	return failed, total, nil
}

func failedError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return apperrors.Newf(apperrors.ErrFilesFailed, apperrors.ExitPartialFail,
		"%d of %d files failed", failed, total)
}

// listEntries returns the sorted paths of the subdirectories (dirs=true) or
// regular files (dirs=false) directly under root.
func listEntries(root string, dirs bool) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", root, err)
	}
	var paths []string
	for _, e := range entries {
		if dirs && e.IsDir() || !dirs && e.Type().IsRegular() {
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
