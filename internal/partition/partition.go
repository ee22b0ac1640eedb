// Package partition statically splits a corpus of input files into
// partitions and processes each partition in its own goroutine. Files within
// a partition are handled sequentially; partitions share no state.
package partition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// Partition is a fixed list of files owned by one worker.
type Partition struct {
	ID    int
	Name  string
	Files []string
}

// Plan is the full static assignment of files to partitions.
type Plan []Partition

// Files returns every file of the plan in partition order.
func (p Plan) Files() []string {
	var files []string
	for _, part := range p {
		files = append(files, part.Files...)
	}
	return files
}

// BySubdirectory creates one partition per subdirectory of root, in name
// order. Regular files whose name satisfies match (all files when match is
// nil) are included, sorted. Plain files directly under root are ignored.
func BySubdirectory(root string, match func(name string) bool) (Plan, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus root %s: %w", root, err)
	}
	var plan Plan
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", dir, err)
		}
		part := Partition{ID: len(plan), Name: e.Name()}
		for _, f := range files {
			if !f.Type().IsRegular() || match != nil && !match(f.Name()) {
				continue
			}
			part.Files = append(part.Files, filepath.Join(dir, f.Name()))
		}
		sort.Strings(part.Files)
		plan = append(plan, part)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Name < plan[j].Name })
	for i := range plan {
		plan[i].ID = i
	}
	return plan, nil
}

// RoundRobin deals files over n partitions in order: file i goes to
// partition i mod n.
func RoundRobin(files []string, n int) Plan {
	if n <= 0 {
		n = 1
	}
	plan := make(Plan, n)
	for i := range plan {
		plan[i] = Partition{ID: i, Name: fmt.Sprintf("worker-%d", i)}
	}
	for i, f := range files {
		plan[i%n].Files = append(plan[i%n].Files, f)
	}
	return plan
}

// FileFunc processes one file of a partition.
type FileFunc func(ctx context.Context, part Partition, path string) error

// Result counts what a run did.
type Result struct {
	Files  int64
	Failed int64
}

// Pool runs plans. Limit caps the number of partitions in flight; zero means
// one goroutine per partition.
type Pool struct {
	Stage   string
	Limit   int
	Metrics *metrics.Metrics
}

// Run is Pool.Run with an unlabelled stage and no exported metrics.
func Run(ctx context.Context, plan Plan, limit int, fn FileFunc) (Result, error) {
	return Pool{Stage: "default", Limit: limit}.Run(ctx, plan, fn)
}

// Run starts one task per partition and waits for all of them. A failing or
// panicking file is logged and counted without stopping its partition; the
// returned error wraps ErrFilesFailed with the count. Cancelling ctx stops
// every partition before its next file.
func (p Pool) Run(ctx context.Context, plan Plan, fn FileFunc) (Result, error) {
	m := p.Metrics
	if m == nil {
		m = metrics.NewNop()
	}
	logger := slog.Default().With("component", "partition", "stage", p.Stage)
	ok := m.FilesProcessedTotal.WithLabelValues(p.Stage, "ok")
	bad := m.FilesProcessedTotal.WithLabelValues(p.Stage, "failed")

	var files, failed atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if p.Limit > 0 {
		g.SetLimit(p.Limit)
	}
	for _, part := range plan {
		logger.Info("partition scheduled", "partition", part.Name, "files", len(part.Files))
		g.Go(func() error {
			for _, path := range part.Files {
				if err := gctx.Err(); err != nil {
					return err
				}
				files.Add(1)
				if err := runFile(gctx, part, path, fn); err != nil {
					failed.Add(1)
					bad.Inc()
					logger.Error("file failed",
						"partition", part.Name,
						"path", path,
						"error", err,
					)
					continue
				}
				ok.Inc()
			}
			logger.Debug("partition done", "partition", part.Name)
			return nil
		})
	}
	err := g.Wait()
	res := Result{Files: files.Load(), Failed: failed.Load()}
	m.StageDuration.WithLabelValues(p.Stage).Observe(time.Since(start).Seconds())
	logger.Info("partitions joined",
		"partitions", len(plan),
		"files", res.Files,
		"failed", res.Failed,
		"duration", time.Since(start),
	)
	if err != nil {
		return res, err
	}
	if res.Failed > 0 {
		return res, apperrors.Newf(apperrors.ErrFilesFailed, apperrors.ExitPartialFail,
			"%s: %d of %d files failed", p.Stage, res.Failed, res.Files)
	}
	return res, nil
}

func runFile(ctx context.Context, part Partition, path string, fn FileFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v\n%s", path, r, debug.Stack())
		}
	}()
	return fn(ctx, part, path)
}
