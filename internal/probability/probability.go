// Package probability turns surface/title multi-maps into conditional
// probability tables: for every key Y, the frequency of each associated X
// divided by the total count of Y.
package probability

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

// Source is a key to values mapping with repeated values.
type Source interface {
	Keys() []string
	Values(key string) []string
}

// Row is one line of a table: P(X | Y) = Count / Total.
type Row struct {
	Y           string
	X           string
	Probability float64
	Count       int
	Total       int
}

func (r Row) String() string {
	return fmt.Sprintf("%s\t%s\t%f\t%d/%d", r.Y, r.X, r.Probability, r.Count, r.Total)
}

// Compute calls fn for every (Y, X) pair of src. Keys and, within a key, X
// values are visited in sorted order.
func Compute(src Source, fn func(Row) error) error {
	for _, y := range src.Keys() {
		values := src.Values(y)
		counts := make(map[string]int, len(values))
		for _, x := range values {
			counts[x]++
		}
		xs := make([]string, 0, len(counts))
		for x := range counts {
			xs = append(xs, x)
		}
		sort.Strings(xs)
		total := len(values)
		for _, x := range xs {
			c := counts[x]
			row := Row{Y: y, X: x, Probability: float64(c) / float64(total), Count: c, Total: total}
			if err := fn(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Writer writes probability tables, skipping tables already on disk.
type Writer struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewWriter(m *metrics.Metrics) *Writer {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Writer{
		metrics: m,
		logger:  slog.Default().With("component", "probability"),
	}
}

// Exists reports whether the table at path has already been written.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteTable writes src to path through a temporary file. If path already
// exists nothing is computed and written is false.
func (w *Writer) WriteTable(path, table string, src Source) (written bool, err error) {
	if Exists(path) {
		w.logger.Info("table already exists, skipping", "path", path)
		return false, nil
	}
	start := time.Now()
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", tmp, err)
	}
	rows, err := w.write(f, table, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return false, fmt.Errorf("renaming %s: %w", tmp, err)
	}
	w.logger.Info("table written",
		"path", path,
		"table", table,
		"rows", rows,
		"duration", time.Since(start),
	)
	return true, nil
}

func (w *Writer) write(out io.Writer, table string, src Source) (int64, error) {
	bw := bufio.NewWriterSize(out, 1<<20)
	counter := w.metrics.ProbabilityRowsTotal.WithLabelValues(table)
	var rows int64
	err := Compute(src, func(r Row) error {
		if _, err := bw.WriteString(r.String() + "\n"); err != nil {
			return err
		}
		rows++
		counter.Inc()
		return nil
	})
	if err != nil {
		return rows, err
	}
	return rows, bw.Flush()
}
