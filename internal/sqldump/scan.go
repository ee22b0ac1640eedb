package sqldump

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/metrics"
)

const progressInterval = 1_000_000

// Row is one parsed tuple of a dump table.
type Row struct {
	Fields []string
	schema Schema
}

// Get returns the raw field for column, still quoted if it was a literal.
// Callers must have validated the column through Schema.Require.
func (r Row) Get(column string) string {
	return r.Fields[r.schema[column]]
}

// Title returns the unquoted value of column.
func (r Row) Title(column string) string {
	return UnquoteField(r.Get(column))
}

// Stats summarises one dump scan.
type Stats struct {
	Lines int64
	Rows  int64
	Bad   int64
}

// Scanner streams rows out of SQL dump files.
type Scanner struct {
	encoding string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewScanner(encoding string, m *metrics.Metrics) *Scanner {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Scanner{
		encoding: encoding,
		metrics:  m,
		logger:   slog.Default().With("component", "sqldump"),
	}
}

// Scan parses the DDL of path, checks the required columns, and calls fn for
// every well-formed row. Rows whose quoting is broken or whose field count
// differs from the schema are counted as bad and skipped. An error from fn
// aborts the scan.
func (s *Scanner) Scan(ctx context.Context, path, table string, required []string, fn func(Row) error) (Stats, error) {
	lr, err := Open(path, s.encoding)
	if err != nil {
		return Stats{}, err
	}
	defer lr.Close()

	var (
		stats  Stats
		ddl    schemaParser
		schema Schema
	)
	s.logger.Info("scanning dump", "path", path, "table", table)
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		stats.Lines++
		if ddl.feed(line) {
			if ddl.done {
				schema = ddl.schema()
				if err := schema.Require(table, required...); err != nil {
					return stats, err
				}
				s.logger.Info("parsed schema", "table", table, "columns", schema.Width())
			}
			continue
		}
		if !strings.Contains(line, "INSERT INTO") {
			continue
		}
		if schema == nil {
			schema = ddl.schema()
			if err := schema.Require(table, required...); err != nil {
				return stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		start := strings.Index(line, "(")
		if start < 0 {
			continue
		}
		tuples, terr := SplitTuples(line[start:])
		if terr != nil {
			stats.Bad++
			s.metrics.DumpRowsTotal.WithLabelValues(table, "bad").Inc()
			s.logger.Warn("truncated insert statement", "path", path, "line", lr.Line(), "error", terr)
		}
		for _, tuple := range tuples {
			fields, err := SplitRow(',', tuple)
			if err != nil || len(fields) != schema.Width() {
				stats.Bad++
				s.metrics.DumpRowsTotal.WithLabelValues(table, "bad").Inc()
				s.logger.Debug("skipping malformed row",
					"table", table,
					"fields", len(fields),
					"expected", schema.Width(),
				)
				continue
			}
			stats.Rows++
			s.metrics.DumpRowsTotal.WithLabelValues(table, "ok").Inc()
			if err := fn(Row{Fields: fields, schema: schema}); err != nil {
				return stats, fmt.Errorf("handling %s row: %w", table, err)
			}
			if stats.Rows%progressInterval == 0 {
				s.logger.Info("dump progress", "table", table, "rows", stats.Rows, "bad", stats.Bad)
			}
		}
	}
	if err := lr.Err(); err != nil {
		return stats, err
	}
	if schema == nil {
		if err := ddl.schema().Require(table, required...); err != nil {
			return stats, err
		}
	}
	s.logger.Info("dump scan complete",
		"table", table,
		"lines", stats.Lines,
		"rows", stats.Rows,
		"bad", stats.Bad,
	)
	return stats, nil
}
