// Package sqldump reads MediaWiki SQL dump files: the CREATE TABLE block that
// names the columns and the INSERT statements that carry the rows.
package sqldump

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// Schema maps a column name to its zero-based ordinal in declaration order.
type Schema map[string]int

// Width is the number of declared columns, i.e. the expected field count of
// every row.
func (s Schema) Width() int {
	return len(s)
}

// Require returns a fatal error naming the first absent column. Indexing a
// row through a schema that failed Require is unsafe.
func (s Schema) Require(table string, columns ...string) error {
	for _, col := range columns {
		if _, ok := s[col]; !ok {
			return apperrors.Newf(apperrors.ErrMissingColumn, apperrors.ExitBadInput,
				"column %q not found in %s schema (%d columns parsed)", col, table, len(s))
		}
	}
	return nil
}

// schemaParser consumes dump lines one at a time until the column block of
// the first CREATE TABLE statement is complete.
type schemaParser struct {
	started bool
	done    bool
	columns []string
}

// feed returns true while the line belonged to the DDL block.
func (p *schemaParser) feed(line string) bool {
	if p.done {
		return false
	}
	if !p.started {
		if strings.HasPrefix(line, "CREATE TABLE") {
			p.started = true
			return true
		}
		return false
	}
	if strings.Contains(line, "PRIMARY KEY") {
		p.done = true
		return true
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	p.columns = append(p.columns, strings.Trim(fields[0], "`"))
	return true
}

func (p *schemaParser) schema() Schema {
	s := make(Schema, len(p.columns))
	for i, col := range p.columns {
		s[col] = i
	}
	return s
}

// ParseSchema extracts the column ordinals from the first CREATE TABLE block
// in r. A dump without DDL yields an empty schema; callers must Require the
// columns they index.
func ParseSchema(r io.Reader) (Schema, error) {
	var p schemaParser
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		p.feed(scanner.Text())
		if p.done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning schema: %w", err)
	}
	return p.schema(), nil
}
