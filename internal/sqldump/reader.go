package sqldump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// INSERT lines in page dumps routinely exceed a megabyte.
const maxLineSize = 64 * 1024 * 1024

// LineReader yields decoded lines from a plain or gzip-compressed dump.
type LineReader struct {
	path     string
	encoding string
	file     *os.File
	gz       *gzip.Reader
	scanner  *bufio.Scanner
	line     int
	err      error
}

// Open prepares path for line-by-line reading. Files ending in .gz are
// decompressed. With encoding iso-8859-1 bytes are transcoded to UTF-8;
// with utf-8 every line is validated and the first invalid one stops the
// reader with an encoding error.
func Open(path, encoding string) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump %s: %w", path, err)
	}
	lr := &LineReader{path: path, encoding: strings.ToLower(encoding), file: f}
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		lr.gz = gz
		r = gz
	}
	if lr.encoding == config.EncodingLatin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	lr.scanner = bufio.NewScanner(r)
	lr.scanner.Buffer(make([]byte, 1024*1024), maxLineSize)
	return lr, nil
}

// Next advances to the next line. It returns false at EOF or on error.
func (lr *LineReader) Next() (string, bool) {
	if lr.err != nil || !lr.scanner.Scan() {
		return "", false
	}
	lr.line++
	text := lr.scanner.Text()
	if lr.encoding != config.EncodingLatin1 && !utf8.ValidString(text) {
		lr.err = apperrors.EncodingError(lr.path, lr.line, lr.encoding)
		return "", false
	}
	return text, true
}

// Line returns the 1-based number of the last line returned by Next.
func (lr *LineReader) Line() int {
	return lr.line
}

func (lr *LineReader) Err() error {
	if lr.err != nil {
		return lr.err
	}
	if err := lr.scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", lr.path, err)
	}
	return nil
}

func (lr *LineReader) Close() error {
	if lr.gz != nil {
		lr.gz.Close()
	}
	return lr.file.Close()
}
