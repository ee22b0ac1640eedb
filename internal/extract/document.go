package extract

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Span is an accepted anchor: a half-open [Start, End) rune range of the
// document text and the normalized target title.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Document is one extracted article. Text is the coordinate space of every
// span.
type Document struct {
	CurID       string `json:"curid"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	LinkedSpans []Span `json:"linked_spans"`
}

// Brief is a Document without its spans.
type Brief struct {
	CurID string `json:"curid"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (d Document) Brief() Brief {
	return Brief{CurID: d.CurID, Title: d.Title, Text: d.Text}
}

// SpanText returns the text covered by s.
func (d Document) SpanText(s Span) string {
	return runeSlice(d.Text, s.Start, s.End)
}

// runeSlice returns text[start:end] counted in runes. Out-of-range bounds
// are clamped.
func runeSlice(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end < start {
		return ""
	}
	b, i := 0, 0
	for b < len(text) && i < start {
		_, size := utf8.DecodeRuneInString(text[b:])
		b += size
		i++
	}
	e := b
	for e < len(text) && i < end {
		_, size := utf8.DecodeRuneInString(text[e:])
		e += size
		i++
	}
	return text[b:e]
}

// WriteDocuments writes docs as JSON lines.
func WriteDocuments(w io.Writer, docs []Document) error {
	return writeJSONLines(w, len(docs), func(i int) any { return docs[i] })
}

// WriteBriefs writes the brief form of docs as JSON lines.
func WriteBriefs(w io.Writer, docs []Document) error {
	return writeJSONLines(w, len(docs), func(i int) any { return docs[i].Brief() })
}

func writeJSONLines(w io.Writer, n int, item func(int) any) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := 0; i < n; i++ {
		if err := enc.Encode(item(i)); err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
	}
	return bw.Flush()
}

// ReadDocuments decodes JSON-lines documents from r and calls fn for each.
func ReadDocuments(r io.Reader, fn func(Document) error) error {
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))
	for n := 0; ; n++ {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding document %d: %w", n, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}
