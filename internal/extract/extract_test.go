package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

func testNormalizer() *normalize.Normalizer {
	pt := wikitable.NewPageTable()
	pt.Add("1", "Paris", false)
	pt.Add("2", "France", false)
	pt.Add("3", "New_York_City", false)
	pt.Add("4", "Café_de_Flore", false)
	return normalize.New(pt, wikitable.RedirectTable{"NYC": "New_York_City"}, nil)
}

func extractOne(t *testing.T, e *Extractor, markup string) Document {
	t.Helper()
	docs, err := e.ExtractDocuments(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("ExtractDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	return docs[0]
}

func TestExtractSingleAnchor(t *testing.T) {
	e := NewExtractor(testNormalizer(), false, nil)
	doc := extractOne(t, e, `<doc id="9" title="Trip">Visit <a href="Paris">the city</a> today</doc>`)

	if doc.CurID != "9" || doc.Title != "Trip" {
		t.Errorf("metadata = %q %q", doc.CurID, doc.Title)
	}
	if doc.Text != "Visit the city today" {
		t.Fatalf("text = %q", doc.Text)
	}
	want := []Span{{Start: 6, End: 14, Label: "Paris"}}
	if !reflect.DeepEqual(doc.LinkedSpans, want) {
		t.Errorf("spans = %+v, want %+v", doc.LinkedSpans, want)
	}
}

func TestExtractRepeatedAnchorText(t *testing.T) {
	e := NewExtractor(testNormalizer(), false, nil)
	markup := `<doc id="1" title="T">
<a href="Paris">Paris</a> and <a href="France">Paris</a> are not <a href="NYC">NYC</a>; <a href="Paris">Paris</a>!
</doc>`
	doc := extractOne(t, e, markup)
	if len(doc.LinkedSpans) != 4 {
		t.Fatalf("expected 4 spans, got %+v", doc.LinkedSpans)
	}
	prev := -1
	for _, s := range doc.LinkedSpans {
		if s.Start <= prev {
			t.Errorf("span starts must increase: %+v", doc.LinkedSpans)
		}
		prev = s.Start
	}
	labels := []string{doc.LinkedSpans[0].Label, doc.LinkedSpans[1].Label, doc.LinkedSpans[2].Label}
	if !reflect.DeepEqual(labels, []string{"Paris", "France", "New_York_City"}) {
		t.Errorf("labels = %v", labels)
	}
}

func TestSpansMatchAnchorText(t *testing.T) {
	e := NewExtractor(testNormalizer(), false, nil)
	markup := `<doc id="1" title="Ünïcode">Ünïcode
Le <a href="Caf%C3%A9%20de%20Flore">Café de Flore</a> est à <a href="Paris">Paris</a>, en <b>plein</b> <a href="France">cœur</a>.
<a href="Paris">Paris</a> <a href="France">France</a>
</doc>`
	doc := extractOne(t, e, markup)
	anchors := []string{"Café de Flore", "Paris", "cœur", "Paris", "France"}
	if len(doc.LinkedSpans) != len(anchors) {
		t.Fatalf("spans = %+v", doc.LinkedSpans)
	}
	for i, s := range doc.LinkedSpans {
		if got := doc.SpanText(s); got != anchors[i] {
			t.Errorf("span %d covers %q, want %q", i, got, anchors[i])
		}
	}
	if doc.LinkedSpans[0].Label != "Café_de_Flore" {
		t.Errorf("decoded label = %q", doc.LinkedSpans[0].Label)
	}
}

func TestExtractSkipsNestedAndBlankAnchors(t *testing.T) {
	e := NewExtractor(testNormalizer(), false, nil)
	doc := extractOne(t, e, `<doc id="1" title="T">a <a href="Paris"><b>bold</b></a> b <a href="Paris">  </a> c <a>Paris</a></doc>`)
	if len(doc.LinkedSpans) != 0 {
		t.Errorf("expected no spans, got %+v", doc.LinkedSpans)
	}
	if s := e.Stats(); s.Skipped != 3 || s.Anchors != 3 {
		t.Errorf("stats = %+v, want 3 skipped", s)
	}
}

func TestExtractNullTargets(t *testing.T) {
	markup := `<doc id="1" title="T">See <a href="Atlantis">Atlantis</a> or <a href="paris">Paris</a>.</doc>`

	keep := extractOne(t, NewExtractor(testNormalizer(), false, nil), markup)
	if len(keep.LinkedSpans) != 2 || keep.LinkedSpans[0].Label != normalize.NullTitle {
		t.Errorf("without ignoreNull the null span is kept: %+v", keep.LinkedSpans)
	}

	e := NewExtractor(testNormalizer(), true, nil)
	drop := extractOne(t, e, markup)
	want := []Span{{Start: 16, End: 21, Label: "Paris"}}
	if !reflect.DeepEqual(drop.LinkedSpans, want) {
		t.Errorf("spans = %+v, want %+v", drop.LinkedSpans, want)
	}
	if e.Stats().Nulls != 1 {
		t.Errorf("nulls = %d, want 1", e.Stats().Nulls)
	}
}

func TestLocatorMismatchDropsOnlyThatAnchor(t *testing.T) {
	loc := locator{text: "alpha beta alpha"}
	if s, _, ok := loc.find("", "alpha", " beta"); !ok || s != 0 {
		t.Fatalf("first find = %d %v", s, ok)
	}
	if _, _, ok := loc.find("", "gamma", ""); ok {
		t.Fatal("expected mismatch for absent text")
	}
	if s, e, ok := loc.find(" ", "alpha", ""); !ok || s != 11 || e != 16 {
		t.Errorf("later find = [%d,%d) %v, want [11,16)", s, e, ok)
	}
}

func TestDocumentsWithoutLinksAreKept(t *testing.T) {
	e := NewExtractor(testNormalizer(), true, nil)
	docs, err := e.ExtractDocuments(strings.NewReader(`<doc id="1" title="A">plain</doc><doc id="2" title="B">also plain</doc>`))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"linked_spans":[]`) {
		t.Errorf("empty span list should be written as []: %s", buf.String())
	}
}

func TestDecodeTarget(t *testing.T) {
	tests := map[string]string{
		"Paris":                "Paris",
		"New%20York":           "New_York",
		"New York":             "New_York",
		"AT%26T":               "AT&T",
		"100%":                 "100%",
		"Caf%C3%A9 de%20Flore": "Café_de_Flore",
		"AT%26T_100%":          "AT&T_100%",
		"50%_off%20sale":       "50%_off_sale",
		"%zz%2":                "%zz%2",
		"bad%FFbyte":           "bad\uFFFDbyte",
	}
	for in, want := range tests {
		if got := DecodeTarget(in); got != want {
			t.Errorf("DecodeTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func writeCorpus(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeCorpus(t, in, map[string]string{
		"AA/wiki_00": `<doc id="1" title="A">Visit <a href="Paris">the city</a> today</doc>`,
		"AA/wiki_01": `<doc id="2" title="B">Nothing here</doc>`,
		"AB/wiki_00": `<doc id="3" title="C"><a href="France">France</a></doc>`,
	})
	cfg := config.ExtractConfig{InputDir: in, OutputDir: out}
	res, err := Run(context.Background(), cfg, 2, testNormalizer(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Files != 3 {
		t.Errorf("files = %d, want 3", res.Files)
	}

	f, err := os.Open(filepath.Join(out, "AA", "wiki_00"+DocumentSuffix))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var docs []Document
	if err := ReadDocuments(f, func(d Document) error {
		docs = append(docs, d)
		return nil
	}); err != nil {
		t.Fatalf("ReadDocuments: %v", err)
	}
	if len(docs) != 1 || len(docs[0].LinkedSpans) != 1 || docs[0].SpanText(docs[0].LinkedSpans[0]) != "the city" {
		t.Errorf("round-tripped documents = %+v", docs)
	}

	brief, err := os.ReadFile(filepath.Join(out, "AB", "wiki_00"+BriefSuffix))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(brief), "linked_spans") || !strings.Contains(string(brief), `"curid":"3"`) {
		t.Errorf("unexpected brief: %s", brief)
	}
}

func TestRunReportsFailedFiles(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeCorpus(t, in, map[string]string{
		"AA/wiki_00": `<doc id="1" title="A">ok</doc>`,
	})
	// A directory in place of the output file makes the write fail.
	if err := os.MkdirAll(filepath.Join(out, "AA", "wiki_00"+DocumentSuffix+".tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Run(context.Background(), config.ExtractConfig{InputDir: in, OutputDir: out}, 1, testNormalizer(), nil)
	if !errors.Is(err, apperrors.ErrFilesFailed) {
		t.Errorf("expected ErrFilesFailed, got %v", err)
	}
}

func TestFileProcessorWithRunner(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeCorpus(t, in, map[string]string{
		"AA/wiki_00": `<doc id="1" title="A">Visit <a href="Paris">Paris</a></doc>`,
	})
	fp := NewFileProcessor(NewExtractor(testNormalizer(), false, nil), in, out)
	if err := processor.NewRunner().Run(context.Background(), in, fp); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "AA", "wiki_00"+DocumentSuffix)); err != nil {
		t.Errorf("documents file missing: %v", err)
	}
}

func TestFileProcessorCountsOnlyExtractedFiles(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeCorpus(t, in, map[string]string{
		"AA/wiki_00": `<doc id="1" title="A">one</doc><doc id="2" title="B">two</doc>`,
		"AA/wiki_01": `<doc id="3" title="C">three</doc>`,
		"AB/wiki_00": `<doc id="4" title="D">four</doc>`,
	})
	if err := os.MkdirAll(filepath.Join(out, "AA", "wiki_01"+DocumentSuffix+".tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
	fp := NewFileProcessor(NewExtractor(testNormalizer(), false, nil), in, out)
	err := processor.NewRunner().Run(context.Background(), in, fp)
	if !errors.Is(err, apperrors.ErrFilesFailed) {
		t.Fatalf("expected ErrFilesFailed, got %v", err)
	}
	if got := fp.Files(); got != 2 {
		t.Errorf("files = %d, want 2 (the failed file must not count)", got)
	}

	fp = NewFileProcessor(NewExtractor(testNormalizer(), false, nil), in, t.TempDir())
	aa, ab := filepath.Join(in, "AA"), filepath.Join(in, "AB")
	for _, path := range []string{filepath.Join(aa, "wiki_00"), filepath.Join(ab, "wiki_00")} {
		if err := fp.ProcessFile(context.Background(), path); err != nil {
			t.Fatal(err)
		}
		fp.AfterFile(path)
	}
	if got := fp.DirectoryStats(aa); got != (DirStats{Files: 1, Documents: 2}) {
		t.Errorf("AA stats = %+v", got)
	}
	fp.AfterDirectory(aa)
	if got := fp.DirectoryStats(aa); got != (DirStats{}) {
		t.Errorf("AA stats after AfterDirectory = %+v, want reset", got)
	}
	if got := fp.DirectoryStats(ab); got != (DirStats{Files: 1, Documents: 1}) {
		t.Errorf("AB stats = %+v, must not include AA", got)
	}
}

func BenchmarkExtractDocuments(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString(`<doc id="1" title="T">`)
		for j := 0; j < 40; j++ {
			sb.WriteString(`The <a href="Paris">city</a> lies in <a href="France">France</a>. `)
		}
		sb.WriteString("</doc>\n")
	}
	markup := sb.String()
	e := NewExtractor(testNormalizer(), false, nil)
	b.ReportAllocs()
	b.SetBytes(int64(len(markup)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ExtractDocuments(strings.NewReader(markup)); err != nil {
			b.Fatal(err)
		}
	}
}
