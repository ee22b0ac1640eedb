package mid

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func testNormalizer() *normalize.Normalizer {
	pt := wikitable.NewPageTable()
	pt.Add("1", "Paris", false)
	pt.Add("2", "France", false)
	pt.Add("3", "Travel_Guide", false)
	return normalize.New(pt, wikitable.RedirectTable{}, nil)
}

var sampleDoc = extract.Document{
	CurID: "7",
	Title: "Travel Guide",
	Text:  "Visit the city today,\nin\tFrance.",
	LinkedSpans: []extract.Span{
		{Start: 6, End: 14, Label: "Paris"},
		{Start: 25, End: 31, Label: "France"},
	},
}

func TestRows(t *testing.T) {
	g := NewGenerator(testNormalizer(), nil, "en", 4)
	rows := g.Rows(sampleDoc)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	first := rows[0]
	if first.TokenStart != 1 || first.TokenEnd != 2 {
		t.Errorf("token range = [%d,%d], want [1,2]", first.TokenStart, first.TokenEnd)
	}
	if first.Window != "sit the city tod" {
		t.Errorf("window = %q", first.Window)
	}
	if first.Title != "Travel_Guide" {
		t.Errorf("title = %q, want normalized article title", first.Title)
	}
	if first.Mentions != "Paris France" {
		t.Errorf("mentions = %q", first.Mentions)
	}
	second := rows[1]
	if second.TokenStart != 5 || second.TokenEnd != 5 {
		t.Errorf("token range = [%d,%d], want [5,5]", second.TokenStart, second.TokenEnd)
	}
	if second.Window != " in France." {
		t.Errorf("window must be clamped and flattened, got %q", second.Window)
	}
	if strings.Count(first.String(), "\t") != 7 {
		t.Errorf("row must have 8 fields: %q", first.String())
	}
}

func TestRowsAdjacentTokenNotCounted(t *testing.T) {
	g := NewGenerator(testNormalizer(), nil, "en", 0)
	doc := extract.Document{
		CurID:       "1",
		Title:       "X",
		Text:        "ab cd ef",
		LinkedSpans: []extract.Span{{Start: 3, End: 5, Label: "Paris"}},
	}
	rows := g.Rows(doc)
	if len(rows) != 1 || rows[0].TokenStart != 1 || rows[0].TokenEnd != 1 {
		t.Fatalf("rows = %+v, want only the token cd", rows)
	}
	if rows[0].Window != "cd" {
		t.Errorf("window = %q", rows[0].Window)
	}
	if rows[0].Title != normalize.NullTitle {
		t.Errorf("unknown article title should normalize to null, got %q", rows[0].Title)
	}
}

func TestRowsTokenEndingAtSpanStart(t *testing.T) {
	g := NewGenerator(testNormalizer(), nil, "en", 0)
	doc := extract.Document{
		CurID:       "1",
		Title:       "X",
		Text:        "ab cd ef",
		LinkedSpans: []extract.Span{{Start: 2, End: 5, Label: "Paris"}},
	}
	rows := g.Rows(doc)
	if len(rows) != 1 || rows[0].TokenStart != 0 || rows[0].TokenEnd != 1 {
		t.Fatalf("rows = %+v, want tokens ab through cd", rows)
	}
}

func TestWriteRowsSkipsDocumentsWithoutLinks(t *testing.T) {
	var in bytes.Buffer
	docs := []extract.Document{{CurID: "1", Title: "Empty", Text: "nothing", LinkedSpans: []extract.Span{}}, sampleDoc}
	if err := extract.WriteDocuments(&in, docs); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	n, err := NewGenerator(testNormalizer(), nil, "en", 2).WriteRows(&in, &out)
	if err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if n != 2 || strings.Count(out.String(), "\n") != 2 {
		t.Errorf("wrote %d rows:\n%s", n, out.String())
	}
	for _, line := range strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "MID\t7\t") {
			t.Errorf("unexpected row %q", line)
		}
	}
}

func TestRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, name := range []string{"AA/wiki_00.json", "AA/wiki_01.json", "AB/wiki_00.json"} {
		path := filepath.Join(in, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := extract.WriteDocuments(f, []extract.Document{sampleDoc}); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	if err := os.WriteFile(filepath.Join(in, "AA", "wiki_00.json.brief"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.MIDConfig{InputDir: in, OutputDir: out, Window: 3}
	res, err := Run(context.Background(), cfg, "en", 2, testNormalizer(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Files != 3 {
		t.Errorf("files = %d, want 3 (brief files excluded)", res.Files)
	}
	data, err := os.ReadFile(filepath.Join(out, "AB", "wiki_00"+OutputSuffix))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != 2 {
		t.Errorf("unexpected MID file:\n%s", data)
	}
}
