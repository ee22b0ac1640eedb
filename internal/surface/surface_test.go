package surface

import (
	"bytes"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/normalize"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/internal/wikitable"
	"github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/config"
)

func testTables() (*wikitable.PageTable, wikitable.RedirectTable) {
	pt := wikitable.NewPageTable()
	pt.Add("1", "Paris", false)
	pt.Add("2", "Paris_(Texas)", false)
	pt.Add("3", "José_Martí", false)
	pt.Add("4", "Lutetia", true)
	return pt, wikitable.RedirectTable{"Lutetia": "Paris"}
}

func newAggregator(opts Options) *Aggregator {
	pt, rt := testTables()
	return New(opts, normalize.New(pt, rt, nil), nil)
}

func sorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func TestMultiMap(t *testing.T) {
	mm := NewMultiMap()
	mm.Add("paris", "Paris")
	mm.Add("paris", "Paris_(Texas)")
	mm.Add("paris", "Paris")
	mm.Add("texas", "Texas")
	if mm.Len() != 2 || mm.Pairs() != 4 {
		t.Errorf("len = %d pairs = %d", mm.Len(), mm.Pairs())
	}
	if got := mm.Values("paris"); !reflect.DeepEqual(got, []string{"Paris", "Paris_(Texas)", "Paris"}) {
		t.Errorf("values = %v", got)
	}
	if mm.Values("missing") != nil {
		t.Error("missing key should have no values")
	}
	if !reflect.DeepEqual(mm.Keys(), []string{"paris", "texas"}) {
		t.Errorf("keys = %v", mm.Keys())
	}
}

func TestASCIIFold(t *testing.T) {
	tests := map[string]string{
		"josé martí":   "jose marti",
		"Suárez":       "suarez",
		"f.c. köln":    "fc koln",
		"ñandú 2000":   "nandu 2000",
		"Москва":       "",
		"already ok 1": "already ok 1",
	}
	for in, want := range tests {
		if got := ASCIIFold(in); got != want {
			t.Errorf("ASCIIFold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddTitlesAndRedirectsPhrase(t *testing.T) {
	pt, rt := testTables()
	a := newAggregator(Options{Mode: config.ModePhrase, AddASCII: true})
	a.AddTitlesAndRedirects(pt, rt)
	mm := a.Map()

	if got := mm.Values("paris (texas)"); !reflect.DeepEqual(got, []string{"Paris_(Texas)"}) {
		t.Errorf("paris (texas) -> %v", got)
	}
	if got := mm.Values("josé martí"); !reflect.DeepEqual(got, []string{"José_Martí"}) {
		t.Errorf("josé martí -> %v", got)
	}
	if got := mm.Values("jose marti"); !reflect.DeepEqual(got, []string{"José_Martí"}) {
		t.Errorf("folded variant missing: %v", got)
	}
	if got := mm.Values("lutetia"); !reflect.DeepEqual(got, []string{"Paris", "Paris"}) {
		t.Errorf("redirect surface and its folded copy should point at the target, got %v", got)
	}
	if got := mm.Values("paris"); len(got) != 2 {
		t.Errorf("an ASCII surface is registered once more as its folded form, got %v", got)
	}
}

func TestFoldedVariantShiftsCounts(t *testing.T) {
	pt := wikitable.NewPageTable()
	pt.Add("1", "Cafe", false)
	pt.Add("2", "Café", false)
	a := New(Options{Mode: config.ModePhrase, AddASCII: true},
		normalize.New(pt, wikitable.RedirectTable{}, nil), nil)
	a.AddTitlesAndRedirects(pt, wikitable.RedirectTable{})

	if got := sorted(a.Map().Values("cafe")); !reflect.DeepEqual(got, []string{"Cafe", "Cafe", "Café"}) {
		t.Errorf("cafe -> %v, want Cafe twice and Café once", got)
	}
	if got := a.Map().Values("café"); !reflect.DeepEqual(got, []string{"Café"}) {
		t.Errorf("café -> %v", got)
	}
}

func TestAddTitlesAndRedirectsTitleDirection(t *testing.T) {
	pt, rt := testTables()
	a := newAggregator(Options{Mode: config.ModePhrase, Direction: TitleToSurface})
	a.AddTitlesAndRedirects(pt, rt)
	if got := sorted(a.Map().Values("Paris")); !reflect.DeepEqual(got, []string{"lutetia", "paris"}) {
		t.Errorf("Paris -> %v", got)
	}
	if a.Map().Values("Lutetia") != nil {
		t.Error("redirect pages must not be registered as titles")
	}
}

func TestAddTitlesAndRedirectsWord(t *testing.T) {
	pt, rt := testTables()
	a := newAggregator(Options{Mode: config.ModeWord})
	a.AddTitlesAndRedirects(pt, rt)
	mm := a.Map()
	if got := sorted(mm.Values("paris")); !reflect.DeepEqual(got, []string{"Paris", "Paris_(Texas)"}) {
		t.Errorf("paris -> %v", got)
	}
	if got := mm.Values("(texas)"); !reflect.DeepEqual(got, []string{"Paris_(Texas)"}) {
		t.Errorf("(texas) -> %v", got)
	}
}

func TestChineseSeeding(t *testing.T) {
	pt := wikitable.NewPageTable()
	pt.Add("1", "歐巴馬·貝拉克", false)
	simplify := func(s string) string { return strings.ReplaceAll(s, "歐", "欧") }
	a := New(Options{Mode: config.ModePhrase, Lang: "zh", Simplify: simplify},
		normalize.New(pt, wikitable.RedirectTable{}, nil), nil)
	a.AddTitlesAndRedirects(pt, wikitable.RedirectTable{})
	for _, surface := range []string{"歐巴馬 貝拉克", "欧巴馬 貝拉克", "欧巴馬貝拉克"} {
		if got := a.Map().Values(surface); len(got) != 1 {
			t.Errorf("%q -> %v", surface, got)
		}
	}

	w := New(Options{Mode: config.ModeWord, Lang: "zh", Simplify: simplify},
		normalize.New(pt, wikitable.RedirectTable{}, nil), nil)
	w.AddTitlesAndRedirects(pt, wikitable.RedirectTable{})
	if !reflect.DeepEqual(w.Map().Keys(), []string{"欧巴馬", "歐巴馬", "貝拉克"}) {
		t.Errorf("keys = %v", w.Map().Keys())
	}
	if got := w.Map().Values("貝拉克"); len(got) != 2 {
		t.Errorf("貝拉克 -> %v, want the token and its unchanged simplified copy", got)
	}
}

const linksFile = "The City\tParis\n" +
	"paris\tparis\n" +
	"lutèce\tLutetia\n" +
	"broken line\n" +
	"atlantis\tAtlantis\n" +
	"paris of texas\tParis_(Texas)\n"

func TestReadSurfaceTitleMapsPhrase(t *testing.T) {
	a := newAggregator(Options{Mode: config.ModePhrase, AddASCII: true})
	stats, err := a.ReadSurfaceTitleMaps(strings.NewReader(linksFile))
	if err != nil {
		t.Fatalf("ReadSurfaceTitleMaps: %v", err)
	}
	if stats.Lines != 6 || stats.Bad != 1 || stats.Nulls != 1 {
		t.Errorf("stats = %+v", stats)
	}
	mm := a.Map()
	if got := mm.Values("the city"); !reflect.DeepEqual(got, []string{"Paris", "Paris"}) {
		t.Errorf("the city -> %v, want the surface and its folded copy", got)
	}
	if got := mm.Values("lutece"); !reflect.DeepEqual(got, []string{"Paris"}) {
		t.Errorf("folded redirect surface -> %v", got)
	}
	if mm.Values("atlantis") != nil {
		t.Error("unresolved targets must be dropped")
	}
}

func TestReadSurfaceTitleMapsWord(t *testing.T) {
	a := newAggregator(Options{Mode: config.ModeWord})
	if _, err := a.ReadSurfaceTitleMaps(strings.NewReader(linksFile)); err != nil {
		t.Fatal(err)
	}
	mm := a.Map()
	if got := sorted(mm.Values("paris")); !reflect.DeepEqual(got, []string{"Paris", "Paris_(Texas)"}) {
		t.Errorf("paris -> %v", got)
	}
	if mm.Values("paris of texas") != nil {
		t.Error("word mode must not register whole phrases")
	}
	if got := mm.Values("of"); !reflect.DeepEqual(got, []string{"Paris_(Texas)"}) {
		t.Errorf("of -> %v", got)
	}
}

func TestReadDocuments(t *testing.T) {
	docs := []extract.Document{{
		CurID: "1",
		Title: "T",
		Text:  "Visit the City today and Atlantis",
		LinkedSpans: []extract.Span{
			{Start: 6, End: 14, Label: "Paris"},
			{Start: 25, End: 33, Label: normalize.NullTitle},
		},
	}}
	var buf bytes.Buffer
	if err := extract.WriteDocuments(&buf, docs); err != nil {
		t.Fatal(err)
	}
	a := newAggregator(Options{Mode: config.ModePhrase, Direction: TitleToSurface})
	stats, err := a.ReadDocuments(&buf)
	if err != nil {
		t.Fatalf("ReadDocuments: %v", err)
	}
	if stats.Pairs != 1 || stats.Nulls != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := a.Map().Values("Paris"); !reflect.DeepEqual(got, []string{"the city"}) {
		t.Errorf("Paris -> %v", got)
	}
}

func BenchmarkReadSurfaceTitleMaps(b *testing.B) {
	input := strings.Repeat(linksFile, 1000)
	b.ReportAllocs()
	b.SetBytes(int64(len(input)))
	for i := 0; i < b.N; i++ {
		a := newAggregator(Options{Mode: config.ModePhrase, AddASCII: true})
		if _, err := a.ReadSurfaceTitleMaps(strings.NewReader(input)); err != nil {
			b.Fatal(err)
		}
	}
}
