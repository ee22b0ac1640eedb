package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Token
	}{
		{"simple", "new york", []Token{{"new", 0, 3, 0}, {"york", 4, 8, 1}}},
		{"double space", "a  b", []Token{{"a", 0, 1, 0}, {"b", 3, 4, 1}}},
		{"multibyte", "café noir", []Token{{"café", 0, 4, 0}, {"noir", 5, 9, 1}}},
		{"empty", "", []Token{}},
		{"only spaces", "   ", []Token{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Whitespace{}.Tokenize(tt.in, "en")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWords(t *testing.T) {
	got := Words{}.Tokenize("Visit the city, Paris-1900!", "en")
	want := []string{"visit", "the", "city", "paris", "1900"}
	if terms := Terms(got); !reflect.DeepEqual(terms, want) {
		t.Fatalf("terms = %q, want %q", terms, want)
	}
	if got[3].Start != 16 || got[3].End != 21 {
		t.Errorf("paris span = [%d,%d), want [16,21)", got[3].Start, got[3].End)
	}
}

func TestWordsHan(t *testing.T) {
	got := Words{}.Tokenize("北京ab", "zh")
	want := []Token{{"北", 0, 1, 0}, {"京", 1, 2, 1}, {"ab", 2, 4, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %+v, want %+v", got, want)
	}
}

func TestSpansMatchText(t *testing.T) {
	text := "Ünïcode text, with  gaps and 東京 too"
	runes := []rune(text)
	for _, tok := range []Tokenizer{Whitespace{}, Words{}} {
		for _, tk := range tok.Tokenize(text, "en") {
			span := string(runes[tk.Start:tk.End])
			if !strings.EqualFold(span, tk.Term) {
				t.Errorf("%T: span %q does not match term %q", tok, span, tk.Term)
			}
		}
	}
}

func BenchmarkWords(b *testing.B) {
	text := strings.Repeat("Paris is the capital and most populous city of France. ", 50)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Words{}.Tokenize(text, "en")
	}
}
