package surface

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder strips diacritics. A transformer carries state, so each Aggregator
// owns one.
type folder struct {
	t transform.Transformer
}

func newFolder() *folder {
	return &folder{t: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)}
}

// phrase folds each space-separated token of s.
func (f *folder) phrase(s string) string {
	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		tokens[i] = f.token(tok)
	}
	return strings.Join(tokens, " ")
}

// token strips diacritics, lower-cases and keeps only [a-z0-9].
func (f *folder) token(s string) string {
	stripped, _, err := transform.String(f.t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)
	var b strings.Builder
	b.Grow(len(stripped))
	for i := 0; i < len(stripped); i++ {
		c := stripped[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ASCIIFold returns the ASCII-folded form of a space-separated phrase, e.g.
// "Suárez Báñez" becomes "suarez banez".
func ASCIIFold(phrase string) string {
	return newFolder().phrase(phrase)
}
