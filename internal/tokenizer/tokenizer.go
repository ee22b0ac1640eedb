// Package tokenizer splits surfaces and document text into tokens. Tokens
// carry rune offsets into the input so callers can map them back onto
// extracted plain text.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one token and its half-open [Start, End) rune span in the input.
type Token struct {
	Term     string
	Start    int
	End      int
	Position int
}

// Tokenizer splits text written in lang into tokens.
type Tokenizer interface {
	Tokenize(text, lang string) []Token
}

// Whitespace splits on single spaces and drops empty pieces. It is the
// default surface tokenizer and leaves case untouched.
type Whitespace struct{}

func (Whitespace) Tokenize(text, _ string) []Token {
	tokens := make([]Token, 0, strings.Count(text, " ")+1)
	start := 0
	runePos := 0
	for i := 0; i <= len(text); {
		if i == len(text) || text[i] == ' ' {
			if i > start {
				term := text[start:i]
				n := utf8.RuneCountInString(term)
				tokens = append(tokens, Token{
					Term:     term,
					Start:    runePos - n,
					End:      runePos,
					Position: len(tokens),
				})
			}
			i++
			runePos++
			start = i
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		runePos++
	}
	return tokens
}

// Words emits lower-cased runs of letters and digits. Han ideographs are
// emitted one per token since there is no dictionary to group them.
type Words struct{}

func (Words) Tokenize(text, _ string) []Token {
	var tokens []Token
	var b strings.Builder
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tokens = append(tokens, Token{
			Term:     b.String(),
			Start:    start,
			End:      end,
			Position: len(tokens),
		})
		b.Reset()
		start = -1
	}
	pos := 0
	for _, r := range text {
		switch {
		case isHan(r):
			flush(pos)
			start = pos
			b.WriteRune(r)
			flush(pos + 1)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = pos
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			flush(pos)
		}
		pos++
	}
	flush(pos)
	return tokens
}

func isHan(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// Terms returns just the token strings.
func Terms(tokens []Token) []string {
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
