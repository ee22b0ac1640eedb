package sqldump

import (
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisurface/pkg/errors"
)

// SplitRow splits the contents of one SQL value tuple on delim, leaving
// single-quoted literals intact. A backslash inside a literal escapes the
// following byte, so \' does not close it. Fields keep their quotes.
func SplitRow(delim byte, s string) ([]string, error) {
	fields := make([]string, 0, 8)
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			end, err := skipLiteral(s, i)
			if err != nil {
				return nil, err
			}
			i = end
		case delim:
			fields = append(fields, s[last:i])
			last = i + 1
		}
	}
	fields = append(fields, s[last:])
	return fields, nil
}

// skipLiteral returns the index of the quote closing the literal opened at
// s[open].
func skipLiteral(s string, open int) (int, error) {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			return i, nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrMalformedRow, apperrors.ExitBadInput,
		"unterminated literal starting at offset %d", open)
}

// SplitTuples returns the contents of every top-level (...) group in an
// INSERT statement's VALUES list, without the parentheses.
func SplitTuples(values string) ([]string, error) {
	var tuples []string
	start := -1
	for i := 0; i < len(values); i++ {
		switch values[i] {
		case '\'':
			end, err := skipLiteral(values, i)
			if err != nil {
				return tuples, err
			}
			i = end
		case '(':
			if start < 0 {
				start = i + 1
			}
		case ')':
			if start >= 0 {
				tuples = append(tuples, values[start:i])
				start = -1
			}
		}
	}
	if start >= 0 {
		return tuples, apperrors.Newf(apperrors.ErrMalformedRow, apperrors.ExitBadInput,
			"unterminated tuple starting at offset %d", start-1)
	}
	return tuples, nil
}

// UnquoteField strips exactly one enclosing quote from each end and removes
// backslash escapes. Titles may legitimately begin or end with a quote, so
// trimming every quote would corrupt them.
func UnquoteField(field string) string {
	if len(field) >= 2 && field[0] == '\'' && field[len(field)-1] == '\'' {
		field = field[1 : len(field)-1]
	}
	if strings.Contains(field, `\`) {
		field = strings.ReplaceAll(field, `\`, "")
	}
	return field
}
