// Package normalize builds stable join keys and match keys from free text.
//
// All functions are pure and idempotent: f(f(x)) == f(x).
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Code strips whitespace and periods from a store code, so "123.45 " and
// "12345" join.
func Code(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Text lower-cases s, removes diacritic marks, drops everything that is not
// an ASCII letter, digit, underscore or whitespace, and collapses runs of
// whitespace into single spaces.
func Text(s string) string {
	if s == "" {
		return ""
	}
	folded := foldMarks(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case isWord(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// Tokens splits normalized text on whitespace and keeps tokens longer than
// minLen bytes.
func Tokens(normalized string, minLen int) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) > minLen {
			out = append(out, tok)
		}
	}
	return out
}

func isWord(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// foldMarks decomposes s and drops combining marks ("é" -> "e").
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
