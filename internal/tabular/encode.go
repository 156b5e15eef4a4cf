package tabular

import (
	"encoding/csv"
	"strings"
)

// Encode renders rows using the quoting convention Parse understands: fields
// holding delimiters, quotes or line breaks are quoted and inner quotes are
// doubled. Every row, including the last, ends with "\n".
func Encode(rows [][]string) (string, error) {
	return EncodeDelim(rows, Comma)
}

// EncodeDelim is Encode with a custom delimiter.
func EncodeDelim(rows [][]string, delim rune) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = delim
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return b.String(), nil
}
