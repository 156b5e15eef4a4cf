// Package tabular tokenizes published spreadsheet exports into rows of fields.
//
// The tokenizer is deliberately permissive: it never fails. Quoted fields may
// contain delimiters and line breaks, a doubled quote inside a quoted field is
// one literal quote, and unbalanced quoting simply keeps the tokenizer "in
// quote" until the next quote character. Header handling belongs to the
// callers; every row, including the first, is returned.
package tabular

import (
	"strings"
)

// Comma is the delimiter used by the published feeds.
const Comma = ','

// Parse splits comma-delimited text into rows.
func Parse(text string) [][]string {
	return ParseDelim(text, Comma)
}

// ParseDelim splits text into rows using delim as the field separator.
//
// A row ends at an unquoted "\n", "\r" or "\r\n" (the pair counts as one
// terminator). A trailing row without a terminator is still emitted, but an
// empty trailing fragment produces no row.
func ParseDelim(text string, delim rune) [][]string {
	var (
		rows    [][]string
		row     []string
		field   strings.Builder
		inQuote bool
		// pending tracks whether the current row has any content yet, so a
		// quoted empty field at EOF ("") still yields a row.
		pending bool
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
		pending = false
	}

	// Scan bytes so invalid UTF-8 (Latin-1 exports) passes through untouched.
	sep := string(delim)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			pending = true
			if inQuote && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuote = !inQuote
		case !inQuote && c == sep[0] && strings.HasPrefix(text[i:], sep):
			pending = true
			endField()
			i += len(sep) - 1
		case (c == '\r' || c == '\n') && !inQuote:
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRow()
		default:
			pending = true
			field.WriteByte(c)
		}
	}

	if pending || len(row) > 0 || field.Len() > 0 {
		endRow()
	}
	return rows
}
