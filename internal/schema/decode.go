package schema

import (
	"fmt"
	"math"
	"strings"
)

// DecodeStats counts what a decoder did with the data rows of a feed.
type DecodeStats struct {
	Rows      int // data rows seen (header excluded)
	Decoded   int // records produced
	Dropped   int // rows rejected by the required-field check
	Defaulted int // records where at least one field fell back to a default
}

func (s DecodeStats) String() string {
	return fmt.Sprintf("rows=%d decoded=%d dropped=%d defaulted=%d", s.Rows, s.Decoded, s.Dropped, s.Defaulted)
}

// dataRows discards the header row.
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

// row reads trimmed positional fields and remembers whether any default was
// applied.
type row struct {
	values    []string
	defaulted bool
}

func (r *row) get(i int) string {
	if i < 0 || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

// text returns column i, or def when the column is missing or blank.
func (r *row) text(i int, def string) string {
	v := r.get(i)
	if v == "" {
		if def != "" {
			r.defaulted = true
		}
		return def
	}
	return v
}

// int parses column i, falling back to 0.
func (r *row) int(i int) int {
	n, ok := parseLeadingInt(r.get(i))
	if !ok && r.get(i) != "" {
		r.defaulted = true
	}
	return n
}

// parseLeadingInt parses an optional sign followed by decimal digits at the
// start of s, ignoring anything after them ("12 coins" -> 12). It reports
// false when s has no leading integer.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		// saturate instead of overflowing on absurd spreadsheet values
		d := int(s[digits] - '0')
		if n > (math.MaxInt-d)/10 {
			n = math.MaxInt
		} else {
			n = n*10 + d
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// blank reports whether every field of values is empty after trimming.
func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
