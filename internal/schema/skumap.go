package schema

import (
	"fmt"
	"strings"
)

// TaskSkuMap lists the SKUs attached to a task hash.
type TaskSkuMap struct {
	HashID string   `json:"hashId"`
	Skus   []string `json:"skus"`
}

// Key returns the store key for the mapping.
func (m TaskSkuMap) Key() string { return m.HashID }

// Validate checks that the mapping has a hash id.
func (m TaskSkuMap) Validate() error {
	if m.HashID == "" {
		return fmt.Errorf("hashId is required")
	}
	return nil
}

// SplitSkus splits a comma-separated SKU list into trimmed, non-empty names,
// keeping the first occurrence of each.
func SplitSkus(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// DecodeSkuMap maps the SkuMap feed. Rows need a hash id and a non-empty SKU
// list. Duplicate hash ids are all returned; the store keeps the last one.
func DecodeSkuMap(rows [][]string) ([]TaskSkuMap, DecodeStats) {
	data := dataRows(rows)
	stats := DecodeStats{Rows: len(data)}
	out := make([]TaskSkuMap, 0, len(data))

	for _, values := range data {
		if len(values) < 2 {
			stats.Dropped++
			continue
		}
		r := row{values: values}
		hashID, list := r.get(0), r.get(1)
		if hashID == "" || list == "" {
			stats.Dropped++
			continue
		}
		skus := SplitSkus(list)
		if len(skus) == 0 {
			stats.Dropped++
			continue
		}
		out = append(out, TaskSkuMap{HashID: hashID, Skus: skus})
	}

	stats.Decoded = len(out)
	return out, stats
}
