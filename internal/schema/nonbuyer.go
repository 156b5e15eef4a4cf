package schema

import (
	"fmt"

	"github.com/palmtask/palmtask/internal/normalize"
)

// NonBuyer is a point of sale on the "non-buyer" risk list.
type NonBuyer struct {
	Sector      string `json:"sector"`
	PdvCode     string `json:"pdvCode"`
	FantasyName string `json:"fantasyName"`
	LastVisit   string `json:"lastVisit"`

	// NormalizedCode is PdvCode without periods or whitespace; it is the
	// join key against tasks.
	NormalizedCode string `json:"normalizedCode"`
}

// Key returns the store key for the entry.
func (n NonBuyer) Key() string { return n.PdvCode }

// Validate checks that the entry carries a store code.
func (n NonBuyer) Validate() error {
	if n.PdvCode == "" {
		return fmt.Errorf("pdvCode is required")
	}
	return nil
}

// DecodeNonBuyers maps the NonBuyers feed. Rows with fewer than three
// columns or a blank store code are dropped.
func DecodeNonBuyers(rows [][]string) ([]NonBuyer, DecodeStats) {
	data := dataRows(rows)
	stats := DecodeStats{Rows: len(data)}
	out := make([]NonBuyer, 0, len(data))

	for _, values := range data {
		if len(values) < 3 {
			stats.Dropped++
			continue
		}
		r := row{values: values}
		code := r.get(1)
		if code == "" {
			stats.Dropped++
			continue
		}
		out = append(out, NonBuyer{
			Sector:         r.get(0),
			PdvCode:        code,
			FantasyName:    r.get(2),
			LastVisit:      r.get(3),
			NormalizedCode: normalize.Code(code),
		})
	}

	stats.Decoded = len(out)
	return out, stats
}
