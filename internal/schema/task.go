package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Priority is derived from a task's coin reward.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
)

// HighPriorityCoins is the reward at which a task becomes high priority.
const HighPriorityCoins = 100

// Task column defaults.
const (
	DefaultDueLabel  = "Hoje"
	DefaultPdvName   = "PDV Desconhecido"
	DefaultCluster   = "Outros"
	DefaultCategory  = "Geral"
	DefaultSubject   = "Outros"
	DefaultOperation = "Geral"
	DefaultFlagScore = "Não"
)

// Task is one row of the daily task feed, as decoded. Cross-feed fields
// (non-buyer flag, associated SKUs) are derived per session by the
// reconcile package and never stored here.
type Task struct {
	// ===== Identification =====
	ID     string `json:"id"`     // hash id, or the data-row index when the hash is blank
	HashID string `json:"hashId"` // join key into the SKU map

	// ===== Point of sale =====
	SectorCode string `json:"sectorCode"`
	PdvCode    string `json:"pdvCode"`
	PdvName    string `json:"pdvName"`
	Cluster    string `json:"cluster"`

	// ===== Classification =====
	DueLabel  string `json:"dueLabel"`
	Category  string `json:"category"`
	Subject   string `json:"subject"`
	Operation string `json:"operation"`
	FlagScore string `json:"flagScore"`

	Description string `json:"description,omitempty"`

	// ===== Reward =====
	Coins    int      `json:"coins"`
	Priority Priority `json:"priority"`

	// ===== Product mix ("N/M" bought vs total) =====
	BoughtCount  int `json:"boughtCount"`
	MixTotal     int `json:"mixTotal"`
	MissingCount int `json:"missingCount"`
}

// Key returns the store key for the task.
func (t Task) Key() string { return t.ID }

// Validate checks the invariants every decoded task satisfies.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Coins < 0 {
		return fmt.Errorf("coins must be >= 0 (got %d)", t.Coins)
	}
	if t.MixTotal > 0 && (t.BoughtCount < 0 || t.BoughtCount > t.MixTotal) {
		return fmt.Errorf("bought count %d outside mix total %d", t.BoughtCount, t.MixTotal)
	}
	return nil
}

// PriorityFor derives the priority of a coin reward.
func PriorityFor(coins int) Priority {
	if coins >= HighPriorityCoins {
		return PriorityHigh
	}
	return PriorityNormal
}

// SplitMix parses a "bought/total" pair. Without a "/" both are zero.
// Negative values clamp to zero and bought never exceeds a positive total.
func SplitMix(s string) (bought, total int) {
	before, after, found := strings.Cut(s, "/")
	if !found {
		return 0, 0
	}
	bought, _ = parseLeadingInt(before)
	total, _ = parseLeadingInt(after)
	if total < 0 {
		total = 0
	}
	if bought < 0 {
		bought = 0
	}
	if total > 0 && bought > total {
		bought = total
	}
	return bought, total
}

// DecodeTasks maps the Tasks feed to records. Every non-blank data row
// yields a task; rows whose fields are all blank are dropped.
func DecodeTasks(rows [][]string) ([]Task, DecodeStats) {
	data := dataRows(rows)
	stats := DecodeStats{Rows: len(data)}
	tasks := make([]Task, 0, len(data))

	for i, values := range data {
		if blank(values) {
			stats.Dropped++
			continue
		}
		r := row{values: values}

		hashID := r.get(8)
		id := hashID
		if id == "" {
			id = strconv.Itoa(i)
			r.defaulted = true
		}

		coins := r.int(10)
		if coins < 0 {
			coins = 0
			r.defaulted = true
		}
		missing := r.int(6)
		if missing < 0 {
			missing = 0
			r.defaulted = true
		}
		bought, total := SplitMix(r.get(5))

		tasks = append(tasks, Task{
			ID:           id,
			HashID:       hashID,
			SectorCode:   r.get(1),
			PdvCode:      r.get(2),
			PdvName:      r.text(3, DefaultPdvName),
			Cluster:      r.text(4, DefaultCluster),
			DueLabel:     r.text(0, DefaultDueLabel),
			Category:     r.text(11, DefaultCategory),
			Subject:      r.text(12, DefaultSubject),
			Operation:    r.text(9, DefaultOperation),
			FlagScore:    r.text(13, DefaultFlagScore),
			Description:  r.get(7),
			Coins:        coins,
			Priority:     PriorityFor(coins),
			BoughtCount:  bought,
			MixTotal:     total,
			MissingCount: missing,
		})
		if r.defaulted {
			stats.Defaulted++
		}
	}

	stats.Decoded = len(tasks)
	return tasks, stats
}
