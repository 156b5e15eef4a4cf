package reconcile

import (
	"sort"
	"strconv"
	"strings"

	"github.com/palmtask/palmtask/internal/schema"
)

// TaskFilter selects tasks for display. Sector is required: an empty sector
// selects nothing. Empty string criteria match everything.
type TaskFilter struct {
	Sector    string
	Cluster   string
	Category  string
	Subject   string
	FlagScore string

	// Search is a case-insensitive substring matched against every text
	// field of the task and its SKUs.
	Search string

	NonBuyersOnly bool
	HighOnly      bool

	// SortByCoins orders the result by coins, highest first. Otherwise feed
	// order is kept.
	SortByCoins bool
}

// FilterTasks returns the tasks matching f.
func FilterTasks(tasks []Task, f TaskFilter) []Task {
	sector := strings.TrimSpace(f.Sector)
	if sector == "" {
		return []Task{}
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := []Task{}
	for _, t := range tasks {
		switch {
		case strings.TrimSpace(t.SectorCode) != sector:
			continue
		case !matchExact(t.Cluster, f.Cluster),
			!matchExact(t.Category, f.Category),
			!matchExact(t.Subject, f.Subject),
			!matchExact(t.FlagScore, f.FlagScore):
			continue
		case f.NonBuyersOnly && !t.IsNonBuyer:
			continue
		case f.HighOnly && t.Priority != schema.PriorityHigh:
			continue
		case search != "" && !strings.Contains(haystack(t), search):
			continue
		}
		out = append(out, t)
	}

	if f.SortByCoins {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Coins > out[j].Coins })
	}
	return out
}

// NonBuyersForSector returns the non-buyer entries of one sector.
func NonBuyersForSector(nonBuyers []schema.NonBuyer, sector string) []schema.NonBuyer {
	sector = strings.TrimSpace(sector)
	out := []schema.NonBuyer{}
	if sector == "" {
		return out
	}
	for _, nb := range nonBuyers {
		if strings.TrimSpace(nb.Sector) == sector {
			out = append(out, nb)
		}
	}
	return out
}

// FindTask returns the task with the given id.
func FindTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func matchExact(value, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.TrimSpace(value) == want
}

func haystack(t Task) string {
	parts := []string{
		t.ID, t.HashID, t.SectorCode, t.PdvCode, t.PdvName, t.Cluster,
		t.DueLabel, t.Category, t.Subject, t.Operation, t.FlagScore,
		t.Description, strconv.Itoa(t.Coins), string(t.Priority),
	}
	parts = append(parts, t.AssociatedSkus...)
	return strings.ToLower(strings.Join(parts, "\x00"))
}
