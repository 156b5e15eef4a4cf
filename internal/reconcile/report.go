package reconcile

import (
	"math"
	"sort"
	"strings"

	"github.com/palmtask/palmtask/internal/schema"
)

// Field extracts the value a distribution groups by.
type Field func(Task) string

var (
	ByCluster   Field = func(t Task) string { return t.Cluster }
	ByCategory  Field = func(t Task) string { return t.Category }
	BySubject   Field = func(t Task) string { return t.Subject }
	ByFlagScore Field = func(t Task) string { return t.FlagScore }
)

// otherLabel groups tasks whose field is blank.
const otherLabel = "Outros"

// Bucket is one bar of a distribution.
type Bucket struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Distribution counts tasks per field value, largest bucket first.
func Distribution(tasks []Task, field Field) []Bucket {
	counts := make(map[string]int)
	for _, t := range tasks {
		label := strings.TrimSpace(field(t))
		if label == "" {
			label = otherLabel
		}
		counts[label]++
	}

	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{
			Label:   label,
			Count:   n,
			Percent: float64(n) / float64(len(tasks)) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// SkuStat summarizes how often a SKU is attached to tasks.
type SkuStat struct {
	Name     string `json:"name"`
	Tasks    int    `json:"tasks"`
	AvgCoins int    `json:"avgCoins"`
}

// TopSkus ranks SKUs by the number of tasks they appear in and returns at
// most n of them (all when n <= 0).
func TopSkus(tasks []Task, n int) []SkuStat {
	type acc struct{ tasks, coins int }
	byName := make(map[string]*acc)
	for _, t := range tasks {
		for _, sku := range t.AssociatedSkus {
			a, ok := byName[sku]
			if !ok {
				a = &acc{}
				byName[sku] = a
			}
			a.tasks++
			a.coins += t.Coins
		}
	}

	out := make([]SkuStat, 0, len(byName))
	for name, a := range byName {
		out = append(out, SkuStat{
			Name:     name,
			Tasks:    a.tasks,
			AvgCoins: int(math.Round(float64(a.coins) / float64(a.tasks))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tasks != out[j].Tasks {
			return out[i].Tasks > out[j].Tasks
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Summary is the headline view of a sector's task list.
type Summary struct {
	Tasks        int    `json:"tasks"`
	TotalCoins   int    `json:"totalCoins"`
	HighPriority int    `json:"highPriority"`
	NonBuyers    int    `json:"nonBuyers"`
	TopValue     []Task `json:"topValue"`
}

// topValueCount is how many high-value tasks a summary highlights.
const topValueCount = 3

// Summarize totals coins and picks the highest-value tasks.
func Summarize(tasks []Task) Summary {
	s := Summary{Tasks: len(tasks), TopValue: []Task{}}
	for _, t := range tasks {
		s.TotalCoins += t.Coins
		if t.Priority == schema.PriorityHigh {
			s.HighPriority++
			s.TopValue = append(s.TopValue, t)
		}
		if t.IsNonBuyer {
			s.NonBuyers++
		}
	}
	sort.SliceStable(s.TopValue, func(i, j int) bool { return s.TopValue[i].Coins > s.TopValue[j].Coins })
	if len(s.TopValue) > topValueCount {
		s.TopValue = s.TopValue[:topValueCount]
	}
	return s
}
