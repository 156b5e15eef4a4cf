// Package reconcile derives cross-feed fields on tasks.
//
// Reconciliation is pure and total. It never mutates its inputs and every
// output task carries a defined non-buyer flag and SKU list. The derived
// fields live only in memory; callers re-run Reconcile after every load.
package reconcile

import (
	"github.com/palmtask/palmtask/internal/normalize"
	"github.com/palmtask/palmtask/internal/schema"
)

// Task is a decoded task enriched with cross-feed fields.
type Task struct {
	schema.Task

	// IsNonBuyer is set when the task's store code is on the non-buyer list.
	IsNonBuyer bool `json:"isNonBuyer"`

	// AssociatedSkus lists the SKUs mapped to the task's hash id, in feed
	// order. Never nil.
	AssociatedSkus []string `json:"associatedSkus"`
}

// Reconcile joins tasks against the non-buyer list (by normalized store
// code) and the SKU map (by hash id). When the SKU map has several entries
// for one hash id the last one wins, matching what the store keeps.
func Reconcile(tasks []schema.Task, nonBuyers []schema.NonBuyer, skuMap []schema.TaskSkuMap) []Task {
	codes := make(map[string]struct{}, len(nonBuyers))
	for _, nb := range nonBuyers {
		if code := normalize.Code(nb.PdvCode); code != "" {
			codes[code] = struct{}{}
		}
	}

	skus := make(map[string][]string, len(skuMap))
	for _, m := range skuMap {
		skus[m.HashID] = m.Skus
	}

	out := make([]Task, len(tasks))
	for i, t := range tasks {
		_, nonBuyer := codes[normalize.Code(t.PdvCode)]

		associated := []string{}
		if list, ok := skus[t.HashID]; ok && t.HashID != "" {
			associated = append(associated, list...)
		}

		out[i] = Task{
			Task:           t,
			IsNonBuyer:     nonBuyer,
			AssociatedSkus: associated,
		}
	}
	return out
}
