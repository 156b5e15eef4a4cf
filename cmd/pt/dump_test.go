package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/palmtask/palmtask/internal/feed"
	psync "github.com/palmtask/palmtask/internal/sync"
)

func TestDocumentRows(t *testing.T) {
	docs := []map[string]any{
		{"hashId": "h1", "skus": []any{"Coffee", "Sugar"}},
		{"hashId": "h2", "coins": float64(150), "note": nil},
	}
	want := [][]string{
		{"coins", "hashId", "note", "skus"},
		{"", "h1", "", "Coffee, Sugar"},
		{"150", "h2", "", ""},
	}
	if diff := cmp.Diff(want, documentRows(docs)); diff != "" {
		t.Errorf("documentRows mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentRows_Empty(t *testing.T) {
	got := documentRows(nil)
	if len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("expected a single empty header row, got %#v", got)
	}
}

func TestSyncSummary(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	out := psync.Outcome{
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
		Records:       map[feed.Feed]int{feed.Tasks: 3},
		Skipped:       []feed.Feed{feed.ProductImages},
		NonBuyerTasks: 1,
	}
	want := syncResult{
		StartedAt:     start,
		DurationMS:    1500,
		Records:       map[string]int{"tasks": 3},
		Skipped:       []string{"product_images"},
		NonBuyerTasks: 1,
	}
	if diff := cmp.Diff(want, syncSummary(out)); diff != "" {
		t.Errorf("syncSummary mismatch (-want +got):\n%s", diff)
	}
}
