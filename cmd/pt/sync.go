package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/feed"
	psync "github.com/palmtask/palmtask/internal/sync"
	"github.com/palmtask/palmtask/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download every feed into the local store",
	Long: `Fetch the five published feeds, decode them and replace the cached
collections.

A failed sync changes nothing: the previous data stays available offline.
A secondary feed that answers without data is skipped and keeps its
previous contents.

Use --dir to import <feed>.csv exports from a directory instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		st := openStore()
		defer st.Close()

		source := "published feeds"
		if dir != "" {
			source = dir
		}
		if !jsonOutput {
			fmt.Printf("%s Syncing from %s...\n", ui.RenderAccent("🔄"), source)
		}

		out, err := newSyncer(st, dir).Synchronize(ctx)
		if err != nil {
			reportSyncError(err)
			exit(1)
		}

		if jsonOutput {
			printJSON(syncSummary(out))
			return
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), out.Duration().Round(time.Millisecond))
		for _, f := range feed.All {
			if n, ok := out.Records[f]; ok {
				fmt.Printf("   %-15s %d\n", f, n)
			}
		}
		for _, f := range out.Skipped {
			fmt.Printf("   %-15s %s\n", f, ui.RenderWarn("skipped (kept cached data)"))
		}
		if out.AvatarsInlined+out.AvatarsFailed > 0 {
			fmt.Printf("   Avatars: %d inlined, %d failed\n", out.AvatarsInlined, out.AvatarsFailed)
		}
		fmt.Printf("   Tasks at non-buyer stores: %d\n", out.NonBuyerTasks)
	},
}

func reportSyncError(err error) {
	var ue *psync.UpstreamError
	switch {
	case errors.Is(err, psync.ErrNetworkUnavailable):
		fmt.Fprintf(os.Stderr, "%s Offline: %v\n", ui.RenderWarn("⚠"), err)
		fmt.Fprintf(os.Stderr, "   Cached data is unchanged and still available.\n")
	case errors.As(err, &ue):
		fmt.Fprintf(os.Stderr, "%s Feed %s failed: %v\n", ui.RenderFail("✗"), ue.Feed, ue.Err)
		fmt.Fprintf(os.Stderr, "   Cached data is unchanged and still available.\n")
	case errors.Is(err, psync.ErrPersistence):
		fmt.Fprintf(os.Stderr, "%s Some collections could not be saved: %v\n", ui.RenderFail("✗"), err)
	default:
		fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
	}
}

type syncResult struct {
	StartedAt      time.Time      `json:"startedAt"`
	DurationMS     int64          `json:"durationMs"`
	Records        map[string]int `json:"records"`
	Skipped        []string       `json:"skipped"`
	AvatarsInlined int            `json:"avatarsInlined"`
	AvatarsFailed  int            `json:"avatarsFailed"`
	NonBuyerTasks  int            `json:"nonBuyerTasks"`
}

func syncSummary(out psync.Outcome) syncResult {
	r := syncResult{
		StartedAt:      out.StartedAt,
		DurationMS:     out.Duration().Milliseconds(),
		Records:        make(map[string]int, len(out.Records)),
		Skipped:        []string{},
		AvatarsInlined: out.AvatarsInlined,
		AvatarsFailed:  out.AvatarsFailed,
		NonBuyerTasks:  out.NonBuyerTasks,
	}
	for f, n := range out.Records {
		r.Records[string(f)] = n
	}
	for _, f := range out.Skipped {
		r.Skipped = append(r.Skipped, string(f))
	}
	return r
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exit(1)
	}
}

func init() {
	syncCmd.Flags().String("dir", "", "Import <feed>.csv exports from this directory")
	rootCmd.AddCommand(syncCmd)
}
