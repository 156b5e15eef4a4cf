package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/daemon"
	"github.com/palmtask/palmtask/internal/feed"
	psync "github.com/palmtask/palmtask/internal/sync"
	"github.com/palmtask/palmtask/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import feed exports whenever they change",
	Long: `Watch a directory for <feed>.csv exports and sync them into the store
once the directory has been quiet for the debounce interval.

The directory defaults to watch.dir from the config file. Stop with Ctrl+C.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Watch.Dir
		}
		debounce, _ := cmd.Flags().GetDuration("debounce")
		if debounce <= 0 {
			debounce = cfg.Watch.Debounce
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st := openStore()
		defer st.Close()

		d, err := daemon.NewWithConfig(newSyncer(st, dir), dir, &daemon.Config{
			DebounceInterval: debounce,
			SyncOnStart:      true,
			OnSync:           printWatchSync,
			Logger:           sink.Logger("daemon"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s Watching %s (debounce %v), Ctrl+C to stop\n", ui.RenderAccent("👀"), d.Dir(), debounce)

		// Start blocks until the signal context is cancelled, then stops the daemon.
		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error running watcher: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s Stopped\n", ui.RenderPass("✓"))
	},
}

func printWatchSync(out psync.Outcome, err error) {
	stamp := time.Now().Format("15:04:05")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s Import failed: %v\n", stamp, ui.RenderFail("✗"), err)
		return
	}
	fmt.Printf("%s %s Imported %d tasks in %v", stamp, ui.RenderPass("✓"), out.Records[feed.Tasks], out.Duration().Round(time.Millisecond))
	if len(out.Skipped) > 0 {
		fmt.Printf(" (%d feeds missing)", len(out.Skipped))
	}
	fmt.Println()
}

func init() {
	watchCmd.Flags().String("dir", "", "Directory to watch (default: watch.dir)")
	watchCmd.Flags().Duration("debounce", 0, "Quiet period before importing (default: watch.debounce)")
	rootCmd.AddCommand(watchCmd)
}
