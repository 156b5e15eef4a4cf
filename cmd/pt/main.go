// Command pt is the palmtask field client: it syncs the published task
// feeds into a local store and queries them offline.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/config"
	"github.com/palmtask/palmtask/internal/feed"
	"github.com/palmtask/palmtask/internal/logging"
	"github.com/palmtask/palmtask/internal/store"
	psync "github.com/palmtask/palmtask/internal/sync"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool

	cfg  config.Config
	sink *logging.Sink

	// openedStore is closed by exit so error paths still checkpoint the WAL.
	openedStore *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "pt",
	Short: "palmtask - offline task list for field sales",
	Long: `palmtask keeps the daily task list, the non-buyer list, product images and
consultant identities in a local store so they can be queried without a
network connection.

Run 'pt sync' while online, then 'pt login' to pick your sector.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exit(1)
		}
		if verbose {
			cfg.Log.Verbose = true
		}
		sink = logging.Setup(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Verbose:    cfg.Log.Verbose,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sink != nil {
			_ = sink.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.palmtask/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Echo component logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// exit closes the open store and the log sink, then exits with code.
func exit(code int) {
	closeAll()
	os.Exit(code)
}

func closeAll() {
	if openedStore != nil {
		if err := openedStore.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		openedStore = nil
	}
	if sink != nil {
		_ = sink.Close()
	}
}

// openStore opens the configured store or exits.
func openStore() *store.Store {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		exit(1)
	}
	openedStore = st
	return st
}

// newSyncer builds a syncer reading from the published endpoint, or from
// dir when it is set.
func newSyncer(st *store.Store, dir string) psync.Syncer {
	if dir != "" {
		return psync.New(st, feed.NewDirSource(dir), nil, cfg.SyncOptions(), sink.Logger("sync"))
	}
	src := feed.NewHTTPSource(cfg.FeedConfig(), sink.Logger("feed"))
	assets := feed.NewHTTPAssets(src.Client(), cfg.HTTP.UserAgent)
	return psync.New(st, src, assets, cfg.SyncOptions(), sink.Logger("sync"))
}

// loadSnapshot reads the cached collections or exits.
func loadSnapshot(ctx context.Context, st *store.Store) psync.Snapshot {
	snap, err := newSyncer(st, "").LoadCached(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading cached data: %v\n", err)
		exit(1)
	}
	if !snap.Synced() {
		fmt.Fprintf(os.Stderr, "Warning: no data synced yet, run 'pt sync' while online\n")
	}
	return snap
}

// resolveSector returns the --sector flag or the logged-in sector.
func resolveSector(ctx context.Context, st *store.Store, flag string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return s
	}
	sector, ok, err := st.Meta(ctx, store.MetaSessionSector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading session: %v\n", err)
		exit(1)
	}
	if !ok || sector == "" {
		fmt.Fprintf(os.Stderr, "Error: not logged in, run 'pt login' or pass --sector\n")
		exit(1)
	}
	return sector
}
