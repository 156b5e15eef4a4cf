package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/store"
	"github.com/palmtask/palmtask/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store status",
	Long: `Display the local store location and size, the record count of each
collection, the last successful sync and the logged-in sector.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
			fmt.Printf("\n%s Store not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'pt sync' to download the feeds\n\n")
			return
		}

		st := openStore()
		defer st.Close()

		counts, err := st.Counts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting records: %v\n", err)
			exit(1)
		}
		version, err := st.Version(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading schema version: %v\n", err)
			exit(1)
		}
		last, synced, err := st.LastSync(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading last sync: %v\n", err)
			exit(1)
		}
		sector, _, _ := st.Meta(ctx, store.MetaSessionSector)

		if jsonOutput {
			status := map[string]any{
				"path":          st.Path(),
				"sizeBytes":     st.Size(),
				"schemaVersion": version,
				"collections":   counts,
				"sector":        sector,
			}
			if synced {
				status["lastSync"] = last
			}
			printJSON(status)
			return
		}

		fmt.Printf("\n%s palmtask Store Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Location: %s\n", st.Path())
		fmt.Printf("Size: %s\n", humanize.Bytes(uint64(st.Size())))
		fmt.Printf("Schema: v%d\n", version)
		if synced {
			fmt.Printf("Last sync: %s (%s)\n", humanize.Time(last), last.Local().Format("2006-01-02 15:04"))
		} else {
			fmt.Printf("Last sync: %s\n", ui.RenderWarn("never"))
		}
		if sector != "" {
			fmt.Printf("Sector: %s\n", sector)
		} else {
			fmt.Printf("Sector: %s\n", ui.RenderMuted("not logged in"))
		}
		fmt.Println()
		for _, name := range store.CollectionNames() {
			fmt.Printf("  %-15s %s\n", name, humanize.Comma(int64(counts[name])))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
