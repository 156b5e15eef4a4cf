package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/reconcile"
	"github.com/palmtask/palmtask/internal/schema"
	"github.com/palmtask/palmtask/internal/ui"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks of a sector",
	Long: `List the cached tasks of the logged-in sector (or --sector), with the
non-buyer flag and SKU list derived from the other feeds.

Examples:
  pt tasks --high
  pt tasks --non-buyers --sort coins
  pt tasks --search "coca"`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		sectorFlag, _ := cmd.Flags().GetString("sector")
		sortBy, _ := cmd.Flags().GetString("sort")
		f := reconcile.TaskFilter{Sector: resolveSector(ctx, st, sectorFlag)}
		f.Cluster, _ = cmd.Flags().GetString("cluster")
		f.Category, _ = cmd.Flags().GetString("category")
		f.Subject, _ = cmd.Flags().GetString("subject")
		f.FlagScore, _ = cmd.Flags().GetString("score")
		f.Search, _ = cmd.Flags().GetString("search")
		f.NonBuyersOnly, _ = cmd.Flags().GetBool("non-buyers")
		f.HighOnly, _ = cmd.Flags().GetBool("high")
		switch sortBy {
		case "coins":
			f.SortByCoins = true
		case "", "feed":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid --sort %q (want feed or coins)\n", sortBy)
			exit(1)
		}

		snap := loadSnapshot(ctx, st)
		tasks := reconcile.FilterTasks(snap.Tasks, f)

		if jsonOutput {
			printJSON(tasks)
			return
		}
		if len(tasks) == 0 {
			fmt.Printf("No tasks for sector %s\n", f.Sector)
			return
		}

		fmt.Printf("\n%s %d tasks in sector %s\n\n", ui.RenderAccent("📋"), len(tasks), f.Sector)
		for _, t := range tasks {
			printTaskLine(t)
		}
		fmt.Println()
	},
}

func printTaskLine(t reconcile.Task) {
	marker := " "
	if t.Priority == schema.PriorityHigh {
		marker = ui.RenderWarn("★")
	}
	line := fmt.Sprintf("%s %-10s %5d  %s · %s · %s", marker, t.ID, t.Coins, t.PdvName, t.Category, t.Subject)
	if t.IsNonBuyer {
		line += " " + ui.RenderFail("[non-buyer]")
	}
	fmt.Println(line)
	if len(t.AssociatedSkus) > 0 {
		fmt.Printf("  %s\n", ui.RenderMuted(strings.Join(t.AssociatedSkus, ", ")))
	}
}

var taskCmd = &cobra.Command{
	Use:   "task <id>",
	Short: "Show one task with its SKUs and product images",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		snap := loadSnapshot(ctx, st)
		t, ok := reconcile.FindTask(snap.Tasks, args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: task %s not found\n", args[0])
			exit(1)
		}

		type skuImage struct {
			Name  string `json:"name"`
			Image string `json:"image,omitempty"`
		}
		skus := make([]skuImage, 0, len(t.AssociatedSkus))
		for _, name := range t.AssociatedSkus {
			img, _ := snap.Index.Resolve(name)
			skus = append(skus, skuImage{Name: name, Image: img})
		}

		if jsonOutput {
			printJSON(struct {
				reconcile.Task
				SkuImages []skuImage `json:"skuImages"`
			}{t, skus})
			return
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader(t.PdvName))
		fmt.Printf("ID: %s\n", t.ID)
		fmt.Printf("Store: %s (sector %s, cluster %s)\n", t.PdvCode, t.SectorCode, t.Cluster)
		fmt.Printf("Due: %s\n", t.DueLabel)
		fmt.Printf("Category: %s / %s\n", t.Category, t.Subject)
		fmt.Printf("Operation: %s\n", t.Operation)
		fmt.Printf("Score flag: %s\n", t.FlagScore)
		fmt.Printf("Coins: %d (%s)\n", t.Coins, t.Priority)
		if t.MixTotal > 0 {
			fmt.Printf("Mix: %d/%d bought, %d missing\n", t.BoughtCount, t.MixTotal, t.MissingCount)
		}
		if t.IsNonBuyer {
			fmt.Printf("%s Store is on the non-buyer list\n", ui.RenderFail("!"))
		}
		if t.Description != "" {
			fmt.Printf("\n%s\n", t.Description)
		}
		if len(skus) > 0 {
			fmt.Printf("\nSKUs:\n")
			for _, s := range skus {
				img := ui.RenderMuted("no image")
				if s.Image != "" {
					img = s.Image
				}
				fmt.Printf("  %s  %s\n", s.Name, img)
			}
		}
		fmt.Println()
	},
}

var nonBuyersCmd = &cobra.Command{
	Use:   "nonbuyers",
	Short: "List the non-buyer stores of a sector",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		sectorFlag, _ := cmd.Flags().GetString("sector")
		sector := resolveSector(ctx, st, sectorFlag)
		snap := loadSnapshot(ctx, st)
		list := reconcile.NonBuyersForSector(snap.NonBuyers, sector)

		if jsonOutput {
			printJSON(list)
			return
		}
		if len(list) == 0 {
			fmt.Printf("No non-buyers in sector %s\n", sector)
			return
		}
		fmt.Printf("\n%s %d non-buyers in sector %s\n\n", ui.RenderWarn("⚠"), len(list), sector)
		for _, nb := range list {
			fmt.Printf("  %-12s %-30s last visit %s\n", nb.PdvCode, nb.FantasyName, nb.LastVisit)
		}
		fmt.Println()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a sector's tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		sectorFlag, _ := cmd.Flags().GetString("sector")
		topN, _ := cmd.Flags().GetInt("top")
		sector := resolveSector(ctx, st, sectorFlag)
		snap := loadSnapshot(ctx, st)
		tasks := reconcile.FilterTasks(snap.Tasks, reconcile.TaskFilter{Sector: sector})

		summary := reconcile.Summarize(tasks)
		clusters := reconcile.Distribution(tasks, reconcile.ByCluster)
		categories := reconcile.Distribution(tasks, reconcile.ByCategory)
		skus := reconcile.TopSkus(tasks, topN)

		if jsonOutput {
			printJSON(map[string]any{
				"sector":     sector,
				"summary":    summary,
				"clusters":   clusters,
				"categories": categories,
				"topSkus":    skus,
			})
			return
		}

		fmt.Printf("\n%s Sector %s\n\n", ui.RenderAccent("📊"), sector)
		fmt.Printf("Tasks: %d (%d high priority, %d at non-buyers)\n", summary.Tasks, summary.HighPriority, summary.NonBuyers)
		fmt.Printf("Coins available: %d\n", summary.TotalCoins)
		if len(summary.TopValue) > 0 {
			fmt.Printf("\nTop value:\n")
			for _, t := range summary.TopValue {
				printTaskLine(t)
			}
		}
		printDistribution("By cluster", clusters)
		printDistribution("By category", categories)
		if len(skus) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Top SKUs"))
			for _, s := range skus {
				fmt.Printf("  %-30s %3d tasks  avg %d coins\n", s.Name, s.Tasks, s.AvgCoins)
			}
		}
		fmt.Println()
	},
}

func printDistribution(title string, buckets []reconcile.Bucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Printf("\n%s\n", ui.RenderHeader(title))
	for _, b := range buckets {
		fmt.Printf("  %-20s %s %3d (%.0f%%)\n", b.Label, ui.Bar(b.Percent, 20), b.Count, b.Percent)
	}
}

func init() {
	for _, c := range []*cobra.Command{tasksCmd, nonBuyersCmd, statsCmd} {
		c.Flags().String("sector", "", "Sector code (default: logged-in sector)")
	}
	tasksCmd.Flags().String("cluster", "", "Only tasks in this cluster")
	tasksCmd.Flags().String("category", "", "Only tasks in this category")
	tasksCmd.Flags().String("subject", "", "Only tasks with this subject")
	tasksCmd.Flags().String("score", "", "Only tasks with this score flag")
	tasksCmd.Flags().String("search", "", "Case-insensitive text search, SKUs included")
	tasksCmd.Flags().Bool("non-buyers", false, "Only tasks at non-buyer stores")
	tasksCmd.Flags().Bool("high", false, "Only high-priority tasks")
	tasksCmd.Flags().String("sort", "feed", "Order: feed or coins")
	statsCmd.Flags().Int("top", 10, "Number of SKUs to rank")

	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(nonBuyersCmd)
	rootCmd.AddCommand(statsCmd)
}
