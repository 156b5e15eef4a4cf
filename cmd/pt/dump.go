package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/palmtask/palmtask/internal/store"
	"github.com/palmtask/palmtask/internal/tabular"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <collection>",
	Short: "Export a cached collection",
	Long: `Write every record of one cached collection to stdout.

Collections: tasks, non_buyers, sku_map, product_images, consultants.
Formats: json (default), yaml, csv.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		format, _ := cmd.Flags().GetString("format")

		st := openStore()
		defer st.Close()

		docs, err := readDocuments(ctx, st, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exit(1)
		}

		switch format {
		case "json":
			printJSON(docs)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(docs); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding YAML: %v\n", err)
				exit(1)
			}
			_ = enc.Close()
		case "csv":
			out, err := tabular.Encode(documentRows(docs))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding CSV: %v\n", err)
				exit(1)
			}
			fmt.Print(out)
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid --format %q (want json, yaml or csv)\n", format)
			exit(1)
		}
	},
}

// readDocuments loads collection name as generic documents so every
// encoder sees the same camelCase field names.
func readDocuments(ctx context.Context, st *store.Store, name string) ([]map[string]any, error) {
	var (
		records any
		err     error
	)
	switch name {
	case store.Tasks.Name():
		records, err = store.ReadAll(ctx, st, store.Tasks)
	case store.NonBuyers.Name():
		records, err = store.ReadAll(ctx, st, store.NonBuyers)
	case store.SkuMap.Name():
		records, err = store.ReadAll(ctx, st, store.SkuMap)
	case store.ProductImages.Name():
		records, err = store.ReadAll(ctx, st, store.ProductImages)
	case store.Consultants.Name():
		records, err = store.ReadAll(ctx, st, store.Consultants)
	default:
		return nil, fmt.Errorf("unknown collection %q (want one of %s)", name, strings.Join(store.CollectionNames(), ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	docs := []map[string]any{}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return docs, nil
}

// documentRows flattens docs into a header row plus one row per document.
// Columns are the union of field names, sorted; lists are comma-joined.
func documentRows(docs []map[string]any) [][]string {
	seen := make(map[string]struct{})
	for _, d := range docs {
		for k := range d {
			seen[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := [][]string{header}
	for _, d := range docs {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = cell(d[k])
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = cell(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func init() {
	dumpCmd.Flags().String("format", "json", "Output format: json, yaml or csv")
	rootCmd.AddCommand(dumpCmd)
}
