package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/config"
	"github.com/palmtask/palmtask/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the palmtask config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		path := configPath
		if path == "" {
			path = config.DefaultFile()
		}

		if err := config.WriteFile(path, cfg, force); err != nil {
			if errors.Is(err, config.ErrExists) {
				fmt.Fprintf(os.Stderr, "%s %v (use --force to overwrite)\n", ui.RenderWarn("⚠"), err)
			} else {
				fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			}
			exit(1)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			printJSON(cfg)
			return
		}
		if cfg.File != "" {
			fmt.Printf("# loaded from %s\n", cfg.File)
		}
		if err := config.Encode(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exit(1)
		}
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
