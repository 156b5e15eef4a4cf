package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/palmtask/palmtask/internal/schema"
	"github.com/palmtask/palmtask/internal/session"
	"github.com/palmtask/palmtask/internal/store"
	"github.com/palmtask/palmtask/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Select the sector to work in",
	Long: `Log into a sector using the cached consultant list. Works offline once
the consultants feed has been synced.

On a terminal the sector and password are prompted for. Otherwise pass
--sector and, when the sector has one, --password.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		sector, _ := cmd.Flags().GetString("sector")
		password, _ := cmd.Flags().GetString("password")

		snap := loadSnapshot(ctx, st)
		interactive := ui.IsTerminal(os.Stdin) && !jsonOutput

		if strings.TrimSpace(sector) == "" {
			if !interactive {
				fmt.Fprintf(os.Stderr, "Error: --sector is required when stdin is not a terminal\n")
				exit(1)
			}
			if err := promptSector(snap.Consultants, &sector); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exit(1)
			}
		}
		if password == "" && session.PasswordRequired(snap.Consultants, sector) {
			if !interactive {
				fmt.Fprintf(os.Stderr, "Error: sector %s requires --password\n", strings.TrimSpace(sector))
				exit(1)
			}
			if err := promptPassword(&password); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exit(1)
			}
		}

		consultant, err := session.Authenticate(snap.Consultants, sector, password)
		switch {
		case errors.Is(err, session.ErrUnknownSector):
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("✗"), err)
			fmt.Fprintf(os.Stderr, "   Run 'pt sync' if the sector was added recently.\n")
			exit(1)
		case err != nil:
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("✗"), err)
			exit(1)
		}

		if err := st.SetMeta(ctx, store.MetaSessionSector, strings.TrimSpace(consultant.Sector)); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving session: %v\n", err)
			exit(1)
		}

		if jsonOutput {
			printJSON(map[string]any{"sector": strings.TrimSpace(consultant.Sector), "name": consultant.Name})
			return
		}
		fmt.Printf("%s Logged in as %s (sector %s)\n", ui.RenderPass("✓"), consultant.Name, strings.TrimSpace(consultant.Sector))
	},
}

func promptSector(consultants []schema.Consultant, sector *string) error {
	input := huh.NewInput().
		Title("Sector").
		Description("Your sector code").
		Value(sector).
		Validate(func(s string) error {
			if _, ok := session.ConsultantFor(consultants, s); !ok {
				return fmt.Errorf("unknown sector")
			}
			return nil
		})
	return huh.NewForm(huh.NewGroup(input)).Run()
}

func promptPassword(password *string) error {
	input := huh.NewInput().
		Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(password)
	return huh.NewForm(huh.NewGroup(input)).Run()
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the selected sector",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st := openStore()
		defer st.Close()

		if err := st.DeleteMeta(ctx, store.MetaSessionSector); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing session: %v\n", err)
			exit(1)
		}
		if !jsonOutput {
			fmt.Printf("%s Logged out\n", ui.RenderPass("✓"))
		}
	},
}

func init() {
	loginCmd.Flags().String("sector", "", "Sector code")
	loginCmd.Flags().String("password", "", "Sector password")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
