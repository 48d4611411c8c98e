package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/scaffold"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create limacina.yml and .env in the current directory",
	Long: `Write a starter configuration for the launcher.

Creates:
  • limacina.yml - Launcher configuration
  • .env         - VITE_APP_* variables (backend URL, server name and addresses)

Use --force to overwrite existing files.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing limacina.yml and .env")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting("."); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(".", forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess()
	return nil
}
