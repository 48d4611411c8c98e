package commands

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configFile    string
	configFileSet bool
	envFile       string
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "limacina",
	Short: "Limacina - Minecraft server launcher shell",
	Long: `Limacina is a launcher shell for a Minecraft server community.

It checks the configured server's status through mcstatus.io, resolves the
local home directory, talks to the launcher backend API, and gates its views
on a short initialization sequence.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFileSet = cmd.Flags().Changed("config")
		setupLogging(verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// setupLogging sends [LEVEL] log lines to stderr when verbose is set and
// discards them otherwise.
func setupLogging(verbose bool) {
	log.SetFlags(log.LstdFlags)
	if verbose {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(io.Discard)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "limacina.yml", "Path to limacina.yml (optional unless given explicitly)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file with VITE_APP_* / LIMACINA_* variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print log output to stderr")
}
