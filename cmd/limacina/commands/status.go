package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/printer"
	"github.com/limacina/launcher/internal/server"
)

var (
	statusServer       string
	statusOutputFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status [ADDRESS]",
	Short: "Fetch a Minecraft server's status",
	Long: `Fetch a server status document from the status endpoint.

Without ADDRESS, the status address of the current server is used. The
current server comes from VITE_APP_SERVER_NAME (or LIMACINA_SERVER_NAME),
server.name in limacina.yml, or --server.

Output Formats:
  default - Summary table (online state, players, version, MOTD)
  json    - The status document exactly as returned by the endpoint

Examples:
  limacina status
  limacina status play.example.net
  limacina status --server lobby -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusServer, "server", "s", "", "Server name to check instead of the current one")
	statusCmd.Flags().StringVarP(&statusOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, err := parseOutput(statusOutputFormat)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	if statusServer != "" {
		a.servers.SetServerName(statusServer)
	}

	var address string
	if len(args) > 0 {
		address = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeoutDuration())
	defer cancel()

	status, err := a.provider.GetServerInfo(ctx, address)
	if err != nil {
		return statusFailure(err)
	}

	if output == outputJSON {
		return printer.JSON(status)
	}

	name := "-"
	if address == "" {
		current, _ := a.servers.CurrentServer()
		name = current.Name
		address = current.URLStatus
	}
	return printer.Table([]string{"Field", "Value"}, statusRows(name, address, status))
}

func statusFailure(err error) error {
	if errors.Is(err, server.ErrDescriptorNotFound) {
		return printer.Error(
			"no current server",
			err.Error(),
			[]string{
				"Set VITE_APP_SERVER_NAME in .env",
				"Pass --server with a name from 'limacina servers'",
				"Pass the server address as an argument",
			},
		)
	}

	var httpErr *server.StatusHTTPError
	if errors.As(err, &httpErr) {
		return printer.ErrorWithContext(
			"status endpoint error",
			fmt.Sprintf("The status endpoint answered HTTP %d.", httpErr.StatusCode),
			map[string]string{"URL": httpErr.URL},
			[]string{"Check status_endpoint in limacina.yml"},
		)
	}
	return fmt.Errorf("failed to fetch server status: %w", err)
}
