package commands

import (
	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/printer"
)

var serversOutputFormat string

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the configured servers",
	Long: `List the server descriptors known to the launcher.

The primary server (from the environment or server: in limacina.yml) comes
first, followed by the servers: list. The current server is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runServers,
}

func init() {
	serversCmd.Flags().StringVarP(&serversOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(serversCmd)
}

func runServers(cmd *cobra.Command, args []string) error {
	output, err := parseOutput(serversOutputFormat)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	if output == outputJSON {
		return printer.JSON(a.servers.Snapshot())
	}

	list := a.servers.Servers()
	if len(list) == 0 {
		printer.Info("No servers configured\n")
		return nil
	}

	current := a.servers.ServerName()
	rows := make([][]string, len(list))
	for i, d := range list {
		marker := ""
		if d.Name == current {
			marker = "*"
		}
		rows[i] = []string{marker, d.Name, displayOrDash(d.URLStatus), displayOrDash(d.URLLauncher)}
	}
	return printer.Table([]string{"", "Name", "Status address", "Launcher URL"}, rows)
}
