package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/initseq"
	"github.com/limacina/launcher/internal/persist"
	"github.com/limacina/launcher/internal/printer"
	"github.com/limacina/launcher/internal/router"
	"github.com/limacina/launcher/internal/server"
)

// Store records used by the launcher itself.
const (
	launcherRecord = "launcher"
	profileRecord  = "profile"
)

var (
	startRoute        string
	startServer       string
	startOutputFormat string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Initialize the launcher and open a view",
	Long: `Run the initialization sequence and render the requested view.

The sequence fetches the current server's status and resolves the home
directory concurrently, then waits a short floor delay before marking the
launcher ready. Views are only rendered once the launcher is ready.

Views:
  /         Home: current server status
  /home     Home (alias)
  /profile  Profile: home directory and stored profile

The selected server is remembered in the local store and reused on the next
start unless --server is given.

Examples:
  limacina start
  limacina start --route /profile
  limacina start --server lobby --output json`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startRoute, "route", "r", "/", "View to open (path or name from the route table)")
	startCmd.Flags().StringVarP(&startServer, "server", "s", "", "Server name to select (remembered for later runs)")
	startCmd.Flags().StringVarP(&startOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(startCmd)
}

// startView is the JSON form of a rendered view.
type startView struct {
	Session string         `json:"session"`
	Route   router.Route   `json:"route"`
	Core    any            `json:"core"`
	Server  any            `json:"server"`
	Profile map[string]any `json:"profile,omitempty"`
}

func runStart(cmd *cobra.Command, args []string) error {
	output, err := parseOutput(startOutputFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp()
	if err != nil {
		return err
	}

	route, ok := lookupRoute(a.routes, startRoute)
	if !ok {
		return printer.Error(
			"unknown route",
			fmt.Sprintf("No view is registered for %q.", startRoute),
			[]string{"Run 'limacina routes' to list the available views"},
		)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := selectServer(ctx, a, store, startServer); err != nil {
		return err
	}

	if err := a.sequencer.Initialize(ctx); err != nil {
		return initFailure(err)
	}

	var profile map[string]any
	if route.Page == router.PageProfile {
		profile, err = store.Get(ctx, profileRecord)
		if err != nil {
			return fmt.Errorf("failed to read profile: %w", err)
		}
	}

	if output == outputJSON {
		return printer.JSON(startView{
			Session: a.sessionID,
			Route:   route,
			Core:    a.core.Snapshot(),
			Server:  a.servers.Snapshot(),
			Profile: profile,
		})
	}

	printer.Success("Launcher ready (%s)\n", route.Name)
	switch route.Page {
	case router.PageProfile:
		return a.renderProfile(profile)
	default:
		return a.renderHome()
	}
}

// selectServer applies the server selection. An explicit name is validated
// against the server list and saved; otherwise a previously saved name is
// reused when it still exists.
func selectServer(ctx context.Context, a *app, store persist.Store, name string) error {
	if name != "" {
		a.servers.SetServerName(name)
		if _, err := a.servers.Current(); err != nil {
			return printer.Error(
				"unknown server",
				err.Error(),
				[]string{"Run 'limacina servers' to list the configured servers"},
			)
		}
		return store.Save(ctx, launcherRecord, map[string]any{"serverName": name})
	}

	saved, err := store.Get(ctx, launcherRecord)
	if err != nil {
		log.Printf("[WARN] Failed to read saved server selection: %v", err)
		return nil
	}
	if prev, ok := saved["serverName"].(string); ok && prev != "" {
		previous := a.servers.ServerName()
		a.servers.SetServerName(prev)
		if _, err := a.servers.Current(); err != nil {
			log.Printf("[WARN] Saved server %q is no longer configured, using %q", prev, previous)
			a.servers.SetServerName(previous)
		}
	}
	return nil
}

// initFailure turns an initialization error into a user-facing error.
func initFailure(err error) error {
	var joinErr *initseq.JoinError
	if errors.As(err, &joinErr) {
		details := make(map[string]string, len(joinErr.Failures))
		for _, f := range joinErr.Failures {
			details[f.Task] = f.Err.Error()
		}
		suggestions := []string{"Re-run with --verbose for details"}
		if joinErr.Failed(initseq.TaskServerStatus) {
			if errors.Is(err, server.ErrDescriptorNotFound) {
				suggestions = append(suggestions, "Set VITE_APP_SERVER_NAME or pass --server with a configured name")
			} else {
				suggestions = append(suggestions, "Check that the status endpoint is reachable")
			}
		}
		return printer.ErrorWithContext(
			"initialization failed",
			"The launcher did not become ready because a startup task failed.",
			details,
			suggestions,
		)
	}
	return fmt.Errorf("initialization failed: %w", err)
}
