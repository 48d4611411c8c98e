package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/apiclient"
	"github.com/limacina/launcher/internal/filesync"
	"github.com/limacina/launcher/internal/printer"
)

// syncRecord is the store id holding the outcome of the last sync.
const syncRecord = "sync"

var (
	syncClean        bool
	syncWorkers      int
	syncOutputFormat string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download changed game files from the backend",
	Long: `Bring the local game directory in line with the backend file list.

The backend publishes every game file with its MD5 digest at
<backend_url>/api/list. Files that are missing locally or whose digest
differs are downloaded from <backend_url>/api/files; everything else is left
untouched. Local files the backend does not list are kept.

The game directory is sync.dir in limacina.yml, relative to the home
directory unless absolute. The outcome is recorded in the store under "sync".

Examples:
  limacina sync
  limacina sync --workers 8
  limacina sync --clean --output json`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncClean, "clean", false, "Remove the game directory before downloading")
	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 0, "Concurrent downloads (default sync.workers)")
	syncCmd.Flags().StringVarP(&syncOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(syncCmd)
}

// syncView is the JSON form of a sync result.
type syncView struct {
	Root       string   `json:"root"`
	Backend    string   `json:"backend"`
	Version    string   `json:"version,omitempty"`
	Checked    int      `json:"checked"`
	Downloaded []string `json:"downloaded"`
	Bytes      int64    `json:"bytes"`
}

func runSync(cmd *cobra.Command, args []string) error {
	output, err := parseOutput(syncOutputFormat)
	if err != nil {
		return err
	}
	if syncWorkers < 0 {
		return printer.Error(
			"invalid worker count",
			fmt.Sprintf("--workers must be positive, got %d.", syncWorkers),
			nil,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.api == nil {
		return printer.Error(
			"no backend configured",
			"The launcher backend URL is not set.",
			[]string{"Set VITE_APP_BACKEND_URL in .env or backend_url in limacina.yml"},
		)
	}

	root, err := a.syncRoot(ctx)
	if err != nil {
		return printer.Error(
			"no game directory",
			err.Error(),
			[]string{"Set sync.dir to an absolute path in limacina.yml"},
		)
	}

	// Downloads get their own client: sync.timeout covers whole files, not
	// single API calls.
	client, err := apiclient.NewClient(a.api.BaseURL(), a.cfg.SyncTimeoutDuration())
	if err != nil {
		return fmt.Errorf("failed to create download client: %w", err)
	}

	workers := a.cfg.Sync.Workers
	if syncWorkers > 0 {
		workers = syncWorkers
	}
	opts := []filesync.Option{filesync.WithWorkers(workers)}
	if output == outputDefault {
		opts = append(opts, filesync.WithProgress(printProgress))
	}

	syncer, err := filesync.New(client, root, opts...)
	if err != nil {
		return err
	}

	if syncClean {
		if err := syncer.Clean(); err != nil {
			return printer.Error("clean failed", err.Error(), nil)
		}
	}

	started := time.Now()
	result, err := syncer.Sync(ctx)
	if err != nil {
		return syncFailure(client.BaseURL(), err)
	}
	log.Printf("[INFO] sync finished in %s", time.Since(started).Round(time.Millisecond))

	if err := recordSync(ctx, a, root, result); err != nil {
		log.Printf("[WARN] Failed to record sync result: %v", err)
		if output == outputDefault {
			printer.Warning("Sync result not recorded: %v\n", err)
		}
	}

	view := syncView{
		Root:       root,
		Backend:    client.BaseURL(),
		Version:    result.Version,
		Checked:    result.Checked,
		Downloaded: result.Downloaded,
		Bytes:      result.Bytes,
	}
	if view.Downloaded == nil {
		view.Downloaded = []string{}
	}
	if output == outputJSON {
		return printer.JSON(view)
	}

	printer.Success("Game files up to date (%d of %d downloaded)\n", len(result.Downloaded), result.Checked)
	return printer.Table([]string{"Field", "Value"}, [][]string{
		{"Directory", root},
		{"Backend", view.Backend},
		{"Version", displayOrDash(view.Version)},
		{"Checked", fmt.Sprintf("%d", view.Checked)},
		{"Downloaded", fmt.Sprintf("%d", len(view.Downloaded))},
		{"Size", units.HumanSize(float64(view.Bytes))},
	})
}

// syncRoot resolves sync.dir. The home directory is only needed for a
// relative sync.dir.
func (a *app) syncRoot(ctx context.Context) (string, error) {
	if filepath.IsAbs(a.cfg.Sync.Dir) {
		return a.cfg.SyncRoot(""), nil
	}
	home, err := a.homeDir(ctx)
	if err != nil {
		return "", err
	}
	return a.cfg.SyncRoot(home), nil
}

func printProgress(p filesync.Progress) {
	if p.Number == 0 {
		printer.Step("%d files to download\n", p.Total)
		return
	}
	printer.Step("[%d/%d] %s (%s)\n", p.Number, p.Total, p.File, units.HumanSize(float64(p.Bytes)))
}

// recordSync saves the outcome of a sync under syncRecord. The files are
// already in place, so callers only warn on failure.
func recordSync(ctx context.Context, a *app, root string, result *filesync.Result) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, syncRecord, map[string]any{
		"root":       root,
		"version":    result.Version,
		"checked":    result.Checked,
		"downloaded": len(result.Downloaded),
		"bytes":      result.Bytes,
		"syncedAt":   time.Now().UTC().Format(time.RFC3339),
	})
}

func syncFailure(backend string, err error) error {
	if errors.Is(err, filesync.ErrUnsafePath) {
		return printer.ErrorWithContext(
			"sync rejected",
			"The backend file list names a path outside the game directory.",
			map[string]string{"Detail": err.Error()},
			nil,
		)
	}

	var mismatch *filesync.HashMismatchError
	if errors.As(err, &mismatch) {
		return printer.ErrorWithContext(
			"download corrupted",
			"A downloaded file does not match the digest in the backend file list.",
			map[string]string{
				"File":     mismatch.File,
				"Expected": mismatch.Want,
				"Received": mismatch.Got,
			},
			[]string{"Run 'limacina sync' again; the previous copy was kept"},
		)
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync interrupted")
	}
	return apiFailure(apiclient.Settings{Type: "SYNC", URL: backend}, err)
}
