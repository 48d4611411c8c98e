package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/persist"
	"github.com/limacina/launcher/internal/printer"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Read and write persisted launcher state",
	Long: `Manage the launcher's key-value store.

Each entry is a JSON object stored under an id. The backend is selected by
store.backend in limacina.yml: "file" (default, under ~/.limacina/store) or
"redis" (store.redis_url or LIMACINA_REDIS_URL).

Well-known ids:
  launcher  Last selected server (serverName)
  profile   Fields shown by the Profile view; a numeric balance is
            rendered as money`,
}

var storeSaveCmd = &cobra.Command{
	Use:   "save ID JSON",
	Short: "Merge a JSON object into an entry",
	Long: `Merge the top-level fields of JSON into the entry stored under ID.
Fields already stored and not named in JSON are kept.

Example:
  limacina store save profile '{"nickname":"steve","balance":1500}'`,
	Args: cobra.ExactArgs(2),
	RunE: runStoreSave,
}

var storeGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print an entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreGet,
}

var storeRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreRemove,
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry",
	Long: `Delete every entry of the configured store. For the file backend the
store directory is removed and recreated; for Redis every key of the
namespace is deleted.`,
	Args: cobra.NoArgs,
	RunE: runStoreClear,
}

func init() {
	storeCmd.AddCommand(storeSaveCmd, storeGetCmd, storeRemoveCmd, storeClearCmd)
	rootCmd.AddCommand(storeCmd)
}

// withStore opens the configured store, runs fn and closes the store.
func withStore(fn func(ctx context.Context, store persist.Store) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	return storeFailure(fn(ctx, store))
}

func runStoreSave(cmd *cobra.Command, args []string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(args[1]), &data); err != nil {
		return printer.Error(
			"invalid value",
			fmt.Sprintf("The value must be a JSON object: %v", err),
			[]string{`Quote the object, e.g. '{"key":"value"}'`},
		)
	}

	return withStore(func(ctx context.Context, store persist.Store) error {
		if err := store.Save(ctx, args[0], data); err != nil {
			return err
		}
		printer.Success("Saved %s\n", args[0])
		return nil
	})
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store persist.Store) error {
		data, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if data == nil {
			return printer.Error(
				"entry not found",
				fmt.Sprintf("Nothing is stored under %q.", args[0]),
				nil,
			)
		}
		return printer.JSON(data)
	})
}

func runStoreRemove(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store persist.Store) error {
		if err := store.Remove(ctx, args[0]); err != nil {
			return err
		}
		printer.Success("Removed %s\n", args[0])
		return nil
	})
}

func runStoreClear(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store persist.Store) error {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		if fs, ok := store.(*persist.FileStore); ok {
			printer.Success("Cleared %s\n", fs.Dir())
			return nil
		}
		printer.Success("Cleared store\n")
		return nil
	})
}

func storeFailure(err error) error {
	if errors.Is(err, persist.ErrInvalidID) {
		return printer.Error(
			"invalid id",
			err.Error(),
			[]string{"Ids must be non-empty and cannot contain path separators"},
		)
	}
	return err
}
