package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/printer"
	"github.com/limacina/launcher/internal/router"
)

var routesCmd = &cobra.Command{
	Use:   "routes [PATH]",
	Short: "Show the route table or resolve a path",
	Long: `Without PATH, print the route table. With PATH, resolve it to a view.

PATH may be given in hash form (#/profile) and may carry a query string or a
trailing slash. A route name (Profile) is accepted as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	table := router.DefaultTable()

	if len(args) == 0 {
		return printer.Table([]string{"Path", "Name", "View"}, routeRows(table.Routes()))
	}

	route, ok := lookupRoute(table, args[0])
	if !ok {
		return printer.Error(
			"unknown route",
			fmt.Sprintf("No view is registered for %q (normalized: %q).", args[0], router.Normalize(args[0])),
			[]string{"Run 'limacina routes' to list the available views"},
		)
	}
	return printer.Table([]string{"Path", "Name", "View"}, routeRows([]router.Route{route}))
}

// lookupRoute resolves a path, falling back to a route name.
func lookupRoute(table *router.Table, ref string) (router.Route, bool) {
	if route, ok := table.Resolve(ref); ok {
		return route, true
	}
	return table.ByName(ref)
}
