package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/limacina/launcher/internal/format"
	"github.com/limacina/launcher/internal/printer"
	"github.com/limacina/launcher/internal/router"
	"github.com/limacina/launcher/internal/server"
)

type outputFormat string

const (
	outputDefault outputFormat = "default"
	outputJSON    outputFormat = "json"
)

func parseOutput(s string) (outputFormat, error) {
	switch outputFormat(s) {
	case outputDefault, outputJSON:
		return outputFormat(s), nil
	default:
		return "", printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", s),
			[]string{"Valid formats: default, json"},
		)
	}
}

// statusRows renders the typed part of a status document as key/value rows.
func statusRows(name, address string, status *server.Status) [][]string {
	online := "offline"
	if status.Online {
		online = "online"
	}
	rows := [][]string{
		{"Server", name},
		{"Address", address},
		{"Status", online},
	}
	if status.Players != nil {
		rows = append(rows, []string{"Players", fmt.Sprintf("%s / %s",
			format.FormatNumberCompact(float64(status.Players.Online), 1),
			format.FormatNumberCompact(float64(status.Players.Max), 1))})
	}
	if status.Version != nil && status.Version.NameClean != "" {
		rows = append(rows, []string{"Version", status.Version.NameClean})
	}
	if status.MOTD != nil && status.MOTD.Clean != "" {
		rows = append(rows, []string{"MOTD", status.MOTD.Clean})
	}
	return rows
}

// renderHome prints the Home page: the current server and its status.
func (a *app) renderHome() error {
	current, ok := a.servers.CurrentServer()
	info := a.servers.Info()
	if !ok || info == nil {
		printer.Warning("No server status available\n")
		return nil
	}
	return printer.Table([]string{"Field", "Value"}, statusRows(current.Name, current.URLStatus, info))
}

// renderProfile prints the Profile page: home directory and the stored
// profile object. A numeric balance is rendered as money.
func (a *app) renderProfile(profile map[string]any) error {
	rows := [][]string{{"Home directory", displayOrDash(a.core.HomeDir())}}

	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{k, profileValue(k, profile[k])})
	}
	return printer.Table([]string{"Field", "Value"}, rows)
}

func profileValue(key string, v any) string {
	switch val := v.(type) {
	case float64:
		if key == "balance" {
			return format.FormatMoney(val)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// routeRows renders a route table.
func routeRows(routes []router.Route) [][]string {
	rows := make([][]string, len(routes))
	for i, r := range routes {
		rows[i] = []string{r.Path, r.Name, string(r.Page)}
	}
	return rows
}

func displayOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
