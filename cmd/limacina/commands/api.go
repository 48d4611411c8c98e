package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/apiclient"
	"github.com/limacina/launcher/internal/printer"
)

var (
	apiMethod string
	apiData   string
	apiQuery  []string
)

var apiCmd = &cobra.Command{
	Use:   "api PATH",
	Short: "Call the launcher backend API",
	Long: `Send one request to the launcher backend and print the response envelope.

PATH is relative to <backend_url>/api. The backend URL comes from
VITE_APP_BACKEND_URL (or LIMACINA_BACKEND_URL) or backend_url in limacina.yml.

On success the data and meta fields of the response are printed as JSON.
On failure the backend's error message is shown.

Examples:
  limacina api /news
  limacina api /news --query page=2 --query limit=10
  limacina api /auth/login -X POST --data '{"user":"steve"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().StringVarP(&apiMethod, "method", "X", "GET", "HTTP method")
	apiCmd.Flags().StringVarP(&apiData, "data", "d", "", "JSON request body")
	apiCmd.Flags().StringArrayVarP(&apiQuery, "query", "q", nil, "Query parameter as key=value (repeatable)")
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	settings, err := buildSettings(args[0], apiMethod, apiData, apiQuery)
	if err != nil {
		return err
	}

	env, err := a.api.Request(context.Background(), settings)
	if err != nil {
		return apiFailure(settings, err)
	}
	return printer.JSON(env)
}

// buildSettings turns the command line into request settings.
func buildSettings(path, method, data string, query []string) (apiclient.Settings, error) {
	settings := apiclient.Settings{
		URL:  path,
		Type: strings.ToUpper(method),
	}

	if data != "" {
		var body any
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return settings, printer.Error(
				"invalid request body",
				fmt.Sprintf("--data is not valid JSON: %v", err),
				[]string{`Quote the body, e.g. --data '{"key":"value"}'`},
			)
		}
		settings.JSON = body
	}

	if len(query) > 0 {
		settings.Query = make(map[string]string, len(query))
		for _, pair := range query {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return settings, printer.Error(
					"invalid query parameter",
					fmt.Sprintf("Expected key=value, got %q.", pair),
					[]string{"Pass each parameter as --query key=value"},
				)
			}
			settings.Query[key] = value
		}
	}
	return settings, nil
}

func apiFailure(settings apiclient.Settings, err error) error {
	if msg, ok := apiclient.Message(err); ok {
		var apiErr *apiclient.APIError
		errors.As(err, &apiErr)
		return printer.ErrorWithContext(
			"request failed",
			msg,
			map[string]string{
				"Request": fmt.Sprintf("%s %s", settings.Type, settings.URL),
				"Status":  fmt.Sprintf("%d", apiErr.StatusCode),
			},
			nil,
		)
	}

	var malformed *apiclient.MalformedErrorEnvelopeError
	if errors.As(err, &malformed) {
		body := string(malformed.Body)
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		return printer.ErrorWithContext(
			"request failed",
			"The backend answered with an error that is not valid JSON.",
			map[string]string{
				"Status": fmt.Sprintf("%d", malformed.StatusCode),
				"Body":   body,
			},
			nil,
		)
	}

	var transportErr *apiclient.TransportError
	if errors.As(err, &transportErr) {
		return printer.ErrorWithContext(
			"backend unreachable",
			transportErr.Err.Error(),
			map[string]string{"URL": transportErr.URL},
			[]string{"Check that the backend is running and VITE_APP_BACKEND_URL is correct"},
		)
	}
	return fmt.Errorf("request failed: %w", err)
}
