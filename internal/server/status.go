package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// DefaultStatusEndpoint is the mcstatus.io Java status API.
const DefaultStatusEndpoint = "https://api.mcstatus.io/v2/status/java"

// Status is a server status document. Raw keeps the body verbatim; the
// remaining fields are a typed view of the commonly used parts.
type Status struct {
	Online  bool           `json:"online"`
	Host    string         `json:"host"`
	Port    int            `json:"port"`
	Version *StatusVersion `json:"version,omitempty"`
	Players *StatusPlayers `json:"players,omitempty"`
	MOTD    *StatusMOTD    `json:"motd,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// StatusVersion is the reported game version.
type StatusVersion struct {
	NameRaw   string `json:"name_raw"`
	NameClean string `json:"name_clean"`
	Protocol  int    `json:"protocol"`
}

// StatusPlayers is the reported player count and sample.
type StatusPlayers struct {
	Online int            `json:"online"`
	Max    int            `json:"max"`
	List   []StatusPlayer `json:"list,omitempty"`
}

// StatusPlayer is one entry of the player sample.
type StatusPlayer struct {
	UUID      string `json:"uuid"`
	NameClean string `json:"name_clean"`
}

// StatusMOTD is the message of the day.
type StatusMOTD struct {
	Raw   string `json:"raw"`
	Clean string `json:"clean"`
}

// MarshalJSON writes the verbatim document.
func (s *Status) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	type plain Status
	return json.Marshal((*plain)(s))
}

// StatusHTTPError is a non-2xx answer from the status endpoint. The
// response body is not read and the stored document is left as it was.
type StatusHTTPError struct {
	StatusCode int
	URL        string
}

func (e *StatusHTTPError) Error() string {
	return fmt.Sprintf("status request %s returned HTTP %d", e.URL, e.StatusCode)
}

// Provider fetches server status documents into a State.
type Provider struct {
	state    *State
	endpoint string
	http     *http.Client
}

// NewProvider creates a provider querying endpoint. An empty endpoint means
// DefaultStatusEndpoint; a nil client means a client with no timeout, so only
// the caller's context bounds a fetch.
func NewProvider(state *State, endpoint string, client *http.Client) *Provider {
	if endpoint == "" {
		endpoint = DefaultStatusEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Provider{
		state:    state,
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     client,
	}
}

// State returns the container this provider writes into.
func (p *Provider) State() *State {
	return p.state
}

// GetServerInfo fetches the status of urlOverride, or of the current
// server's status address when urlOverride is empty. The document is stored
// into the State and returned. Every failure is returned to the caller.
func (p *Provider) GetServerInfo(ctx context.Context, urlOverride string) (*Status, error) {
	address := urlOverride
	if address == "" {
		current, err := p.state.Current()
		if err != nil {
			return nil, err
		}
		address = current.URLStatus
	}

	target := p.endpoint + "/" + url.PathEscape(address)
	log.Printf("[DEBUG] fetching server status %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusHTTPError{StatusCode: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	status, err := ParseStatus(body)
	if err != nil {
		return nil, err
	}

	p.state.setInfo(status)
	log.Printf("[INFO] server status %s online=%t", address, status.Online)
	return status, nil
}

// ParseStatus decodes a status document, keeping the body verbatim.
func ParseStatus(body []byte) (*Status, error) {
	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	status.Raw = append(json.RawMessage(nil), body...)
	return &status, nil
}
