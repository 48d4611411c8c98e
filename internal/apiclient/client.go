package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every call made through a Client.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// Settings describes a single outbound call.
type Settings struct {
	// URL is the path relative to the client's base URL (required).
	URL string

	// Type is the HTTP verb. Empty means GET.
	Type string

	// JSON is encoded as the request body when non-nil.
	JSON any

	// Query is appended to URL as key=value pairs, keys in sorted order.
	Query map[string]string
}

// Envelope is the normalized success response: the body's top-level data
// and meta fields, passed through verbatim. Either is nil when absent.
type Envelope struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta"`

	// Raw is the response body verbatim.
	Raw json.RawMessage `json:"-"`
}

// DecodeData unmarshals the data field into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope has no data field")
	}
	return json.Unmarshal(e.Data, v)
}

// DecodeMeta unmarshals the meta field into v.
func (e *Envelope) DecodeMeta(v any) error {
	if len(e.Meta) == 0 {
		return fmt.Errorf("envelope has no meta field")
	}
	return json.Unmarshal(e.Meta, v)
}

// Client issues requests against a fixed base URL with a fixed timeout.
// The client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client rooted at baseURL (for example
// "https://launcher.example.com/api"). A zero timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns the prefix every request path is joined onto.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs one call and normalizes the response.
//
// On a 2xx response the body's top-level data and meta fields are returned.
// An empty body or a JSON body that is not an object yields an Envelope
// with both fields nil. On any other status the error body is decoded and
// an *APIError is returned carrying the body's error field, else its
// message field, else the raw body. An error body that is not JSON yields
// a *MalformedErrorEnvelopeError; a call that never produced a response
// yields a *TransportError.
func (c *Client) Request(ctx context.Context, s Settings) (*Envelope, error) {
	resp, err := c.Do(ctx, s)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: resp.Request.Method, URL: resp.Request.URL.String(), Err: err}
	}
	return decodeEnvelope(raw)
}

// Do sends the call described by s and returns the open response when the
// status is 2xx. Other statuses are normalized exactly as in Request. The
// caller must close the response body.
func (c *Client) Do(ctx context.Context, s Settings) (*http.Response, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("request URL is required")
	}

	method := strings.ToUpper(s.Type)
	if method == "" {
		method = http.MethodGet
	}

	target := c.resolve(s.URL, s.Query)

	var body io.Reader
	if s.JSON != nil {
		payload, err := json.Marshal(s.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)

	log.Printf("[DEBUG] api request id=%s %s %s", requestID, method, target)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	log.Printf("[DEBUG] api response id=%s status=%d", requestID, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{Method: method, URL: target, Err: err}
		}
		return nil, decodeError(resp.StatusCode, raw)
	}
	return resp, nil
}

// decodeEnvelope picks data and meta out of a 2xx body. Missing fields stay
// nil; only a body that is not JSON at all is an error.
func decodeEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{Raw: append(json.RawMessage(nil), raw...)}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return env, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("failed to decode response body: invalid JSON")
	}
	if trimmed[0] != '{' {
		return env, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	env.Data = fields["data"]
	env.Meta = fields["meta"]
	return env, nil
}

// resolve joins path onto the base URL and appends the encoded query.
func (c *Client) resolve(path string, query map[string]string) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) == 0 {
		return target
	}
	return target + "?" + EncodeQuery(query)
}

// EncodeQuery serializes query as key=value pairs joined by '&', keys sorted.
func EncodeQuery(query map[string]string) string {
	values := make(url.Values, len(query))
	for k, v := range query {
		values.Set(k, v)
	}
	return values.Encode()
}
