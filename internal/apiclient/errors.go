package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedErrorEnvelope is matched by errors.Is when a non-2xx response
// carried a body that could not be decoded as JSON.
var ErrMalformedErrorEnvelope = errors.New("malformed error envelope")

// APIError is a non-2xx response whose body was decoded.
type APIError struct {
	StatusCode int
	// Message is the body's error field, else its message field, else the
	// raw body text.
	Message string
	Raw     json.RawMessage
}

func (e *APIError) Error() string {
	return e.Message
}

// MalformedErrorEnvelopeError is a non-2xx response whose body is not JSON.
type MalformedErrorEnvelopeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *MalformedErrorEnvelopeError) Error() string {
	return fmt.Sprintf("HTTP %d with malformed error body: %v", e.StatusCode, e.Err)
}

func (e *MalformedErrorEnvelopeError) Unwrap() error {
	return e.Err
}

func (e *MalformedErrorEnvelopeError) Is(target error) bool {
	return target == ErrMalformedErrorEnvelope
}

// TransportError is a call that never produced a usable response
// (connection refused, timeout, truncated body).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// decodeError normalizes a non-2xx body into an error.
func decodeError(status int, body []byte) error {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &MalformedErrorEnvelopeError{StatusCode: status, Body: body, Err: err}
	}

	apiErr := &APIError{StatusCode: status, Raw: json.RawMessage(body), Message: string(body)}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return apiErr
	}
	for _, key := range []string{"error", "message"} {
		if msg, ok := messageOf(obj[key]); ok {
			apiErr.Message = msg
			return apiErr
		}
	}
	return apiErr
}

// messageOf renders a field as an error message. Missing, null, false and
// empty-string or zero values do not count.
func messageOf(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		if !val {
			return "", false
		}
	case float64:
		if val == 0 {
			return "", false
		}
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

// Message extracts the user-facing message from err if it is an *APIError.
func Message(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}
