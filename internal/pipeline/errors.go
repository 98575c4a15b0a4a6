package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoIdentity is wrapped by the error returned when an operation needs
// the player's id and none has been resolved.
var ErrNoIdentity = errors.New("pipeline: no user identity")

// APIError is the single shape every failed backend call takes. Status is
// zero when the request never produced a response.
type APIError struct {
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.HasStatus() {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return "api error: " + e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// HasStatus reports whether the backend answered at all.
func (e *APIError) HasStatus() bool { return e.Status != 0 }

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Normalize returns err as an *APIError, wrapping it when it is not one
// already. A nil err yields nil.
func Normalize(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	return &APIError{Message: err.Error(), Err: err}
}

// transportError wraps a failure that happened before any response.
func transportError(err error) *APIError {
	return &APIError{Message: err.Error(), Err: err}
}

// statusError builds the error for a non-2xx response. The message is
// taken from the body's "message" field, then its "error" field, then the
// raw body, and finally the status line.
func statusError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: extractMessage(status, body)}
}

func extractMessage(status int, body []byte) string {
	var fields struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		if s := jsonText(fields.Message); s != "" {
			return s
		}
		if s := jsonText(fields.Error); s != "" {
			return s
		}
	}
	if raw := strings.TrimSpace(string(body)); raw != "" {
		return raw
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d %s", status, text)
	}
	return fmt.Sprintf("HTTP %d", status)
}

// jsonText renders a message field: strings as-is, other non-null values
// as their JSON text.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
