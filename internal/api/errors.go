package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// TransportError wraps failures to reach the backend at all
type TransportError struct {
	Endpoint   string
	Underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Underlying)
}

func (e *TransportError) Unwrap() error {
	return e.Underlying
}

// Message returns the user-facing text of an API error: the backend
// provided message when there is one, the transport failure otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return err.Error()
}

// IsUnauthorized reports whether the backend rejected the session credential
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

func newStatusError(endpoint string, code int, body []byte) *StatusError {
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: code,
		Message:    failureMessage(code, body),
	}
}

// failureMessage picks the message field of an error body, falling back to
// a short plain text body or the status text.
func failureMessage(code int, body []byte) string {
	for _, key := range []string{"message", "error"} {
		if msg, err := jsonparser.GetString(body, key); err == nil && msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	if status := http.StatusText(code); status != "" {
		return fmt.Sprintf("%s (%d)", status, code)
	}
	return fmt.Sprintf("request failed with status %d", code)
}
