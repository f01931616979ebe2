package console

import (
	"github.com/pkg/errors"

	"github.com/nhath/ezadmin/internal/api"
)

var (
	// ErrNotAuthenticated is returned before any network call when an
	// operation needs a logged in session
	ErrNotAuthenticated = errors.New("not authenticated, please log in first")

	// ErrBusy is returned while another query or maintenance request is in flight
	ErrBusy = errors.New("another request is still running")

	// ErrSessionEnded is returned when a response arrives after the session
	// it was issued for has been logged out. The response is discarded.
	ErrSessionEnded = errors.New("session ended before the response arrived")
)

// AuthError wraps login failures: bad credentials or an unreachable backend
type AuthError struct {
	Underlying error
}

func (e *AuthError) Error() string {
	return api.Message(e.Underlying)
}

func (e *AuthError) Unwrap() error {
	return e.Underlying
}

// QueryError wraps query execution failures reported by the backend
type QueryError struct {
	Underlying error
}

func (e *QueryError) Error() string {
	return api.Message(e.Underlying)
}

func (e *QueryError) Unwrap() error {
	return e.Underlying
}

// FetchError wraps failures to load the database list or backup history
type FetchError struct {
	Resource   string
	Underlying error
}

func (e *FetchError) Error() string {
	return api.Message(e.Underlying)
}

func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// MaintenanceError wraps a rejected backup or integrity check request
type MaintenanceError struct {
	Action     Action
	Database   string
	Underlying error
}

func (e *MaintenanceError) Error() string {
	return api.Message(e.Underlying)
}

func (e *MaintenanceError) Unwrap() error {
	return e.Underlying
}

// WrapAuthError creates an AuthError from underlying error
func WrapAuthError(err error) error {
	return &AuthError{Underlying: err}
}

// WrapQueryError creates a QueryError from underlying error
func WrapQueryError(err error) error {
	return &QueryError{Underlying: err}
}

// WrapFetchError creates a FetchError from underlying error
func WrapFetchError(resource string, err error) error {
	return &FetchError{Resource: resource, Underlying: err}
}

// sessionExpired reports whether err means the backend no longer accepts
// the session credential
func sessionExpired(err error) bool {
	return api.IsUnauthorized(err)
}
