// internal/devserver/errors.go
package devserver

import "fmt"

// ConnectionError wraps engine connection failures
type ConnectionError struct {
	Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Underlying)
}

func (e *ConnectionError) Unwrap() error { return e.Underlying }

// QueryError wraps statement failures; its message is sent to the client
type QueryError struct {
	Underlying error
}

func (e *QueryError) Error() string {
	return e.Underlying.Error()
}

func (e *QueryError) Unwrap() error { return e.Underlying }

// WrapConnectionError creates a ConnectionError from underlying error
func WrapConnectionError(err error) error {
	return &ConnectionError{Underlying: err}
}

// WrapQueryError creates a QueryError from underlying error
func WrapQueryError(err error) error {
	return &QueryError{Underlying: err}
}
