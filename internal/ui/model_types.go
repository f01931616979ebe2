// Type definitions for the UI layer
package ui

// AppState represents the overall application state
type AppState string

const (
	StateLogin     AppState = "LOGIN"
	StateLoggingIn AppState = "LOGGING_IN"
	StateReady     AppState = "READY"
)

// Focus is the panel receiving keys in the ready state
type Focus int

const (
	FocusEditor Focus = iota
	FocusHistory
	FocusResults
)

func (f Focus) String() string {
	switch f {
	case FocusHistory:
		return "HISTORY"
	case FocusResults:
		return "RESULTS"
	default:
		return "EDITOR"
	}
}

// next cycles editor -> history -> results
func (f Focus) next() Focus {
	return (f + 1) % 3
}
