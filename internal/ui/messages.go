package ui

import (
	"time"

	"github.com/nhath/ezadmin/internal/console"
)

// BackupHistoryLoadedMsg is sent when the startup backup history fetch completes
type BackupHistoryLoadedMsg struct {
	Err error
}

// LoginResultMsg is sent when a login attempt completes
type LoginResultMsg struct {
	Username     string
	Password     string
	Confirmation console.Confirmation
	Err          error
}

// QueryResultMsg is sent when query execution completes
type QueryResultMsg struct {
	Rows     int
	Duration time.Duration
	Err      error
}

// BackupStartedMsg is sent when a backup request was answered
type BackupStartedMsg struct {
	Started console.BackupStarted
	Err     error
}

// CheckDBResultMsg is sent when the integrity check completes
type CheckDBResultMsg struct {
	Rows int
	Err  error
}

// DatabasesLoadedMsg is sent when the database list was refreshed
type DatabasesLoadedMsg struct {
	Count int
	Err   error
}

// ExportedMsg is sent after the result set was written to disk
type ExportedMsg struct {
	Path string
	Err  error
}

// ClipboardCopiedMsg is sent after copying the query buffer
type ClipboardCopiedMsg struct {
	Err error
}
