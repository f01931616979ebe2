package api

import (
	"strings"
	"time"
)

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /login.
// Token is the session credential attached to every later request.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Query string `json:"query"`
}

// BackupRequest is the body of POST /backup; a nil Database requests a
// server-wide backup
type BackupRequest struct {
	Database *string `json:"database,omitempty"`
}

// BackupResponse is the confirmation of an accepted backup request
type BackupResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// DatabaseRecord describes one database served by the backend
type DatabaseRecord struct {
	Name       string  `json:"name"`
	SizeMB     float64 `json:"sizeMB"`
	CreatedOn  string  `json:"createdOn"`
	LastBackup string  `json:"lastBackup,omitempty"`
}

// CreatedAt parses CreatedOn
func (d DatabaseRecord) CreatedAt() (time.Time, bool) {
	return ParseDate(d.CreatedOn)
}

// LastBackupAt parses LastBackup; false when the database was never backed up
func (d DatabaseRecord) LastBackupAt() (time.Time, bool) {
	return ParseDate(d.LastBackup)
}

// SizeBytes converts SizeMB to bytes
func (d DatabaseRecord) SizeBytes() uint64 {
	if d.SizeMB <= 0 {
		return 0
	}
	return uint64(d.SizeMB * 1024 * 1024)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseDate parses the date-like strings used by the backend
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
