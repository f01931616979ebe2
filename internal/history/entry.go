// internal/history/entry.go
package history

// Entry is an immutable snapshot of a submitted query text
type Entry string

// Query returns the stored query text
func (e Entry) Query() string {
	return string(e)
}

// QueryPreview returns a truncated version of the query
func (e Entry) QueryPreview(maxLen int) string {
	q := string(e)
	if maxLen <= 3 || len(q) <= maxLen {
		return q
	}
	return q[:maxLen-3] + "..."
}
