package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hako/durafmt"
)

// matchKey returns true if the key message matches any of the provided key strings
func matchKey(msg tea.KeyMsg, keys []string) bool {
	keyStr := msg.String()
	for _, k := range keys {
		if k == keyStr {
			return true
		}
	}
	return false
}

// limitString truncates s to maxLen by replacing the middle with "..."
func limitString(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen < 5 {
		return s
	}
	half := (maxLen - 3) / 2
	return s[:half] + "..." + s[len(s)-half:]
}

// formatDuration renders a query duration for the status bar
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return durafmt.Parse(d.Round(10 * time.Millisecond)).LimitFirstN(2).String()
}

// keyHint joins the first binding of each action for the help line
func keyHint(keys []string, desc string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0] + " " + desc
}

func joinHints(hints ...string) string {
	var parts []string
	for _, h := range hints {
		if h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, " • ")
}
