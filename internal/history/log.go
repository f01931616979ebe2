// internal/history/log.go
package history

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultCapacity is the number of submitted queries kept by default
const DefaultCapacity = 5

// ErrOutOfRange is returned by Select for an index outside the log
var ErrOutOfRange = errors.New("history index out of range")

// Log is a bounded, ordered record of submitted queries.
// Entries are kept oldest first; once the capacity is reached the oldest
// entry is evicted.
type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

// NewLog creates a history log holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Capacity returns the maximum number of retained entries
func (l *Log) Capacity() int {
	return l.capacity
}

// Append pushes a query and truncates the log to the most recent entries
func (l *Log) Append(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry(query))
	if over := len(l.entries) - l.capacity; over > 0 {
		// Copy into a fresh slice so evicted entries are not pinned
		kept := make([]Entry, l.capacity)
		copy(kept, l.entries[over:])
		l.entries = kept
	}
}

// Entries returns a copy of the log, oldest first
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Select returns the entry at index without modifying the log
func (l *Log) Select(index int) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.entries) {
		return "", errors.Wrapf(ErrOutOfRange, "index %d of %d", index, len(l.entries))
	}
	return l.entries[index], nil
}

// Len returns the number of entries currently held
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every entry
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, l.capacity)
}
