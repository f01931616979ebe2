package history

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogKeepsMostRecent(t *testing.T) {
	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("%d submissions", n), func(t *testing.T) {
			l := NewLog(DefaultCapacity)
			var submitted []Entry
			for i := 0; i < n; i++ {
				q := fmt.Sprintf("SELECT %d", i)
				l.Append(q)
				submitted = append(submitted, Entry(q))

				want := submitted
				if len(want) > DefaultCapacity {
					want = want[len(want)-DefaultCapacity:]
				}
				assert.Equal(t, want, l.Entries())
			}
		})
	}
}

func TestLogEvictsOldestOnSixth(t *testing.T) {
	l := NewLog(5)
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		l.Append(q)
	}

	assert.Equal(t, []Entry{"q2", "q3", "q4", "q5", "q6"}, l.Entries())
	assert.Equal(t, 5, l.Len())
}

func TestLogSelect(t *testing.T) {
	l := NewLog(3)
	l.Append("SELECT 1")
	l.Append("SELECT 2")

	e, err := l.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", e.Query())

	// lookups never change the log
	assert.Equal(t, []Entry{"SELECT 1", "SELECT 2"}, l.Entries())

	_, err = l.Select(2)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = l.Select(-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestLogEntriesIsACopy(t *testing.T) {
	l := NewLog(2)
	l.Append("a")

	entries := l.Entries()
	entries[0] = "mutated"

	assert.Equal(t, []Entry{"a"}, l.Entries())
}

func TestLogClear(t *testing.T) {
	l := NewLog(0)
	assert.Equal(t, DefaultCapacity, l.Capacity())

	l.Append("a")
	l.Clear()
	assert.Zero(t, l.Len())
}

func TestQueryPreview(t *testing.T) {
	e := Entry("SELECT * FROM very_long_table_name")
	assert.Equal(t, "SELECT ...", e.QueryPreview(10))
	assert.Equal(t, string(e), e.QueryPreview(100))
}
