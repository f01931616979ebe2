package console

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nhath/ezadmin/internal/history"
	"github.com/nhath/ezadmin/internal/resultset"
)

// Executor submits query text and owns the current result set. It runs at
// most one request at a time: a query or maintenance call issued while
// another is in flight fails with ErrBusy.
type Executor struct {
	session *Session
	backend Backend
	history *history.Log

	mu       sync.Mutex
	loading  bool
	cancel   context.CancelFunc
	results  resultset.ResultSet
	duration time.Duration
}

// NewExecutor creates an executor with an empty result set
func NewExecutor(session *Session, backend Backend, hist *history.Log) *Executor {
	return &Executor{
		session: session,
		backend: backend,
		history: hist,
		results: resultset.ResultSet{},
	}
}

// Submit sends query text unchanged. On success the result set is replaced
// and the text is appended to history; on failure both are left untouched.
func (e *Executor) Submit(ctx context.Context, query string) (resultset.ResultSet, error) {
	var rs resultset.ResultSet
	err := e.run(ctx, func(ctx context.Context) error {
		var err error
		rs, err = e.backend.Query(ctx, query)
		if err != nil {
			return WrapQueryError(err)
		}
		return nil
	}, func() {
		e.results = rs
		e.history.Append(query)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("executor: query returned %d rows in %s", len(rs), e.Duration())
	return rs, nil
}

// Tabular runs a call producing rows under the same single-flight rule and
// replaces the result set with its output on success
func (e *Executor) Tabular(ctx context.Context, fn func(ctx context.Context) (resultset.ResultSet, error)) (resultset.ResultSet, error) {
	var rs resultset.ResultSet
	err := e.run(ctx, func(ctx context.Context) error {
		var err error
		rs, err = fn(ctx)
		return err
	}, func() {
		e.results = rs
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Track runs a call with no tabular output under the single-flight rule.
// The result set is never touched.
func (e *Executor) Track(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.run(ctx, fn, nil)
}

// run holds the guard for the lifetime of fn. commit is applied with the
// lock held, and only when the session that issued the call is still current.
// Calls made without an authenticated session fail with ErrNotAuthenticated.
func (e *Executor) run(ctx context.Context, fn func(ctx context.Context) error, commit func()) error {
	gen, ok := e.session.current()
	if !ok {
		return ErrNotAuthenticated
	}

	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	e.loading = true
	e.cancel = cancel
	e.mu.Unlock()

	start := time.Now()

	defer func() {
		cancel()
		e.mu.Lock()
		e.loading = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	err := fn(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Generation() != gen {
		return ErrSessionEnded
	}
	if err != nil {
		return err
	}

	e.duration = time.Since(start)
	if commit != nil {
		commit()
	}
	return nil
}

// Loading reports whether a request is in flight
func (e *Executor) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Results returns the current result set
func (e *Executor) Results() resultset.ResultSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// Duration returns how long the last successful request took
func (e *Executor) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Reset cancels the in-flight request and empties the result set
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.results = resultset.ResultSet{}
	e.duration = 0
}
