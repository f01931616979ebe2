// Package console implements the session and query workflow of the admin
// console independently of any terminal UI.
package console

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/history"
	"github.com/nhath/ezadmin/internal/resultset"
)

var (
	// ErrNothingToExport is returned by Export when the result set is empty
	ErrNothingToExport = errors.New("no results to export")

	errSessionExpired = errors.New("session expired, please log in again")
)

// Phase is the state of the controller
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseIdle
	PhaseLoading
)

func (p Phase) String() string {
	switch p {
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Options configures a Controller
type Options struct {
	HistorySize int
	DarkMode    bool

	ExportDir   string
	Delimiter   string
	QuoteExport bool

	// Clipboard receives copied query text
	Clipboard func(text string) error
}

// Snapshot is a consistent copy of everything the presentation layer shows
type Snapshot struct {
	Phase    Phase
	Username string
	Dark     bool
	Loading  bool

	Query   string
	Results resultset.ResultSet
	Grid    resultset.Grid
	History []history.Entry

	Databases     []api.DatabaseRecord
	BackupHistory resultset.Grid

	LastError     string
	Notice        string
	Outcome       *Outcome
	QueryDuration time.Duration
}

// Controller composes the console components into one state machine.
// Every user intent is a method; state is read back through Snapshot.
type Controller struct {
	session     *Session
	history     *history.Log
	executor    *Executor
	registry    *Registry
	maintenance *Maintenance

	exportDir   string
	delimiter   string
	quoteExport bool
	clipboard   func(string) error

	mu        sync.RWMutex
	query     string
	dark      bool
	lastError string
	notice    string
}

// New creates a controller in the unauthenticated phase
func New(backend Backend, opts Options) *Controller {
	session := NewSession(backend)
	hist := history.NewLog(opts.HistorySize)
	executor := NewExecutor(session, backend, hist)

	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = resultset.DefaultDelimiter
	}

	return &Controller{
		session:     session,
		history:     hist,
		executor:    executor,
		registry:    NewRegistry(session, backend),
		maintenance: NewMaintenance(session, executor, backend),
		exportDir:   opts.ExportDir,
		delimiter:   delimiter,
		quoteExport: opts.QuoteExport,
		clipboard:   opts.Clipboard,
		dark:        opts.DarkMode,
	}
}

// Session exposes the session store, e.g. as the API client token source
func (c *Controller) Session() *Session {
	return c.session
}

// Init fetches the backup history once at startup, logged in or not
func (c *Controller) Init(ctx context.Context) error {
	_, err := c.FetchBackupHistory(ctx)
	return err
}

// Login authenticates and then loads the database list and backup history.
// Failures of the follow-up fetches are reported but do not fail the login.
func (c *Controller) Login(ctx context.Context, username, password string) (Confirmation, error) {
	conf, err := c.session.Login(ctx, username, password)
	if err != nil {
		// a rejected login never ends the session already in place
		c.setError(err)
		return Confirmation{}, err
	}
	c.succeed(conf.Message)

	if _, err := c.registry.Refresh(ctx); err != nil {
		c.setError(err)
	}
	if _, err := c.maintenance.FetchBackupHistory(ctx); err != nil {
		c.setError(err)
	}

	return conf, nil
}

// EditQuery replaces the query buffer
func (c *Controller) EditQuery(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = text
}

// Query returns the query buffer
func (c *Controller) Query() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query
}

// RunQuery submits the current query buffer
func (c *Controller) RunQuery(ctx context.Context) (resultset.ResultSet, error) {
	rs, err := c.executor.Submit(ctx, c.Query())
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.succeed("")
	return rs, nil
}

// RunBackup requests a backup, server-wide when database is empty
func (c *Controller) RunBackup(ctx context.Context, database string) (BackupStarted, error) {
	started, err := c.maintenance.RunBackup(ctx, database)
	if err != nil {
		c.fail(err)
		return BackupStarted{}, err
	}
	c.succeed(started.Message)
	return started, nil
}

// RunCheckDB runs the integrity check
func (c *Controller) RunCheckDB(ctx context.Context) (resultset.ResultSet, error) {
	rs, err := c.maintenance.RunCheckDB(ctx)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.succeed("Integrity check finished")
	return rs, nil
}

// Loading reports whether a query or maintenance call is in flight
func (c *Controller) Loading() bool {
	return c.executor.Loading()
}

// RefreshDatabases reloads the database list
func (c *Controller) RefreshDatabases(ctx context.Context) ([]api.DatabaseRecord, error) {
	records, err := c.registry.Refresh(ctx)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	return records, nil
}

// FetchBackupHistory reloads the backup history
func (c *Controller) FetchBackupHistory(ctx context.Context) (resultset.ResultSet, error) {
	rs, err := c.maintenance.FetchBackupHistory(ctx)
	if err != nil {
		c.setError(err)
		return nil, err
	}
	return rs, nil
}

// SelectHistory copies a history entry into the query buffer
func (c *Controller) SelectHistory(index int) (history.Entry, error) {
	entry, err := c.history.Select(index)
	if err != nil {
		return "", err
	}
	c.EditQuery(entry.Query())
	return entry, nil
}

// Export writes the current result set to the export file and returns its path
func (c *Controller) Export() (string, error) {
	rs := c.executor.Results()
	if len(rs) == 0 {
		return "", ErrNothingToExport
	}

	var buf bytes.Buffer
	if c.quoteExport {
		comma := []rune(c.delimiter)[0]
		if err := resultset.WriteCSV(&buf, rs, comma); err != nil {
			return "", errors.Wrap(err, "failed to encode results")
		}
	} else {
		buf.WriteString(resultset.ToDelimitedText(rs, c.delimiter))
		buf.WriteByte('\n')
	}

	dir := c.exportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create export directory")
	}

	path := filepath.Join(dir, resultset.ExportFilename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write export file")
	}

	log.Printf("console: exported %d rows to %s", len(rs), path)
	c.succeed("Exported results to " + path)
	return path, nil
}

// CopyQuery puts the query buffer on the clipboard
func (c *Controller) CopyQuery() error {
	if c.clipboard == nil {
		return errors.New("clipboard is not available")
	}
	if err := c.clipboard(resultset.ToClipboardText(c.Query())); err != nil {
		return errors.Wrap(err, "failed to copy query")
	}
	c.succeed("Query copied to clipboard")
	return nil
}

// ToggleTheme flips between dark and light and returns the new value
func (c *Controller) ToggleTheme() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dark = !c.dark
	return c.dark
}

// Dark reports whether the dark theme is active
func (c *Controller) Dark() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dark
}

// Logout ends the session, cancels the in-flight request and clears the
// query buffer, result set, history and database cache
func (c *Controller) Logout() {
	c.logout("Logged out")
}

func (c *Controller) logout(notice string) {
	// the generation bump must precede the resets so late responses are dropped
	c.session.Logout()
	c.executor.Reset()
	c.history.Clear()
	c.registry.Clear()
	c.maintenance.ClearOutcomes()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = ""
	c.lastError = ""
	c.notice = notice
}

// Snapshot returns a copy of the observable state
func (c *Controller) Snapshot() Snapshot {
	info := c.session.Info()
	loading := c.executor.Loading()
	results := c.executor.Results()

	phase := PhaseUnauthenticated
	if info.Authenticated {
		phase = PhaseIdle
		if loading {
			phase = PhaseLoading
		}
	}

	s := Snapshot{
		Phase:         phase,
		Username:      info.Username,
		Loading:       loading,
		Results:       results,
		Grid:          resultset.ToGrid(results),
		History:       c.history.Entries(),
		Databases:     c.registry.Records(),
		BackupHistory: resultset.ToGrid(c.maintenance.BackupHistory()),
		QueryDuration: c.executor.Duration(),
	}
	if o, ok := c.maintenance.Latest(); ok {
		s.Outcome = &o
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	s.Query = c.query
	s.Dark = c.dark
	s.LastError = c.lastError
	s.Notice = c.notice

	return s
}

// fail records err for display. A rejected session credential ends the
// session.
func (c *Controller) fail(err error) {
	if errors.Is(err, ErrSessionEnded) {
		return
	}
	if c.session.IsAuthenticated() && sessionExpired(err) {
		log.Printf("console: session expired: %v", err)
		c.logout("")
		c.setError(errSessionExpired)
		return
	}
	c.setError(err)
}

func (c *Controller) setError(err error) {
	if errors.Is(err, ErrSessionEnded) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err.Error()
	c.notice = ""
}

func (c *Controller) succeed(notice string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = ""
	c.notice = notice
}
