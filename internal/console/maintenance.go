package console

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nhath/ezadmin/internal/resultset"
)

// Action names a maintenance operation
type Action string

const (
	ActionBackup        Action = "backup"
	ActionCheckDB       Action = "checkdb"
	ActionBackupHistory Action = "backup-history"
)

// BackupStarted confirms that the backend accepted a backup request
type BackupStarted struct {
	Database string
	Message  string
	ID       string
}

// Outcome is the last known result of an action
type Outcome struct {
	Action   Action
	Database string
	OK       bool
	Message  string
	At       time.Time
}

// Label describes the action target, e.g. "backup of sales"
func (o Outcome) Label() string {
	if o.Database == "" {
		return string(o.Action)
	}
	return fmt.Sprintf("%s of %s", o.Action, o.Database)
}

// Maintenance issues backup and integrity check requests. Backups are
// fire-and-forget: success means the backend accepted the request.
type Maintenance struct {
	session  *Session
	executor *Executor
	backend  Backend
	now      func() time.Time

	mu            sync.RWMutex
	outcomes      map[Action]Outcome
	latest        Action
	backupHistory resultset.ResultSet
}

// NewMaintenance creates a coordinator sharing the executor's request guard
func NewMaintenance(session *Session, executor *Executor, backend Backend) *Maintenance {
	return &Maintenance{
		session:       session,
		executor:      executor,
		backend:       backend,
		now:           time.Now,
		outcomes:      make(map[Action]Outcome),
		backupHistory: resultset.ResultSet{},
	}
}

// RunBackup requests a backup of database, or of the whole server when
// database is empty. The result set is never touched.
func (m *Maintenance) RunBackup(ctx context.Context, database string) (BackupStarted, error) {
	if !m.session.IsAuthenticated() {
		return BackupStarted{}, ErrNotAuthenticated
	}

	var started BackupStarted
	err := m.executor.Track(ctx, func(ctx context.Context) error {
		resp, err := m.backend.Backup(ctx, database)
		if err != nil {
			return &MaintenanceError{Action: ActionBackup, Database: database, Underlying: err}
		}
		started = BackupStarted{Database: database, Message: resp.Message, ID: resp.ID}
		return nil
	})
	if err != nil {
		m.recordFailure(ActionBackup, database, err)
		return BackupStarted{}, err
	}

	if started.Message == "" {
		started.Message = "Backup started"
	}
	log.Printf("maintenance: backup accepted (database=%q id=%q)", database, started.ID)
	m.record(Outcome{Action: ActionBackup, Database: database, OK: true, Message: started.Message})

	return started, nil
}

// RunCheckDB runs the integrity check; its diagnostics replace the result set
func (m *Maintenance) RunCheckDB(ctx context.Context) (resultset.ResultSet, error) {
	if !m.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	rs, err := m.executor.Tabular(ctx, func(ctx context.Context) (resultset.ResultSet, error) {
		rs, err := m.backend.CheckDB(ctx)
		if err != nil {
			return nil, &MaintenanceError{Action: ActionCheckDB, Underlying: err}
		}
		return rs, nil
	})
	if err != nil {
		m.recordFailure(ActionCheckDB, "", err)
		return nil, err
	}

	m.record(Outcome{Action: ActionCheckDB, OK: true, Message: fmt.Sprintf("Integrity check returned %d rows", len(rs))})
	return rs, nil
}

// FetchBackupHistory loads past backup events. It does not require a
// session: it is issued once at startup and again after login.
func (m *Maintenance) FetchBackupHistory(ctx context.Context) (resultset.ResultSet, error) {
	rs, err := m.backend.BackupHistory(ctx)
	if err != nil {
		log.Printf("maintenance: failed to fetch backup history: %v", err)
		return nil, WrapFetchError(string(ActionBackupHistory), err)
	}

	m.mu.Lock()
	m.backupHistory = rs
	m.mu.Unlock()

	return rs, nil
}

// BackupHistory returns the last fetched backup history
func (m *Maintenance) BackupHistory() resultset.ResultSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backupHistory
}

// LastOutcome returns the last outcome of action
func (m *Maintenance) LastOutcome(action Action) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outcomes[action]
	return o, ok
}

// Latest returns the most recent outcome of any action
func (m *Maintenance) Latest() (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == "" {
		return Outcome{}, false
	}
	return m.outcomes[m.latest], true
}

// ClearOutcomes forgets the recorded outcomes
func (m *Maintenance) ClearOutcomes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = make(map[Action]Outcome)
	m.latest = ""
}

func (m *Maintenance) recordFailure(action Action, database string, err error) {
	// guard rejections and cancelled calls are not outcomes
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrSessionEnded) || errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("maintenance: %s failed: %v", action, err)
	m.record(Outcome{Action: action, Database: database, Message: err.Error()})
}

func (m *Maintenance) record(o Outcome) {
	o.At = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[o.Action] = o
	m.latest = o.Action
}
