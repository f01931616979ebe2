// internal/devserver/backups.go
package devserver

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/nhath/ezadmin/internal/resultset"
)

// Backup statuses
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// DefaultBackupTimeout bounds a single backup run
const DefaultBackupTimeout = 30 * time.Minute

// allDatabases labels a server-wide backup
const allDatabases = "all"

// BackupRecord is one entry of the backup history
type BackupRecord struct {
	ID         string
	Database   string
	Status     string
	Path       string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Backups runs backups in the background and keeps their history
type Backups struct {
	engine  Engine
	dir     string
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	records []BackupRecord
	wg      sync.WaitGroup
	cron    *cron.Cron
}

// NewBackups writes backups of engine into dir
func NewBackups(engine Engine, dir string) *Backups {
	return &Backups{
		engine:  engine,
		dir:     dir,
		timeout: DefaultBackupTimeout,
		now:     time.Now,
	}
}

// Start records a running backup of database and runs it in the background.
// An empty database backs up the default database.
func (b *Backups) Start(database string) BackupRecord {
	label := database
	if label == "" {
		label = allDatabases
	}

	rec := BackupRecord{
		ID:        uuid.New().String(),
		Database:  label,
		Status:    StatusRunning,
		StartedAt: b.now(),
	}
	rec.Path = filepath.Join(b.dir, label+"-"+rec.ID+BackupExt(b.engine.Kind()))

	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run(rec, database)

	log.Printf("devserver: backup %s of %s started", rec.ID, label)
	return rec
}

func (b *Backups) run(rec BackupRecord, database string) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	err := os.MkdirAll(b.dir, 0o755)
	if err != nil {
		err = errors.Wrap(err, "failed to create backup directory")
	} else {
		err = b.engine.Backup(ctx, database, rec.Path)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if b.records[i].ID != rec.ID {
			continue
		}
		b.records[i].FinishedAt = b.now()
		if err != nil {
			b.records[i].Status = StatusFailed
			b.records[i].Error = err.Error()
			log.Printf("devserver: backup %s failed: %v", rec.ID, err)
		} else {
			b.records[i].Status = StatusDone
			log.Printf("devserver: backup %s written to %s", rec.ID, rec.Path)
		}
	}
}

// Wait blocks until every started backup has finished
func (b *Backups) Wait() {
	b.wg.Wait()
}

// Records returns the history, newest first
func (b *Backups) Records() []BackupRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BackupRecord, len(b.records))
	for i, r := range b.records {
		out[len(b.records)-1-i] = r
	}
	return out
}

// History returns the history as rows, newest first
func (b *Backups) History() resultset.ResultSet {
	columns := []string{"id", "database", "status", "startedAt", "finishedAt", "path", "error"}

	rs := resultset.ResultSet{}
	for _, r := range b.Records() {
		rs = append(rs, resultset.RowOf(columns,
			r.ID, r.Database, r.Status, formatDate(r.StartedAt), formatDate(r.FinishedAt), r.Path, r.Error))
	}
	return rs
}

// LastBackup returns when database was last backed up successfully.
// Server-wide backups count for every database.
func (b *Backups) LastBackup(database string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var last time.Time
	for _, r := range b.records {
		if r.Status != StatusDone || (r.Database != database && r.Database != allDatabases) {
			continue
		}
		if r.FinishedAt.After(last) {
			last = r.FinishedAt
		}
	}
	return last, !last.IsZero()
}

// Schedule starts a server-wide backup on every tick of a cron spec
func (b *Backups) Schedule(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { b.Start("") }); err != nil {
		return errors.Wrapf(err, "invalid backup schedule %q", spec)
	}
	c.Start()

	b.mu.Lock()
	b.cron = c
	b.mu.Unlock()

	log.Printf("devserver: scheduled backups %q", spec)
	return nil
}

// Stop ends the schedule and waits for running backups
func (b *Backups) Stop() {
	b.mu.Lock()
	c := b.cron
	b.cron = nil
	b.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	b.Wait()
}
