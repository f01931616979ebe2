package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/history"
)

func newTestMaintenance(t *testing.T, login bool) (*Maintenance, *Executor, *fakeBackend) {
	t.Helper()

	s, f, client := newTestSession(t)
	if login {
		_, err := s.Login(context.Background(), "admin", "secret")
		require.NoError(t, err)
	}
	e := NewExecutor(s, client, history.NewLog(0))
	m := NewMaintenance(s, e, client)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	return m, e, f
}

func TestRunBackupUnauthenticated(t *testing.T) {
	m, _, f := newTestMaintenance(t, false)

	_, err := m.RunBackup(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = m.RunCheckDB(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.totalHits())

	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestRunBackupPerDatabase(t *testing.T) {
	m, e, f := newTestMaintenance(t, true)

	rs, err := e.Submit(context.Background(), "SELECT 1 AS x")
	require.NoError(t, err)

	started, err := m.RunBackup(context.Background(), "Sales")
	require.NoError(t, err)

	assert.Equal(t, BackupStarted{Database: "Sales", Message: "Backup started", ID: "b1"}, started)
	assert.JSONEq(t, `{"database":"Sales"}`, f.lastBody(api.BackupPath))
	assert.Equal(t, rs, e.Results())
	assert.False(t, e.Loading())

	o, ok := m.LastOutcome(ActionBackup)
	require.True(t, ok)
	assert.True(t, o.OK)
	assert.Equal(t, "backup of Sales", o.Label())
	assert.Equal(t, 2024, o.At.Year())
}

func TestRunBackupServerWide(t *testing.T) {
	m, _, f := newTestMaintenance(t, true)
	f.handle(api.BackupPath, jsonHandler(202, ``))

	started, err := m.RunBackup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Backup started", started.Message)
	assert.JSONEq(t, `{}`, f.lastBody(api.BackupPath))

	o, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, "backup", o.Label())
}

func TestRunBackupRejected(t *testing.T) {
	m, _, f := newTestMaintenance(t, true)
	f.handle(api.BackupPath, jsonHandler(409, `{"message":"backup already running"}`))

	_, err := m.RunBackup(context.Background(), "Sales")
	require.Error(t, err)

	var me *MaintenanceError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ActionBackup, me.Action)
	assert.Equal(t, "Sales", me.Database)
	assert.Equal(t, "backup already running", err.Error())

	o, ok := m.LastOutcome(ActionBackup)
	require.True(t, ok)
	assert.False(t, o.OK)
	assert.Equal(t, "backup already running", o.Message)
}

func TestRunCheckDB(t *testing.T) {
	m, e, _ := newTestMaintenance(t, true)

	rs, err := m.RunCheckDB(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, []string{"check", "status"}, rs.Columns())
	assert.Equal(t, rs, e.Results())

	o, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, ActionCheckDB, o.Action)
	assert.True(t, o.OK)
}

func TestRunCheckDBFailureKeepsResults(t *testing.T) {
	m, e, f := newTestMaintenance(t, true)

	before, err := e.Submit(context.Background(), "SELECT 1 AS x")
	require.NoError(t, err)

	f.handle(api.CheckDBPath, jsonHandler(500, `{"error":"check failed"}`))
	_, err = m.RunCheckDB(context.Background())
	require.Error(t, err)

	var me *MaintenanceError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "check failed", err.Error())
	assert.Equal(t, before, e.Results())
}

func TestMaintenanceBusy(t *testing.T) {
	m, e, f := newTestMaintenance(t, true)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f.handle(api.QueryPath, blockingHandler(entered, release, `[]`))

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), "SELECT slow")
		done <- err
	}()
	<-entered

	_, err := m.RunBackup(context.Background(), "")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = m.RunCheckDB(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	assert.Zero(t, f.count(api.BackupPath))
	_, ok := m.Latest()
	assert.False(t, ok)
}

func TestFetchBackupHistoryWithoutLogin(t *testing.T) {
	m, _, f := newTestMaintenance(t, false)

	rs, err := m.FetchBackupHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, rs, m.BackupHistory())
	assert.Equal(t, 1, f.count(api.BackupHistoryPath))

	f.handle(api.BackupHistoryPath, jsonHandler(503, ``))
	_, err = m.FetchBackupHistory(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Service Unavailable (503)", err.Error())
	assert.Equal(t, rs, m.BackupHistory())
}

func TestClearOutcomes(t *testing.T) {
	m, _, _ := newTestMaintenance(t, true)

	_, err := m.RunBackup(context.Background(), "")
	require.NoError(t, err)

	m.ClearOutcomes()
	_, ok := m.Latest()
	assert.False(t, ok)
	_, ok = m.LastOutcome(ActionBackup)
	assert.False(t, ok)
}
