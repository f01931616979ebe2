package ui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/config"
	"github.com/nhath/ezadmin/internal/console"
)

// newTestServer serves a fake backend. routes replace the default handler
// for their path.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	handlers := map[string]http.HandlerFunc{
		api.LoginPath: func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"password":"secret"`) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
				return
			}
			_, _ = io.WriteString(w, `{"message":"Login successful","token":"tok-1"}`)
		},
		api.QueryPath: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"x":1},{"x":2}]`)
		},
		api.BackupPath: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"message":"Backup started","id":"b1"}`)
		},
		api.CheckDBPath: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"check":"integrity","status":"ok"}]`)
		},
		api.DatabasesPath: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"name":"Sales","sizeMB":3.5}]`)
		},
		api.BackupHistoryPath: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[]`)
		},
	}
	for path, h := range routes {
		handlers[path] = h
	}

	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, password string) Model {
	t.Helper()
	return newTestModelWith(t, password, nil)
}

func newTestModelWith(t *testing.T, password string, routes map[string]http.HandlerFunc) Model {
	t.Helper()

	srv := newTestServer(t, routes)
	client, err := api.NewClient(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctrl := console.New(client, console.Options{HistorySize: 5, DarkMode: true, ExportDir: t.TempDir()})
	client.SetTokenSource(ctrl.Session().Token)

	cfg := config.DefaultConfig()
	server := cfg.Servers[0]
	server.URL = srv.URL
	server.Username = "admin"
	server.Password = password

	m := NewModel(cfg, &server, ctrl, "")
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

// update feeds msg to the model and then runs the resulting commands once,
// feeding back the console messages they produce
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()

	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, out := range runCmd(cmd) {
		switch out.(type) {
		case LoginResultMsg, QueryResultMsg, BackupStartedMsg, CheckDBResultMsg,
			DatabasesLoadedMsg, ExportedMsg, ClipboardCopiedMsg, BackupHistoryLoadedMsg:
			m = update(t, m, out)
		}
	}
	return m
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, runCmd(c)...)
	}
	return msgs
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func loggedInModel(t *testing.T) Model {
	t.Helper()
	return loggedInModelWith(t, nil)
}

func loggedInModelWith(t *testing.T, routes map[string]http.HandlerFunc) Model {
	t.Helper()
	m := newTestModelWith(t, "secret", routes)
	m = update(t, m, key(tea.KeyEnter))
	require.Equal(t, StateReady, m.appState)
	return m
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := newTestModel(t, "secret")
	m.width = 0
	assert.Equal(t, "Loading...", m.View())
}

func TestLoginScreen(t *testing.T) {
	m := newTestModel(t, "")

	assert.Equal(t, StateLogin, m.appState)
	assert.Equal(t, 1, m.loginField)

	view := m.View()
	assert.Contains(t, view, "Username")
	assert.Contains(t, view, "Password")
}

func TestLoginSuccess(t *testing.T) {
	m := loggedInModel(t)

	assert.Equal(t, FocusEditor, m.focus)
	assert.Equal(t, "admin", m.snap.Username)
	assert.Equal(t, "Login successful", m.statusMsg)
	assert.Len(t, m.snap.Databases, 1)
	assert.Empty(t, m.passwordInput.Value())
	assert.Contains(t, m.View(), "History")
}

func TestLoginFailure(t *testing.T) {
	m := newTestModel(t, "wrong")
	m = update(t, m, key(tea.KeyEnter))

	assert.Equal(t, StateLogin, m.appState)
	assert.Equal(t, "Invalid credentials", m.errorMsg)
	assert.Contains(t, m.View(), "Invalid credentials")
}

func TestLoginFieldSwitch(t *testing.T) {
	m := newTestModel(t, "")

	m = update(t, m, key(tea.KeyTab))
	assert.Equal(t, 0, m.loginField)

	// enter on the username field only moves to the password
	m = update(t, m, key(tea.KeyEnter))
	assert.Equal(t, 1, m.loginField)
	assert.Equal(t, StateLogin, m.appState)
}

func TestRunQuery(t *testing.T) {
	m := loggedInModel(t)

	m.editor.SetValue("SELECT x FROM t")
	m = update(t, m, key(tea.KeyCtrlR))

	assert.False(t, m.loading)
	assert.Equal(t, FocusResults, m.focus)
	assert.Equal(t, []string{"x"}, m.snap.Grid.Headers)
	assert.Len(t, m.snap.Grid.Rows, 2)
	assert.Equal(t, 1, m.historyList.Len())
	assert.Contains(t, m.renderStatusBar(), "2 rows")
}

func TestActionsDisabledWhileQueryRuns(t *testing.T) {
	release := make(chan struct{})
	var queries, backups atomic.Int32
	m := loggedInModelWith(t, map[string]http.HandlerFunc{
		api.QueryPath: func(w http.ResponseWriter, r *http.Request) {
			queries.Add(1)
			<-release
			_, _ = io.WriteString(w, `[{"x":1},{"x":2}]`)
		},
		api.BackupPath: func(w http.ResponseWriter, r *http.Request) {
			backups.Add(1)
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"message":"Backup started"}`)
		},
	})

	m.editor.SetValue("SELECT x FROM t")
	next, cmd := m.Update(key(tea.KeyCtrlR))
	m = next.(Model)
	require.NotNil(t, cmd)
	require.True(t, m.loading)

	done := make(chan []tea.Msg, 1)
	go func() { done <- runCmd(cmd) }()
	require.Eventually(t, func() bool { return queries.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	for _, k := range []tea.KeyType{tea.KeyCtrlR, tea.KeyCtrlB, tea.KeyCtrlK} {
		next, cmd = m.Update(key(k))
		m = next.(Model)
		assert.Nil(t, cmd, k.String())
		assert.True(t, m.loading, k.String())
	}

	// a stray busy rejection must not end the loading state
	m = update(t, m, QueryResultMsg{Err: console.ErrBusy})
	assert.True(t, m.loading)
	assert.True(t, m.snap.Loading)

	close(release)
	for _, out := range <-done {
		if _, ok := out.(QueryResultMsg); ok {
			m = update(t, m, out)
		}
	}

	assert.False(t, m.loading)
	assert.Equal(t, int32(1), queries.Load())
	assert.Zero(t, backups.Load())
	assert.Len(t, m.snap.Grid.Rows, 2)
	assert.Equal(t, 1, m.historyList.Len())
}

func TestSelectHistoryLoadsEditor(t *testing.T) {
	m := loggedInModel(t)

	m.editor.SetValue("SELECT 1")
	m = update(t, m, key(tea.KeyCtrlR))
	m.editor.SetValue("")

	m.focus = FocusHistory
	m = m.applyFocus()
	m = update(t, m, key(tea.KeyEnter))

	assert.Equal(t, FocusEditor, m.focus)
	assert.Equal(t, "SELECT 1", m.editor.Value())
}

func TestFocusCycle(t *testing.T) {
	m := loggedInModel(t)

	m = update(t, m, key(tea.KeyTab))
	assert.Equal(t, FocusHistory, m.focus)
	m = update(t, m, key(tea.KeyTab))
	assert.Equal(t, FocusResults, m.focus)
	m = update(t, m, key(tea.KeyTab))
	assert.Equal(t, FocusEditor, m.focus)
}

func TestBackupAndCheckDB(t *testing.T) {
	m := loggedInModel(t)

	m = update(t, m, key(tea.KeyCtrlB))
	require.NotNil(t, m.snap.Outcome)
	assert.Equal(t, console.ActionBackup, m.snap.Outcome.Action)
	assert.True(t, m.snap.Outcome.OK)
	assert.Equal(t, "Backup started", m.statusMsg)

	m = update(t, m, key(tea.KeyCtrlK))
	require.NotNil(t, m.snap.Outcome)
	assert.Equal(t, console.ActionCheckDB, m.snap.Outcome.Action)
	assert.Equal(t, []string{"check", "status"}, m.snap.Grid.Headers)
	assert.Contains(t, m.renderStatusBar(), "checkdb")
}

func TestDatabasesPopupBacksUpHighlighted(t *testing.T) {
	m := loggedInModel(t)

	m = update(t, m, key(tea.KeyCtrlD))
	require.True(t, m.showDatabasesPopup)
	assert.Contains(t, m.View(), "Sales")

	m = update(t, m, key(tea.KeyEnter))
	assert.False(t, m.showDatabasesPopup)
	require.NotNil(t, m.snap.Outcome)
	assert.Equal(t, "Sales", m.snap.Outcome.Database)
}

func TestHelpPopupClosesOnEsc(t *testing.T) {
	m := loggedInModel(t)

	m = update(t, m, key(tea.KeyF1))
	require.True(t, m.showHelpPopup)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = update(t, m, key(tea.KeyEsc))
	assert.False(t, m.showHelpPopup)
	assert.True(t, m.popupStack.IsEmpty())
}

func TestExportWithoutResults(t *testing.T) {
	m := loggedInModel(t)

	m = update(t, m, key(tea.KeyCtrlE))
	assert.Equal(t, console.ErrNothingToExport.Error(), m.errorMsg)
}

func TestToggleTheme(t *testing.T) {
	m := loggedInModel(t)
	require.True(t, m.console.Dark())

	m = update(t, m, key(tea.KeyCtrlT))
	assert.False(t, m.console.Dark())
}

func TestLogout(t *testing.T) {
	m := loggedInModel(t)
	m.editor.SetValue("SELECT 1")
	m = update(t, m, key(tea.KeyCtrlR))

	m = update(t, m, key(tea.KeyCtrlL))

	assert.Equal(t, StateLogin, m.appState)
	assert.Equal(t, console.PhaseUnauthenticated, m.snap.Phase)
	assert.Equal(t, 0, m.historyList.Len())
	assert.True(t, m.snap.Grid.Empty())
	assert.Equal(t, "admin", m.usernameInput.Value())
	assert.Empty(t, m.passwordInput.Value())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", formatDuration(0))
	assert.Equal(t, "12ms", formatDuration(12*time.Millisecond))
	assert.Equal(t, "1 minute 30 seconds", formatDuration(90*time.Second))
}

func TestLimitString(t *testing.T) {
	assert.Equal(t, "short", limitString("short", 10))
	assert.Equal(t, "abc...xyz", limitString("abcdefghijklmnopqrstuvwxyz", 9))
}
