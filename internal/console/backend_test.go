package console

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhath/ezadmin/internal/api"
)

const testToken = "tok-1"

// fakeBackend is an in-process backend with canned responses. Handlers can
// be replaced per test; every request is counted by path.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	bodies   map[string][]string
	handlers map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	f := &fakeBackend{
		t:      t,
		hits:   make(map[string]int),
		bodies: make(map[string][]string),
		handlers: map[string]http.HandlerFunc{
			api.LoginPath:         loginHandler("admin", "secret"),
			api.QueryPath:         jsonHandler(http.StatusOK, `[{"x":1}]`),
			api.BackupPath:        jsonHandler(http.StatusAccepted, `{"message":"Backup started","id":"b1"}`),
			api.CheckDBPath:       jsonHandler(http.StatusOK, `[{"check":"integrity","status":"ok"}]`),
			api.DatabasesPath:     jsonHandler(http.StatusOK, `[{"name":"Sales","sizeMB":3.5,"createdOn":"2024-01-01"}]`),
			api.BackupHistoryPath: jsonHandler(http.StatusOK, `[{"id":"b0","database":"Sales","status":"done"}]`),
		},
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], string(body))
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if r.URL.Path != api.LoginPath && r.URL.Path != api.BackupHistoryPath {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Unauthorized"}`)
			return
		}
	}

	r.Body = io.NopCloser(strings.NewReader(string(body)))
	h(w, r)
}

func (f *fakeBackend) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) lastBody(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	bodies := f.bodies[path]
	if len(bodies) == 0 {
		return ""
	}
	return bodies[len(bodies)-1]
}

func (f *fakeBackend) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

// client returns an API client whose credential comes from session()
func (f *fakeBackend) client(session func() *Session) *api.Client {
	c, err := api.NewClient(api.Options{BaseURL: f.srv.URL, Timeout: 5 * time.Second})
	require.NoError(f.t, err)
	c.SetTokenSource(func() string {
		if s := session(); s != nil {
			return s.Token()
		}
		return ""
	})
	f.t.Cleanup(func() { _ = c.Close() })
	return c
}

func jsonHandler(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func loginHandler(username, password string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Username != username || req.Password != password {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"message":"Login successful","token":"`+testToken+`"}`)
	}
}

// blockingHandler holds requests until release is closed and signals
// entered once per request
func blockingHandler(entered chan<- struct{}, release <-chan struct{}, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = io.WriteString(w, body)
	}
}

// newTestController wires a controller to a fake backend
func newTestController(t *testing.T, opts Options) (*Controller, *fakeBackend) {
	t.Helper()

	f := newFakeBackend(t)
	var c *Controller
	client := f.client(func() *Session {
		if c == nil {
			return nil
		}
		return c.Session()
	})
	c = New(client, opts)

	return c, f
}
