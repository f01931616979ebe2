// Package devserver is a small reference implementation of the admin REST
// backend, serving a SQLite, PostgreSQL or MySQL database for local use and
// end-to-end tests.
package devserver

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sethvargo/go-password/password"

	"github.com/nhath/ezadmin/internal/api"
)

// DefaultUsername is the operator name when none is configured
const DefaultUsername = "admin"

// SessionCookie carries the session token for cookie-based clients
const SessionCookie = "ezadmin_session"

const maxBodySize = 1 << 20

// Options configures a Server
type Options struct {
	Username string
	// Password is generated when empty
	Password  string
	BackupDir string
	// Schedule is an optional cron spec for server-wide backups
	Schedule string
}

// Server implements the admin REST API over an Engine
type Server struct {
	engine   Engine
	backups  *Backups
	username string
	password string

	mu     sync.RWMutex
	tokens map[string]string

	handler http.Handler
}

// New creates a server for engine
func New(engine Engine, opts Options) (*Server, error) {
	s := &Server{
		engine:   engine,
		backups:  NewBackups(engine, opts.BackupDir),
		username: opts.Username,
		password: opts.Password,
		tokens:   make(map[string]string),
	}

	if s.username == "" {
		s.username = DefaultUsername
	}
	if s.password == "" {
		generated, err := password.Generate(20, 4, 0, false, false)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate password")
		}
		s.password = generated
		log.Printf("devserver: generated password for %s: %s", s.username, s.password)
	}

	if opts.Schedule != "" {
		if err := s.backups.Schedule(opts.Schedule); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.LoginPath, s.handleLogin)
	mux.Handle("POST "+api.QueryPath, s.requireSession(s.handleQuery))
	mux.Handle("POST "+api.BackupPath, s.requireSession(s.handleBackup))
	mux.Handle("POST "+api.CheckDBPath, s.requireSession(s.handleCheckDB))
	mux.Handle("GET "+api.DatabasesPath, s.requireSession(s.handleDatabases))
	mux.HandleFunc("GET "+api.BackupHistoryPath, s.handleBackupHistory)
	s.handler = logRequests(mux)

	return s, nil
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Username returns the operator name
func (s *Server) Username() string {
	return s.username
}

// Password returns the operator password
func (s *Server) Password() string {
	return s.password
}

// Backups returns the backup runner
func (s *Server) Backups() *Backups {
	return s.backups
}

// Close stops scheduled backups and waits for running ones
func (s *Server) Close() {
	s.backups.Stop()
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) == 1
	if !userOK || !passOK {
		log.Printf("devserver: failed login for %q", req.Username)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token := xid.New().String()
	s.mu.Lock()
	s.tokens[token] = req.Username
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, api.LoginResponse{Message: "Login successful", Token: token})
}

// sessionUser resolves the bearer token or session cookie of r
func (s *Server) sessionUser(r *http.Request) (string, bool) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie(SessionCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.tokens[token]
	return user, ok
}

func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	rs, err := s.engine.Query(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	var req api.BackupRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	database := ""
	if req.Database != nil {
		database = *req.Database
	}
	if database != "" {
		records, err := s.engine.Databases(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if !hasDatabase(records, database) {
			writeMessage(w, http.StatusNotFound, "Unknown database: "+database)
			return
		}
	}

	rec := s.backups.Start(database)
	writeJSON(w, http.StatusAccepted, api.BackupResponse{Message: "Backup started", ID: rec.ID})
}

func hasDatabase(records []api.DatabaseRecord, name string) bool {
	for _, r := range records {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) handleCheckDB(w http.ResponseWriter, r *http.Request) {
	rs, err := s.engine.CheckDB(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.Databases(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range records {
		if at, ok := s.backups.LastBackup(records[i].Name); ok {
			records[i].LastBackup = formatDate(at)
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleBackupHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backups.History())
}

// decodeBody reads a JSON request body; an empty body leaves v untouched
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("devserver: failed to write response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}

// writeError maps statement failures to 400 and everything else to 500
func writeError(w http.ResponseWriter, err error) {
	var qe *QueryError
	if errors.As(err, &qe) {
		writeMessage(w, http.StatusBadRequest, qe.Error())
		return
	}
	log.Printf("devserver: %v", err)
	writeMessage(w, http.StatusInternalServerError, err.Error())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("devserver: %s %s [%s] %d in %s",
			r.Method, r.URL.Path, r.Header.Get(api.RequestIDHeader), rec.status, time.Since(start).Round(time.Microsecond))
	})
}
