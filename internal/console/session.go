package console

import (
	"context"
	"log"
	"sync"
)

// Confirmation is the backend acknowledgement of a successful login
type Confirmation struct {
	Message string
}

// SessionInfo is a copy of the session state
type SessionInfo struct {
	Authenticated bool
	Username      string
}

// Session holds the authentication state of the current process.
// It is never persisted.
type Session struct {
	backend Backend

	mu            sync.RWMutex
	authenticated bool
	username      string
	token         string
	generation    uint64
}

// NewSession creates an unauthenticated session
func NewSession(backend Backend) *Session {
	return &Session{backend: backend}
}

// Login forwards the credentials as given, empty ones included. On failure
// the session stays as it was and an *AuthError is returned.
func (s *Session) Login(ctx context.Context, username, password string) (Confirmation, error) {
	gen := s.Generation()

	resp, err := s.backend.Login(ctx, username, password)
	if err != nil {
		log.Printf("session: login as %q failed: %v", username, err)
		return Confirmation{}, WrapAuthError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		return Confirmation{}, ErrSessionEnded
	}

	s.authenticated = true
	s.username = username
	s.token = resp.Token
	s.generation++

	log.Printf("session: logged in as %q", username)

	msg := resp.Message
	if msg == "" {
		msg = "Login successful"
	}
	return Confirmation{Message: msg}, nil
}

// IsAuthenticated reports whether a login has succeeded
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Username returns the logged in operator, empty when unauthenticated
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Token returns the session credential attached to backend calls
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Generation changes on every login and logout. Work started under one
// generation must not be applied under another.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// current returns the generation together with whether it is an
// authenticated one, read under a single lock
func (s *Session) current() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation, s.authenticated
}

// Info returns a copy of the session state
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{Authenticated: s.authenticated, Username: s.username}
}

// Logout returns the session to unauthenticated
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticated {
		log.Printf("session: %q logged out", s.username)
	}
	s.authenticated = false
	s.username = ""
	s.token = ""
	s.generation++
}
