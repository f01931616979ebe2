package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/ezadmin/internal/api"
)

func newTestSession(t *testing.T) (*Session, *fakeBackend, *api.Client) {
	t.Helper()

	f := newFakeBackend(t)
	var s *Session
	client := f.client(func() *Session { return s })
	s = NewSession(client)

	return s, f, client
}

func TestSessionLogin(t *testing.T) {
	s, _, _ := newTestSession(t)
	assert.False(t, s.IsAuthenticated())

	gen := s.Generation()
	conf, err := s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	assert.Equal(t, "Login successful", conf.Message)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "admin", s.Username())
	assert.Equal(t, testToken, s.Token())
	assert.NotEqual(t, gen, s.Generation())
	assert.Equal(t, SessionInfo{Authenticated: true, Username: "admin"}, s.Info())
}

func TestSessionLoginInvalidCredentials(t *testing.T) {
	s, f, _ := newTestSession(t)

	_, err := s.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Username())
	assert.Empty(t, s.Token())
	assert.Equal(t, 1, f.count(api.LoginPath))
}

func TestSessionLoginEmptyCredentialsForwarded(t *testing.T) {
	s, f, _ := newTestSession(t)

	_, err := s.Login(context.Background(), "", "")
	assert.Error(t, err)
	assert.Equal(t, 1, f.count(api.LoginPath))
	assert.JSONEq(t, `{"username":"","password":""}`, f.lastBody(api.LoginPath))
}

func TestSessionLoginUnreachable(t *testing.T) {
	s, f, _ := newTestSession(t)
	f.srv.Close()

	_, err := s.Login(context.Background(), "admin", "secret")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "backend unreachable")
	assert.False(t, s.IsAuthenticated())
}

func TestSessionLoginWithoutToken(t *testing.T) {
	s, f, _ := newTestSession(t)
	f.handle(api.LoginPath, jsonHandler(200, `{"message":"Welcome"}`))

	conf, err := s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", conf.Message)
	assert.True(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestSessionLogout(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	gen := s.Generation()
	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Username())
	assert.Empty(t, s.Token())
	assert.Greater(t, s.Generation(), gen)
}

func TestSessionCurrent(t *testing.T) {
	s, _, _ := newTestSession(t)

	gen, ok := s.current()
	assert.False(t, ok)
	assert.Equal(t, s.Generation(), gen)

	_, err := s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	gen, ok = s.current()
	assert.True(t, ok)
	assert.Equal(t, s.Generation(), gen)

	s.Logout()

	next, ok := s.current()
	assert.False(t, ok)
	assert.Greater(t, next, gen)
}
