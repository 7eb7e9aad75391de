package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathAcceptsEveryoneAsAnonymous(t *testing.T) {
	a, err := Load("")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	user, ok := a.Authenticate(req)
	require.True(t, ok)
	assert.Equal(t, AnonymousUser, user)
}

func TestLoad_ValidatesBcryptCredentials(t *testing.T) {
	digest, err := HashPassword("hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "htpasswd")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nalice:"+digest+"\n"), 0o600))

	a, err := Load(path)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("alice", "hunter2")
	user, ok := a.Authenticate(req)
	require.True(t, ok)
	assert.Equal(t, "alice", user)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.SetBasicAuth("alice", "wrong")
	_, ok = a.Authenticate(req2)
	require.False(t, ok)
}

func TestMiddleware_RejectsBadCredentialsWith401(t *testing.T) {
	digest, err := HashPassword("s3cret")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "htpasswd")
	require.NoError(t, os.WriteFile(path, []byte("bob:"+digest+"\n"), 0o600))

	a, err := Load(path)
	require.NoError(t, err)

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := a.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("bob", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.SetBasicAuth("bob", "s3cret")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "bob", gotUser)
}
