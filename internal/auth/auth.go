// Package auth implements the optional HTTP Basic Auth boundary described
// in spec.md §6: an htpasswd-style file of bcrypt hashes, checked with
// golang.org/x/crypto/bcrypt the way yungbote-neurobridge-backend's
// internal/utils/auth.go checks login passwords. With no htpasswd file
// configured, every request is treated as user "anonymous".
package auth

import (
	"bufio"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// AnonymousUser is stamped on requests when no htpasswd file is configured
// or the request carries no Basic Auth header.
const AnonymousUser = "anonymous"

// Authenticator validates HTTP Basic credentials against an in-memory copy
// of an htpasswd file (username:bcrypt-hash per line, '#'-prefixed
// comments and blank lines skipped).
type Authenticator struct {
	mu    sync.RWMutex
	hash  map[string]string // username -> bcrypt hash
	empty bool
}

// Load reads path; an empty path yields an Authenticator that accepts
// every request as AnonymousUser (spec.md's "optional" auth boundary).
func Load(path string) (*Authenticator, error) {
	a := &Authenticator{hash: make(map[string]string)}
	if path == "" {
		a.empty = true
		return a, nil
	}
	if err := a.reload(path); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Authenticator) reload(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hash := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, digest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		hash[user] = digest
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	a.hash = hash
	a.mu.Unlock()
	return nil
}

// Authenticate validates r's Basic Auth credentials, returning the
// authenticated username. With no htpasswd file configured it always
// returns (AnonymousUser, true). A request with no Authorization header
// also authenticates as anonymous unless credentials were supplied and
// failed to verify, which returns ok=false.
func (a *Authenticator) Authenticate(r *http.Request) (user string, ok bool) {
	if a.empty {
		return AnonymousUser, true
	}

	user, pass, hasAuth := r.BasicAuth()
	if !hasAuth {
		return AnonymousUser, true
	}

	a.mu.RLock()
	digest, known := a.hash[user]
	a.mu.RUnlock()
	if !known {
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(pass)); err != nil {
		return "", false
	}
	return user, true
}

// Middleware wraps next, rejecting unauthenticated requests with 401 and
// stamping the authenticated username in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.Authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="torc"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// HashPassword bcrypt-hashes password at the default cost. cmd/torc-htpasswd
// does not call it; that tool hashes at a caller-supplied cost instead.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(digest), err
}
