package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/tribalgis/claimgis/internal/config"
)

// CredentialStore validates login credentials. Injected into the
// handlers so deployments can swap the demo table for a real provider.
type CredentialStore interface {
	Authenticate(username, password string) bool
}

// StaticCredentials is a fixed username/password table.
type StaticCredentials map[string]string

// Authenticate checks username/password against the table.
func (c StaticCredentials) Authenticate(username, password string) bool {
	want, ok := c[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}

// CredentialsFromConfig builds a credential store from config.Users,
// falling back to the demo accounts when none are configured.
func CredentialsFromConfig(cfg *config.Config) CredentialStore {
	if len(cfg.Users) > 0 {
		return StaticCredentials(cfg.Users)
	}
	return StaticCredentials{
		"admin": "admin123",
		"user":  "user123",
	}
}

// requireLogin redirects to /login unless the request carries a live
// session cookie.
func (h *Handlers) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if _, ok := h.sessions.Get(cookie.Value); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}
