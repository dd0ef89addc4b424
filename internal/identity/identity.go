// Package identity assigns each browser a stable participant ID via a
// long-lived cookie. The ID is an opaque UUID, never a login: whoever holds
// the cookie is that participant. Clearing it is the only way to become
// someone else.
package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const participantContextKey contextKey = "participant"

// Manager issues and reads the identity cookie.
type Manager struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

func NewManager(cookieName string, maxAge time.Duration) *Manager {
	return &Manager{CookieName: cookieName, MaxAge: maxAge}
}

// FromContext returns the participant ID placed by Middleware, or "".
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(participantContextKey).(string); ok {
		return v
	}
	return ""
}

// Middleware ensures every request carries a participant ID: an existing
// valid cookie is kept, anything else gets a fresh UUID set on the response.
// The ID is available downstream via FromContext.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.fromRequest(r)
		if id == "" {
			id = uuid.NewString()
			m.setCookie(w, id)
		}
		ctx := context.WithValue(r.Context(), participantContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Reset discards the current identity and issues a fresh one, returning the
// new ID. Existing role claims in live games are untouched; the caller simply
// stops matching them.
func (m *Manager) Reset(w http.ResponseWriter) string {
	id := uuid.NewString()
	m.setCookie(w, id)
	return id
}

func (m *Manager) fromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(m.MaxAge),
		MaxAge:   int(m.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
