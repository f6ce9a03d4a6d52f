package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/tutor/internal/session"
)

const (
	studentCookieName  = "tutor_session"
	sessionTokenHeader = "X-Session-Token"
)

type sessionCtxKey struct{}

// sessionFrom returns the session attached by sessionMiddleware.
func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionCtxKey{}).(*session.Session)
	return s
}

// sessionToken reads the signed session token from the Authorization
// header or, failing that, the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(studentCookieName); err == nil {
		return c.Value
	}
	return ""
}

// sessionMiddleware resolves the caller's session, creating one when the
// token is missing, invalid or names an expired session. The token is
// reissued when it is new or past half its lifetime.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			id        string
			expiresAt time.Time
		)
		if tok := sessionToken(r); tok != "" {
			claims, err := h.signer.Parse(tok, session.RoleStudent)
			if err != nil {
				slog.Debug("rejected session token", "error", err)
			} else {
				id = claims.Subject
				if claims.ExpiresAt != nil {
					expiresAt = claims.ExpiresAt.Time
				}
			}
		}

		s, created := h.sessions.GetOrCreate(id)
		ttl := h.sessions.TTL()
		if created || time.Until(expiresAt) < ttl/2 {
			tok, err := h.signer.Issue(s.ID, session.RoleStudent, ttl)
			if err != nil {
				slog.Error("failed to issue session token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     studentCookieName,
				Value:    tok,
				Path:     h.cookiePath(),
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(sessionTokenHeader, tok)
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
