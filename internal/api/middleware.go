package api

import (
	"context"
	"net/http"

	"taskhub/internal/store"
)

// The bearer token travels in this header on every authenticated call.
const tokenHeader = "x-access-token"

type contextKey string

const userKey contextKey = "user"

func currentUser(r *http.Request) *store.User {
	if u, ok := r.Context().Value(userKey).(*store.User); ok {
		return u
	}
	return nil
}

// requireAuth resolves the bearer token to a user before the handler runs.
// Missing, invalid or expired tokens short-circuit with 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get(tokenHeader)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "token is missing")
			return
		}
		userID, err := s.tokens.Verify(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "token is invalid")
			return
		}
		u, err := s.store.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "token is invalid")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin composes over requireAuth; non-admin callers get 403.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r); u == nil || !u.Admin {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next(w, r)
	})
}
