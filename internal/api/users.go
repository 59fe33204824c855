package api

import (
	"log"
	"net/http"

	"taskhub/internal/store"
)

// handleLogin verifies HTTP Basic credentials and returns a signed bearer
// token. The username is the account name, not the email.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	name, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="login required"`)
		writeError(w, http.StatusUnauthorized, "could not verify credentials")
		return
	}

	u, err := s.store.Authenticate(r.Context(), name, password)
	if err != nil {
		if err == store.ErrInvalidCredentials {
			w.Header().Set("WWW-Authenticate", `Basic realm="login required"`)
			writeError(w, http.StatusUnauthorized, "could not verify credentials")
			return
		}
		log.Printf("error authenticating %q: %v", name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	tok, err := s.tokens.Issue(u.UserID)
	if err != nil {
		log.Printf("error issuing token for %s: %v", u.UserID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

// handleRegister is the only unauthenticated mutation. The admin flag is
// never settable here.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "user not created", errs)
		return
	}

	u, err := s.store.CreateUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if err == store.ErrUserExists {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		log.Printf("error creating user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "new user created", "user": u})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("error listing users: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if users == nil {
		users = []store.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no user found")
			return
		}
		log.Printf("error getting user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	err := s.store.PromoteUser(r.Context(), r.PathValue("id"))
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no user found")
			return
		}
		log.Printf("error promoting user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user promoted"})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteUser(r.Context(), r.PathValue("id"))
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no user found")
			return
		}
		log.Printf("error deleting user: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
