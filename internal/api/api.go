package api

import (
	"encoding/json"
	"log"
	"net/http"

	"taskhub/internal/notify"
	"taskhub/internal/store"
	"taskhub/internal/token"
)

// Server holds the handlers' collaborators. There is no ambient state; every
// handler reaches the graph through the store it was built with.
type Server struct {
	store  *store.Store
	tokens *token.Manager
	push   *notify.Push
}

func New(st *store.Store, tokens *token.Manager, push *notify.Push) *Server {
	return &Server{store: st, tokens: tokens, push: push}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Identity
	mux.HandleFunc("GET /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/users", s.handleRegister)
	mux.HandleFunc("GET /api/v1/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("GET /api/v1/users/{id}", s.requireAuth(s.handleGetUser))
	mux.HandleFunc("PUT /api/v1/users/{id}", s.requireAdmin(s.handlePromoteUser))
	mux.HandleFunc("DELETE /api/v1/users/{id}", s.requireAdmin(s.handleDeleteUser))

	// Projects
	mux.HandleFunc("GET /api/v1/projects", s.requireAuth(s.handleListProjects))
	mux.HandleFunc("GET /api/v1/projects/all", s.requireAdmin(s.handleListAllProjects))
	mux.HandleFunc("POST /api/v1/projects", s.requireAuth(s.handleCreateProject))
	mux.HandleFunc("GET /api/v1/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.HandleFunc("POST /api/v1/projects/{id}", s.requireAuth(s.handleUpdateProject))
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.requireAuth(s.handleDeleteProject))
	mux.HandleFunc("PUT /api/v1/projects/{id}/invite/{email}", s.requireAuth(s.handleCreateInvitation))

	// Tasks
	mux.HandleFunc("GET /api/v1/projects/{id}/tasks", s.requireAuth(s.handleListTasks))
	mux.HandleFunc("POST /api/v1/projects/{id}/tasks", s.requireAuth(s.handleCreateTask))
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.requireAuth(s.handleGetTask))
	mux.HandleFunc("POST /api/v1/tasks/{id}", s.requireAuth(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.requireAuth(s.handleDeleteTask))

	// Works
	mux.HandleFunc("GET /api/v1/tasks/{id}/works", s.requireAuth(s.handleListWorks))
	mux.HandleFunc("POST /api/v1/tasks/{id}/works", s.requireAuth(s.handleCreateWork))
	mux.HandleFunc("GET /api/v1/works/{id}", s.requireAuth(s.handleGetWork))
	mux.HandleFunc("POST /api/v1/works/{id}", s.requireAuth(s.handleUpdateWork))
	mux.HandleFunc("DELETE /api/v1/works/{id}", s.requireAuth(s.handleDeleteWork))

	// Invitations
	mux.HandleFunc("GET /api/v1/invitations", s.requireAuth(s.handleListInvitations))
	mux.HandleFunc("GET /api/v1/invitations/{id}", s.requireAuth(s.handleGetInvitation))
	mux.HandleFunc("DELETE /api/v1/invitations/{id}", s.requireAuth(s.handleCancelInvitation))
	mux.HandleFunc("PUT /api/v1/invitations/{id}/accept", s.requireAuth(s.handleAcceptInvitation))
	mux.HandleFunc("PUT /api/v1/invitations/{id}/decline", s.requireAuth(s.handleDeclineInvitation))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeFieldErrors(w http.ResponseWriter, msg string, errs fieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"message": msg, "errors": errs})
}

// writeMutationError handles a failed mutation on a row the guard already
// loaded. The row can vanish between the check and the statement when two
// requests race; the loser gets 404, not an internal error.
func writeMutationError(w http.ResponseWriter, op string, err error, notFoundMsg string) {
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	log.Printf("error %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON decodes the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
