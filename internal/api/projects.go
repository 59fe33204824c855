package api

import (
	"log"
	"net/http"

	"taskhub/internal/store"
)

// memberProject loads a project and checks the caller belongs to it. On
// failure it writes the response and returns nil.
func (s *Server) memberProject(w http.ResponseWriter, r *http.Request, projectID string) *store.Project {
	p, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no project found")
			return nil
		}
		log.Printf("error getting project: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}

	member, err := s.store.IsMember(r.Context(), p.ProjectID, currentUser(r).UserID)
	if err != nil {
		log.Printf("error checking membership: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if !member {
		writeError(w, http.StatusForbidden, "you don't have permission to access that project")
		return nil
	}
	return p
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjectsForUser(r.Context(), currentUser(r).UserID)
	if err != nil {
		log.Printf("error listing projects: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleListAllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListAllProjects(r.Context())
	if err != nil {
		log.Printf("error listing projects: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "project not created", errs)
		return
	}

	desc := ""
	if req.Desc != nil {
		desc = *req.Desc
	}
	p, err := s.store.CreateProject(r.Context(), req.Name, desc, currentUser(r).UserID)
	if err != nil {
		log.Printf("error creating project: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "new project created", "project": p})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}

	var req projectUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "project not updated", errs)
		return
	}

	updated, err := s.store.UpdateProject(r.Context(), p.ProjectID, req.patch())
	if err != nil {
		log.Printf("error updating project: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "project updated", "project": updated})
}

// handleDeleteProject removes the caller from the member set; the project is
// deleted outright only when no members remain.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}

	deleted, err := s.store.LeaveProject(r.Context(), p.ProjectID, currentUser(r).UserID)
	if err != nil {
		writeMutationError(w, "deleting project", err, "no project found")
		return
	}

	msg := "you left the project"
	if deleted {
		msg = "the project has been deleted"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
