package api

import (
	"log"
	"net/http"

	"taskhub/internal/store"
)

// memberWork loads a work entry and checks the caller belongs to the project
// that transitively owns it. On failure it writes the response and returns nil.
func (s *Server) memberWork(w http.ResponseWriter, r *http.Request, workID string) *store.Work {
	wk, err := s.store.GetWork(r.Context(), workID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no work found")
			return nil
		}
		log.Printf("error getting work: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}

	t, err := s.store.GetTask(r.Context(), wk.TaskID)
	if err != nil {
		log.Printf("error getting work's task: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}

	member, err := s.store.IsMember(r.Context(), t.ProjectID, currentUser(r).UserID)
	if err != nil {
		log.Printf("error checking membership: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if !member {
		writeError(w, http.StatusForbidden, "you don't have permission to access this work")
		return nil
	}
	return wk
}

func (s *Server) handleListWorks(w http.ResponseWriter, r *http.Request) {
	t := s.memberTask(w, r, r.PathValue("id"))
	if t == nil {
		return
	}

	works, err := s.store.ListWorks(r.Context(), t.TaskID)
	if err != nil {
		log.Printf("error listing works: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if works == nil {
		works = []store.Work{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"works": works})
}

func (s *Server) handleCreateWork(w http.ResponseWriter, r *http.Request) {
	t := s.memberTask(w, r, r.PathValue("id"))
	if t == nil {
		return
	}

	var req workCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "work not created", errs)
		return
	}

	wk, err := s.store.CreateWork(r.Context(), t.TaskID, currentUser(r).UserID, req.Date, *req.Time)
	if err != nil {
		if err == store.ErrDuplicateWork {
			errs := fieldErrors{}
			errs.add("date", "work already logged for that date")
			writeFieldErrors(w, "work not created", errs)
			return
		}
		log.Printf("error creating work: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "new work created", "work": wk})
}

func (s *Server) handleGetWork(w http.ResponseWriter, r *http.Request) {
	wk := s.memberWork(w, r, r.PathValue("id"))
	if wk == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work": wk})
}

// handleUpdateWork is stricter than the other mutations: only the user who
// logged the work may change it, membership alone is not enough.
func (s *Server) handleUpdateWork(w http.ResponseWriter, r *http.Request) {
	wk := s.memberWork(w, r, r.PathValue("id"))
	if wk == nil {
		return
	}
	if wk.UserID != currentUser(r).UserID {
		writeError(w, http.StatusForbidden, "only the author can update this work")
		return
	}

	var req workUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "work not updated", errs)
		return
	}

	updated, err := s.store.UpdateWork(r.Context(), wk.WorkID, *req.Time)
	if err != nil {
		writeMutationError(w, "updating work", err, "no work found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "work updated", "work": updated})
}

func (s *Server) handleDeleteWork(w http.ResponseWriter, r *http.Request) {
	wk := s.memberWork(w, r, r.PathValue("id"))
	if wk == nil {
		return
	}

	if err := s.store.DeleteWork(r.Context(), wk.WorkID); err != nil {
		writeMutationError(w, "deleting work", err, "no work found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "the work has been deleted"})
}
