package api

import (
	"log"
	"net/http"

	"taskhub/internal/store"
)

// memberTask loads a task and checks the caller belongs to its owning
// project. On failure it writes the response and returns nil.
func (s *Server) memberTask(w http.ResponseWriter, r *http.Request, taskID string) *store.Task {
	t, err := s.store.GetTask(r.Context(), taskID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no task found")
			return nil
		}
		log.Printf("error getting task: %v", err)
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
		writeError(w, http.StatusForbidden, "you don't have permission to access that task")
		return nil
	}
	return t
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), p.ProjectID)
	if err != nil {
		log.Printf("error listing tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}

	var req taskCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "task not created", errs)
		return
	}

	t, err := s.store.CreateTask(r.Context(), p.ProjectID, req.input())
	if err != nil {
		log.Printf("error creating task: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "new task created", "task": t})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t := s.memberTask(w, r, r.PathValue("id"))
	if t == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	t := s.memberTask(w, r, r.PathValue("id"))
	if t == nil {
		return
	}

	var req taskUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if errs := req.validate(); !errs.ok() {
		writeFieldErrors(w, "task not updated", errs)
		return
	}

	updated, err := s.store.UpdateTask(r.Context(), t.TaskID, req.patch())
	if err != nil {
		log.Printf("error updating task: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "task updated", "task": updated})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t := s.memberTask(w, r, r.PathValue("id"))
	if t == nil {
		return
	}

	if err := s.store.DeleteTask(r.Context(), t.TaskID); err != nil {
		writeMutationError(w, "deleting task", err, "no task found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "the task has been deleted"})
}
