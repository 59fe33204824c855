package api

import (
	"log"
	"net/http"

	"taskhub/internal/store"
)

// ownInvitation loads an invitation and checks the caller is the invitee.
// On failure it writes the response and returns nil.
func (s *Server) ownInvitation(w http.ResponseWriter, r *http.Request, invitationID string) *store.Invitation {
	inv, err := s.store.GetInvitation(r.Context(), invitationID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no invitation found")
			return nil
		}
		log.Printf("error getting invitation: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if inv.UserID != currentUser(r).UserID {
		writeError(w, http.StatusForbidden, "you don't have permission to access this invitation")
		return nil
	}
	return inv
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.store.ListInvitationsForUser(r.Context(), currentUser(r).UserID)
	if err != nil {
		log.Printf("error listing invitations: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if invitations == nil {
		invitations = []store.Invitation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invitations})
}

func (s *Server) handleGetInvitation(w http.ResponseWriter, r *http.Request) {
	inv := s.ownInvitation(w, r, r.PathValue("id"))
	if inv == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitation": inv})
}

// handleCreateInvitation invites a user by email into a project the caller
// belongs to. The push notification is fire-and-forget: its failure is
// logged and never surfaces to the caller.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	caller := currentUser(r)
	if caller.Email == email {
		writeError(w, http.StatusForbidden, "you can't invite yourself")
		return
	}

	p := s.memberProject(w, r, r.PathValue("id"))
	if p == nil {
		return
	}

	invitee, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no user found")
			return
		}
		log.Printf("error getting invitee: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	inv, err := s.store.CreateInvitation(r.Context(), invitee.UserID, p.ProjectID)
	if err != nil {
		switch err {
		case store.ErrAlreadyMember:
			writeError(w, http.StatusConflict, "user is already a member")
		case store.ErrInvitationExists:
			writeError(w, http.StatusConflict, "invitation already exists")
		default:
			log.Printf("error creating invitation: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	go func(email, project string) {
		if err := s.push.InvitationCreated(email, project); err != nil {
			log.Printf("error notifying %s: %v", email, err)
		}
	}(invitee.Email, p.Name)

	writeJSON(w, http.StatusCreated, map[string]any{"message": "invitation created", "invitation": inv})
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	inv := s.ownInvitation(w, r, r.PathValue("id"))
	if inv == nil {
		return
	}

	if err := s.store.AcceptInvitation(r.Context(), inv.InvitationID); err != nil {
		if err == store.ErrNotFound {
			writeError(w, http.StatusNotFound, "no invitation found")
			return
		}
		log.Printf("error accepting invitation: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "the invitation has been accepted"})
}

// removeInvitation backs both decline and cancel: the invitee discards a
// pending invitation, no membership changes. An invitation already gone is
// not an error here.
func (s *Server) removeInvitation(w http.ResponseWriter, r *http.Request, msg string) {
	inv := s.ownInvitation(w, r, r.PathValue("id"))
	if inv == nil {
		return
	}

	if err := s.store.DeleteInvitation(r.Context(), inv.InvitationID); err != nil && err != store.ErrNotFound {
		log.Printf("error removing invitation: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	s.removeInvitation(w, r, "the invitation has been declined")
}

func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	s.removeInvitation(w, r, "the invitation has been cancelled")
}
