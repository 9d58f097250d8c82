package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/registration"
)

// errInvitationExists signals that the target email already holds an
// invitation; detected inside the creation transaction.
var errInvitationExists = errors.New("an invitation for this email already exists")

// createInvitationPayload defines the JSON body for inviting a new rider.
type createInvitationPayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// handleCreateInvitation lets an admin or team admin invite someone by email.
// Admins may mint any role; team admins may only invite regular riders onto
// their own team. The authoritative invitation and its public mirror are
// written in one transaction, then the invitation email goes out best-effort.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	inviterID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	inviter, err := s.db.GetUserProfileByID(s.db.GetDB(), inviterID)
	if err != nil {
		s.errorJSON(w, errors.New("could not load your profile"), http.StatusInternalServerError)
		return
	}

	var payload createInvitationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		s.errorJSON(w, errors.New("email is required"), http.StatusBadRequest)
		return
	}

	role := payload.Role
	if role == "" {
		role = database.RoleUser
	}
	if role != database.RoleUser && role != database.RoleTeamAdmin && role != database.RoleAdmin {
		s.errorJSON(w, errors.New("invalid role"), http.StatusBadRequest)
		return
	}

	// Permission matrix: admins invite anyone, team admins invite regular
	// riders onto their own team, everyone else is refused.
	var teamID, teamName sql.NullString
	switch inviter.Role {
	case database.RoleAdmin:
		if role == database.RoleUser {
			// An admin inviting a regular rider places them on a team; the
			// admin's own team is the default target.
			teamID = inviter.TeamID
			teamName = inviter.TeamName
		}
	case database.RoleTeamAdmin:
		if role != database.RoleUser {
			s.errorJSON(w, errors.New("team admins can only invite regular riders"), http.StatusForbidden)
			return
		}
		if !inviter.TeamID.Valid {
			s.errorJSON(w, errors.New("you have no team to invite riders to"), http.StatusConflict)
			return
		}
		teamID = inviter.TeamID
		teamName = inviter.TeamName
	default:
		s.errorJSON(w, errors.New("you are not allowed to send invitations"), http.StatusForbidden)
		return
	}

	if role == database.RoleUser && !teamID.Valid {
		s.errorJSON(w, errors.New("a rider invitation needs a target team"), http.StatusConflict)
		return
	}

	expiresAt := time.Now().AddDate(0, 0, s.config.InvitationTTLDays)

	var created *database.Invitation
	err = s.db.WriteToDB(func(tx *sql.Tx) error {
		// At most one invitation per email, so probe before inserting. The
		// probe runs inside the same transaction as the insert.
		if _, txErr := s.db.GetInvitationByEmail(tx, email); txErr == nil {
			return errInvitationExists
		} else if !errors.Is(txErr, sql.ErrNoRows) {
			return txErr
		}

		var txErr error
		created, txErr = s.db.CreateInvitation(tx, email, role, teamID, inviterID, expiresAt)
		if txErr != nil {
			return txErr
		}
		return s.db.CreatePublicInvitation(tx, email, role, teamName, expiresAt)
	})
	if err != nil {
		if errors.Is(err, errInvitationExists) {
			s.errorJSON(w, err, http.StatusConflict)
			return
		}
		s.errorJSON(w, errors.New("could not create invitation"), http.StatusInternalServerError)
		return
	}

	// Best-effort: a failed email never rolls back the invitation. The invitee
	// can still register directly once told out-of-band.
	if s.email != nil {
		go func() {
			if err := s.email.SendInvitationEmail(email, inviter.UserName, teamName.String, role, s.config.FrontendURL); err != nil {
				log.Printf("WARN: could not send invitation email to %s: %v", email, err)
			}
		}()
	}

	s.writeJSON(w, http.StatusCreated, envelope{"invitation": created})
}

// handleCheckInvitation is the advisory pre-check used by the registration
// form. It reports whether the given email currently holds a redeemable
// invitation, without consuming anything.
func (s *Server) handleCheckInvitation(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		s.errorJSON(w, errors.New("email query parameter is required"), http.StatusBadRequest)
		return
	}

	inv, err := s.registrar.Invitations().Validate(email)
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrNotInvited),
			errors.Is(err, registration.ErrInvitationExpired),
			errors.Is(err, registration.ErrInvitationAlreadyUsed):
			s.writeJSON(w, http.StatusOK, envelope{"valid": false, "reason": err.Error()})
		default:
			s.errorJSON(w, errors.New("could not check invitation"), http.StatusInternalServerError)
		}
		return
	}

	resp := envelope{"valid": true, "role": inv.Role}
	if inv.TeamName.Valid {
		resp["teamName"] = inv.TeamName.String
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCheckUsername is the advisory availability check the registration form
// calls on blur. A "true" here is not a reservation; the name is only claimed
// inside the registration transaction.
func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		s.errorJSON(w, errors.New("username query parameter is required"), http.StatusBadRequest)
		return
	}

	if err := registration.ValidateUsernameFormat(username); err != nil {
		s.writeJSON(w, http.StatusOK, envelope{"available": false, "reason": err.Error()})
		return
	}

	available, err := s.registrar.Usernames().IsAvailable(username)
	if err != nil {
		s.errorJSON(w, errors.New("could not check username"), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"available": available})
}
