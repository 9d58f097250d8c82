package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetTeamDetails returns a single team's denormalized standing.
func (s *Server) handleGetTeamDetails(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	team, err := s.db.GetTeamByID(s.db.GetDB(), teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.errorJSON(w, errors.New("team not found"), http.StatusNotFound)
			return
		}
		s.errorJSON(w, errors.New("could not load team"), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"team": toTeamResponse(team)})
}

// handleGetTeamMembers returns the roster of a team, sorted by username.
func (s *Server) handleGetTeamMembers(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	// A missing team is a 404 rather than an empty roster.
	if _, err := s.db.GetTeamByID(s.db.GetDB(), teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.errorJSON(w, errors.New("team not found"), http.StatusNotFound)
			return
		}
		s.errorJSON(w, errors.New("could not load team"), http.StatusInternalServerError)
		return
	}

	members, err := s.db.GetTeamMembers(s.db.GetDB(), teamID)
	if err != nil {
		s.errorJSON(w, errors.New("could not load team members"), http.StatusInternalServerError)
		return
	}

	resp := make([]profileResponse, 0, len(members))
	for _, member := range members {
		resp = append(resp, toProfileResponse(member))
	}

	s.writeJSON(w, http.StatusOK, envelope{"members": resp})
}
