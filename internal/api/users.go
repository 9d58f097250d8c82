package api

import (
	"database/sql"
	"errors"
	"net/http"
)

// handleGetMyProfile returns the authenticated rider's own profile, including
// the running mileage totals.
func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	profile, err := s.db.GetUserProfileByID(s.db.GetDB(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.errorJSON(w, errors.New("profile not found"), http.StatusNotFound)
			return
		}
		s.errorJSON(w, errors.New("could not load profile"), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"user": toProfileResponse(profile)})
}
