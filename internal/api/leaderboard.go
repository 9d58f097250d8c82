package api

import (
	"errors"
	"net/http"

	"github.com/rideon/rideon/internal/leaderboard"
)

// handleGetLeaderboard serves the public standings. Query parameters:
//
//	scope:  "teams" (default) or "individuals"
//	sortBy: "totalMiles" (default), "totalRides" or "weeklyMiles"
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = leaderboard.ScopeTeams
	}

	sortBy := r.URL.Query().Get("sortBy")
	if sortBy == "" {
		sortBy = leaderboard.SortTotalMiles
	}

	switch scope {
	case leaderboard.ScopeTeams:
		entries, err := s.leaderboard.Teams(sortBy)
		if err != nil {
			s.leaderboardError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, envelope{"scope": scope, "sortBy": sortBy, "standings": toTeamStandingResponses(entries)})
	case leaderboard.ScopeIndividuals:
		entries, err := s.leaderboard.Individuals(sortBy)
		if err != nil {
			s.leaderboardError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, envelope{"scope": scope, "sortBy": sortBy, "standings": toIndividualStandingResponses(entries)})
	default:
		s.errorJSON(w, errors.New("unknown scope: "+scope), http.StatusBadRequest)
	}
}

func (s *Server) leaderboardError(w http.ResponseWriter, err error) {
	if errors.Is(err, leaderboard.ErrUnknownSortKey) {
		s.errorJSON(w, err, http.StatusBadRequest)
		return
	}
	s.errorJSON(w, errors.New("could not load leaderboard"), http.StatusInternalServerError)
}
