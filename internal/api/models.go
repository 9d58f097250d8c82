package api

import (
	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/leaderboard"
)

// This file defines the Data Transfer Objects (DTOs) for the API. These
// structs control the exact shape of the JSON we send to clients, decoupling
// the API contract from the database models (which carry sql.Null* types and
// internal fields).

// profileResponse is the rider profile as clients see it.
type profileResponse struct {
	ID         string  `json:"id"`
	UserName   string  `json:"userName"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	TeamID     string  `json:"teamId,omitempty"`
	TeamName   string  `json:"teamName,omitempty"`
	TotalMiles float64 `json:"totalMiles"`
	TotalRides int64   `json:"totalRides"`
}

// toProfileResponse maps a database profile to its public DTO, flattening
// nullable team fields into plain strings.
func toProfileResponse(profile *database.UserProfile) profileResponse {
	resp := profileResponse{
		ID:         profile.ID,
		UserName:   profile.UserName,
		Email:      profile.Email,
		Role:       profile.Role,
		TotalMiles: profile.TotalMiles,
		TotalRides: profile.TotalRides,
	}
	if profile.TeamID.Valid {
		resp.TeamID = profile.TeamID.String
	}
	if profile.TeamName.Valid {
		resp.TeamName = profile.TeamName.String
	}
	return resp
}

// teamResponse is a team's public standing and roster summary.
type teamResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MemberCount int64   `json:"memberCount"`
	TotalMiles  float64 `json:"totalMiles"`
	TotalRides  int64   `json:"totalRides"`
	IsActive    bool    `json:"isActive"`
}

func toTeamResponse(team *database.Team) teamResponse {
	return teamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		MemberCount: team.MemberCount,
		TotalMiles:  team.TotalMiles,
		TotalRides:  team.TotalRides,
		IsActive:    team.IsActive,
	}
}

// mileLogResponse is one ride entry as returned to clients.
type mileLogResponse struct {
	ID       int64   `json:"id"`
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	TeamName string  `json:"teamName,omitempty"`
	Miles    float64 `json:"miles"`
	RideDate string  `json:"date"`
	Notes    string  `json:"notes,omitempty"`
}

func toMileLogResponse(entry *database.MileLog) mileLogResponse {
	resp := mileLogResponse{
		ID:       entry.ID,
		UserID:   entry.UserID,
		UserName: entry.UserName,
		Miles:    entry.Miles,
		RideDate: entry.RideDate,
		Notes:    entry.Notes,
	}
	if entry.TeamName.Valid {
		resp.TeamName = entry.TeamName.String
	}
	return resp
}

// teamStandingResponse decorates a leaderboard team entry with its medal.
type teamStandingResponse struct {
	Rank                  int     `json:"rank"`
	Medal                 string  `json:"medal,omitempty"`
	TeamID                string  `json:"teamId"`
	Name                  string  `json:"name"`
	MemberCount           int64   `json:"memberCount"`
	TotalMiles            float64 `json:"totalMiles"`
	TotalRides            int64   `json:"totalRides"`
	WeeklyMiles           float64 `json:"weeklyMiles"`
	AverageMilesPerMember float64 `json:"averageMilesPerMember"`
}

func toTeamStandingResponses(entries []*leaderboard.TeamEntry) []teamStandingResponse {
	resp := make([]teamStandingResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, teamStandingResponse{
			Rank:                  entry.Rank,
			Medal:                 leaderboard.MedalForRank(entry.Rank),
			TeamID:                entry.TeamID,
			Name:                  entry.Name,
			MemberCount:           entry.MemberCount,
			TotalMiles:            entry.TotalMiles,
			TotalRides:            entry.TotalRides,
			WeeklyMiles:           entry.WeeklyMiles,
			AverageMilesPerMember: entry.AverageMilesPerMember,
		})
	}
	return resp
}

// individualStandingResponse decorates a leaderboard rider entry with its medal.
type individualStandingResponse struct {
	Rank        int     `json:"rank"`
	Medal       string  `json:"medal,omitempty"`
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName"`
	TeamName    string  `json:"teamName,omitempty"`
	TotalMiles  float64 `json:"totalMiles"`
	TotalRides  int64   `json:"totalRides"`
	WeeklyMiles float64 `json:"weeklyMiles"`
}

func toIndividualStandingResponses(entries []*leaderboard.IndividualEntry) []individualStandingResponse {
	resp := make([]individualStandingResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, individualStandingResponse{
			Rank:        entry.Rank,
			Medal:       leaderboard.MedalForRank(entry.Rank),
			UserID:      entry.UserID,
			UserName:    entry.UserName,
			TeamName:    entry.TeamName,
			TotalMiles:  entry.TotalMiles,
			TotalRides:  entry.TotalRides,
			WeeklyMiles: entry.WeeklyMiles,
		})
	}
	return resp
}
