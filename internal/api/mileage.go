package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/gpx"
	"github.com/rideon/rideon/internal/mileage"
	"github.com/rideon/rideon/internal/realtime"
)

// Cap uploaded GPX files at 10MB; a day-long ride track is well under that.
const maxGpxUploadBytes = 10 << 20

// logMilesPayload defines the JSON body for manually logging a ride.
type logMilesPayload struct {
	Miles    float64 `json:"miles"`
	RideDate string  `json:"date"` // optional YYYY-MM-DD, defaults to today
	Notes    string  `json:"notes"`
}

// handleLogMiles records a ride for the authenticated rider and updates the
// denormalized totals and weekly stats.
func (s *Server) handleLogMiles(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	var payload logMilesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	entry, err := s.ingestor.LogMiles(userID, payload.Miles, payload.RideDate, payload.Notes)
	if err != nil {
		s.mileageError(w, err)
		return
	}

	s.notifyTeammates(userID, entry)

	s.writeJSON(w, http.StatusCreated, envelope{"mileLog": toMileLogResponse(entry)})
}

// handleLogMilesFromGpx accepts a GPX file upload (multipart field "gpxfile"),
// computes the ride distance from the track, and logs it like a manual entry.
func (s *Server) handleLogMilesFromGpx(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxGpxUploadBytes); err != nil {
		s.errorJSON(w, errors.New("could not parse upload; is it larger than 10MB?"), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("gpxfile")
	if err != nil {
		s.errorJSON(w, errors.New("a 'gpxfile' upload is required"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.errorJSON(w, errors.New("could not read uploaded file"), http.StatusInternalServerError)
		return
	}

	summary, err := gpx.SummarizeRide(content)
	if err != nil {
		if errors.Is(err, gpx.ErrEmptyTrack) {
			s.errorJSON(w, err, http.StatusUnprocessableEntity)
			return
		}
		s.errorJSON(w, errors.New("could not parse GPX file"), http.StatusBadRequest)
		return
	}

	notes := r.FormValue("notes")
	entry, err := s.ingestor.LogMiles(userID, summary.Miles, summary.RideDate, notes)
	if err != nil {
		s.mileageError(w, err)
		return
	}

	s.notifyTeammates(userID, entry)

	s.writeJSON(w, http.StatusCreated, envelope{"mileLog": toMileLogResponse(entry)})
}

// handleGetMyMileLogs returns the authenticated rider's recent ride history.
func (s *Server) handleGetMyMileLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := s.getUserIDFromContext(r)
	if err != nil {
		s.errorJSON(w, err, http.StatusUnauthorized)
		return
	}

	logs, err := s.db.GetMileLogsByUserID(s.db.GetDB(), userID, 100)
	if err != nil {
		s.errorJSON(w, errors.New("could not load ride history"), http.StatusInternalServerError)
		return
	}

	resp := make([]mileLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp = append(resp, toMileLogResponse(entry))
	}

	s.writeJSON(w, http.StatusOK, envelope{"mileLogs": resp})
}

func (s *Server) mileageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mileage.ErrInvalidMiles):
		s.errorJSON(w, err, http.StatusBadRequest)
	case errors.Is(err, mileage.ErrProfileNotLoaded):
		s.errorJSON(w, err, http.StatusNotFound)
	default:
		s.errorJSON(w, errors.New("could not log miles"), http.StatusInternalServerError)
	}
}

// notifyTeammates pushes an SSE event to the rider's teammates so their
// dashboards can show the new ride without polling. Purely best-effort.
func (s *Server) notifyTeammates(riderID string, entry *database.MileLog) {
	if !entry.TeamID.Valid {
		return
	}

	members, err := s.db.GetTeamMembers(s.db.GetDB(), entry.TeamID.String)
	if err != nil {
		return
	}

	var teammateIDs []string
	for _, member := range members {
		if member.ID != riderID {
			teammateIDs = append(teammateIDs, member.ID)
		}
	}

	s.broker.NotifyUsers(teammateIDs, realtime.Message{
		Type: "RIDE_LOGGED",
		Payload: envelope{
			"userName": entry.UserName,
			"miles":    entry.Miles,
			"message":  fmt.Sprintf("%s just logged %.1f miles!", entry.UserName, entry.Miles),
		},
	})
}
