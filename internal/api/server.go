package api

import (
	"encoding/json"
	"net/http"

	"github.com/rideon/rideon/internal/config"
	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/email"
	"github.com/rideon/rideon/internal/leaderboard"
	"github.com/rideon/rideon/internal/mileage"
	"github.com/rideon/rideon/internal/realtime"
	"github.com/rideon/rideon/internal/registration"
)

// Server is the main struct for the API. It holds all dependencies required
// by the HTTP handlers: the application configuration, the database service
// and the workflow components built on top of it. This dependency injection
// keeps the application modular and easier to test.
type Server struct {
	config *config.Config
	db     *database.Service
	broker *realtime.Broker
	email  *email.EmailService

	registrar   *registration.Orchestrator
	ingestor    *mileage.Ingestor
	leaderboard *leaderboard.Aggregator
}

// NewServer creates a new instance of the Server and wires the workflow
// components onto the shared database service.
func NewServer(cfg *config.Config, db *database.Service, broker *realtime.Broker, emailService *email.EmailService) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		broker:      broker,
		email:       emailService,
		registrar:   registration.NewOrchestrator(db),
		ingestor:    mileage.NewServiceIngestor(db),
		leaderboard: leaderboard.NewAggregator(db),
	}
}

// envelope is a custom map type used for creating structured JSON responses,
// e.g. `envelope{"user": userObject}`.
type envelope map[string]interface{}

// writeJSON is a helper method for sending JSON responses. It marshals the
// data, sets the 'Content-Type' header and writes the status code, keeping
// all JSON responses consistent.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}, headers ...http.Header) {
	// Pretty-printed output is helpful for debugging.
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// errorJSON is a helper method for sending standardized JSON error responses
// in the shape `{"error": "message"}`.
func (s *Server) errorJSON(w http.ResponseWriter, err error, status ...int) {
	statusCode := http.StatusInternalServerError
	if len(status) > 0 {
		statusCode = status[0]
	}

	errorResponse := envelope{"error": err.Error()}

	s.writeJSON(w, statusCode, errorResponse)
}
