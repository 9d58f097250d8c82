package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RegisterRoutes sets up all the API endpoints and middleware for the application.
func (s *Server) RegisterRoutes(r *chi.Mux) {
	// --- Global Middleware (Applied to ALL routes) ---
	r.Use(middleware.Logger)    // Logs incoming requests
	r.Use(middleware.Recoverer) // Recovers from panics and returns a 500 error

	// --- REST API Group with CORS ---
	// All routes defined within this group are prefixed with "/api/v1".
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			// In production, you would tighten this to your frontend's domain.
			AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", s.config.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300, // How long the browser can cache preflight results
		}))

		// Auth routes
		r.Post("/users/register", s.handleRegisterUser)
		r.Post("/users/login", s.handleLoginUser)
		r.Get("/auth/google/login", s.handleGoogleLogin)
		r.Get("/auth/google/callback", s.handleGoogleCallback)

		// Advisory pre-checks used by the registration form (on-blur).
		r.Get("/invitations/check", s.handleCheckInvitation)
		r.Get("/usernames/check", s.handleCheckUsername)

		// The leaderboard is public.
		r.Get("/leaderboard", s.handleGetLeaderboard)

		// --- Authenticated REST Routes ---
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Notification stream for teammate ride alerts.
			r.Get("/notifications/stream", s.handleSSE)

			// User Routes
			r.Get("/users/me", s.handleGetMyProfile)

			// Team Routes
			r.Get("/teams/{teamID}", s.handleGetTeamDetails)
			r.Get("/teams/{teamID}/members", s.handleGetTeamMembers)

			// Invitation management (admins and team admins only).
			r.Post("/invitations", s.handleCreateInvitation)

			// Mileage Routes
			r.Post("/miles", s.handleLogMiles)
			r.Post("/miles/gpx", s.handleLogMilesFromGpx)
			r.Get("/miles", s.handleGetMyMileLogs)
		})
	})
}
