package api

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rideon/rideon/internal/auth"
	"github.com/rideon/rideon/internal/registration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleOauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// --- Structs for JSON Payloads ---

// registerUserPayload defines the JSON body expected for rider registration.
type registerUserPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Username        string `json:"username"`
	TeamName        string `json:"teamName"`
}

// loginUserPayload defines the JSON body expected for rider login.
type loginUserPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- REGISTRATION & LOGIN ---

// handleRegisterUser handles creation of a new rider account. Registration is
// invitation-gated: the orchestrator validates the invitation and username
// before any account is created.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var payload registerUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	if payload.Email == "" || payload.Password == "" || payload.Username == "" {
		s.errorJSON(w, errors.New("username, email, and password are required"), http.StatusBadRequest)
		return
	}

	result, err := s.registrar.Register(registration.Input{
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		Username:        payload.Username,
		TeamName:        payload.TeamName,
	})
	if err != nil {
		s.registrationError(w, err)
		return
	}

	// Issue a session token right away so the frontend can land on the
	// dashboard without a second login round-trip.
	tokenString, err := auth.GenerateJWT(result.UserID, s.config.JwtSecret)
	if err != nil {
		s.errorJSON(w, errors.New("could not generate token"), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, envelope{
		"token": tokenString,
		"user": envelope{
			"id":       result.UserID,
			"role":     result.Role,
			"teamId":   result.TeamID,
			"teamName": result.TeamName,
		},
	})
}

// registrationError maps the orchestrator's categorized failures onto HTTP
// statuses. Uncategorized failures become a generic 500 so internal detail
// never reaches the client.
func (s *Server) registrationError(w http.ResponseWriter, err error) {
	var formatErr *registration.FormatError
	switch {
	case errors.Is(err, registration.ErrNotInvited),
		errors.Is(err, registration.ErrInvitationExpired),
		errors.Is(err, registration.ErrInvitationAlreadyUsed):
		s.errorJSON(w, err, http.StatusForbidden)
	case errors.Is(err, registration.ErrUsernameTaken),
		errors.Is(err, registration.ErrEmailInUse):
		s.errorJSON(w, err, http.StatusConflict)
	case errors.As(err, &formatErr),
		errors.Is(err, registration.ErrPasswordTooWeak),
		errors.Is(err, registration.ErrPasswordMismatch),
		errors.Is(err, registration.ErrTeamNameRequired):
		s.errorJSON(w, err, http.StatusBadRequest)
	case errors.Is(err, registration.ErrTeamNotFound):
		s.errorJSON(w, err, http.StatusNotFound)
	default:
		s.errorJSON(w, errors.New("failed to create account"), http.StatusInternalServerError)
	}
}

// handleLoginUser handles authentication for an existing rider via email/password.
func (s *Server) handleLoginUser(w http.ResponseWriter, r *http.Request) {
	var payload loginUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorJSON(w, errors.New("bad request: could not decode JSON"), http.StatusBadRequest)
		return
	}

	if payload.Email == "" || payload.Password == "" {
		s.errorJSON(w, errors.New("email and password are required"), http.StatusBadRequest)
		return
	}

	// Accounts are stored under the lower-cased email, so the lookup has to
	// normalize the same way registration does.
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	account, err := s.db.GetAccountByEmail(s.db.GetDB(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.errorJSON(w, errors.New("invalid email or password"), http.StatusUnauthorized)
			return
		}
		s.errorJSON(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}

	// Google-only accounts have no password set.
	if !account.PasswordHash.Valid || account.PasswordHash.String == "" {
		s.errorJSON(w, errors.New("please log in using the method you signed up with"), http.StatusUnauthorized)
		return
	}

	if !auth.CheckPasswordHash(payload.Password, account.PasswordHash.String) {
		s.errorJSON(w, errors.New("invalid email or password"), http.StatusUnauthorized)
		return
	}

	tokenString, err := auth.GenerateJWT(account.ID, s.config.JwtSecret)
	if err != nil {
		s.errorJSON(w, errors.New("could not generate token"), http.StatusInternalServerError)
		return
	}

	// Return the token AND the rider profile DTO to the frontend.
	profile, err := s.db.GetUserProfileByID(s.db.GetDB(), account.ID)
	if err != nil {
		// An account without a profile is the known orphan case; the rider
		// can still hold a token but has nothing to ride for yet.
		s.writeJSON(w, http.StatusOK, envelope{"token": tokenString})
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"token": tokenString,
		"user":  toProfileResponse(profile),
	})
}

// --- GOOGLE OAUTH LOGIN ---

// googleOAuthConfig holds the configuration for our Google OAuth2 client.
// It's a global variable within this package, initialized once.
var googleOAuthConfig *oauth2.Config

// initOAuthConfig initializes the global googleOAuthConfig variable.
func (s *Server) initOAuthConfig() {
	googleOAuthConfig = &oauth2.Config{
		ClientID:     s.config.GoogleOauthClientID,
		ClientSecret: s.config.GoogleOauthClientSecret,
		RedirectURL:  s.config.GoogleOauthRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

// generateStateOauthCookie creates a random state string and sets it as an HttpOnly cookie
// to prevent Cross-Site Request Forgery (CSRF) attacks during the OAuth flow.
func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := hex.EncodeToString(b)
	cookie := &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true, // Prevents client-side script access
	}
	http.SetCookie(w, cookie)
	return state
}

// handleGoogleLogin is the entry point for the OAuth flow. It redirects the
// rider to Google's consent page. Google sign-in is login-only: registration
// stays invitation-gated, so an unknown Google account is turned away.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.config.GoogleOauthClientID == "" || s.config.GoogleOauthClientSecret == "" {
		s.errorJSON(w, errors.New("google sign-in is not configured"), http.StatusNotImplemented)
		return
	}
	if googleOAuthConfig == nil {
		s.initOAuthConfig()
	}
	state := generateStateOauthCookie(w)
	url := googleOAuthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleGoogleCallback is where Google redirects the rider back after consent.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. Validate the state cookie to ensure the request is legitimate.
	oauthState, err := r.Cookie("oauthstate")
	if err != nil || r.FormValue("state") != oauthState.Value {
		s.errorJSON(w, errors.New("invalid oauth state"), http.StatusUnauthorized)
		return
	}

	// 2. Exchange the authorization code from Google for an access token.
	code := r.FormValue("code")
	token, err := googleOAuthConfig.Exchange(context.Background(), code)
	if err != nil {
		s.errorJSON(w, fmt.Errorf("failed to exchange code for token: %w", err), http.StatusInternalServerError)
		return
	}

	// 3. Use the access token to get the rider's profile info from Google's API.
	oauth2Service, err := googleOauth2.NewService(context.Background(), option.WithTokenSource(googleOAuthConfig.TokenSource(context.Background(), token)))
	if err != nil {
		s.errorJSON(w, fmt.Errorf("failed to create oauth service: %w", err), http.StatusInternalServerError)
		return
	}
	userInfo, err := oauth2Service.Userinfo.Get().Do()
	if err != nil {
		s.errorJSON(w, fmt.Errorf("failed to get user info: %w", err), http.StatusInternalServerError)
		return
	}

	// 4. Match an existing account by email. Unlike a classic OAuth upsert,
	// unknown emails are NOT created here: they must register with their
	// invitation first. Accounts are keyed by lower-cased email.
	email := strings.ToLower(strings.TrimSpace(userInfo.Email))
	account, err := s.db.GetAccountByEmail(s.db.GetDB(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			redirectURL := fmt.Sprintf("%s/register?email=%s", s.config.FrontendURL, email)
			http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
			return
		}
		s.errorJSON(w, err, http.StatusInternalServerError)
		return
	}

	// 5. Generate our application's own JWT for session management.
	appToken, err := auth.GenerateJWT(account.ID, s.config.JwtSecret)
	if err != nil {
		s.errorJSON(w, errors.New("could not generate token"), http.StatusInternalServerError)
		return
	}

	// 6. Redirect back to the frontend's callback page with the token.
	redirectURL := fmt.Sprintf("%s/auth/callback?token=%s", s.config.FrontendURL, appToken)
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}
