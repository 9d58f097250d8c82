package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/rideon/rideon/internal/config"
	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *database.Service) {
	t.Helper()

	db, err := database.NewService(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitDB())
	t.Cleanup(db.Close)

	frontend, _ := url.Parse("http://localhost:5173")
	cfg := &config.Config{
		JwtSecret:         "test-secret",
		FrontendURL:       "http://localhost:5173",
		ParsedFrontendURL: frontend,
		InvitationTTLDays: 7,
	}

	// No email service in tests: invitation emails are best-effort anyway.
	server := NewServer(cfg, db, realtime.NewBroker(), nil)

	router := chi.NewRouter()
	server.RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts, db
}

func seedInvitation(t *testing.T, db *database.Service, email, role string, teamID, teamName sql.NullString) {
	t.Helper()

	err := db.WriteToDB(func(tx *sql.Tx) error {
		expiresAt := time.Now().AddDate(0, 0, 7)
		if _, err := db.CreateInvitation(tx, email, role, teamID, "inviter-1", expiresAt); err != nil {
			return err
		}
		return db.CreatePublicInvitation(tx, email, role, teamName, expiresAt)
	})
	require.NoError(t, err)
}

func postJSON(t *testing.T, url, token string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRegisterLoginAndLogMiles(t *testing.T) {
	ts, db := newTestServer(t)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin, sql.NullString{}, sql.NullString{})

	// Register through the HTTP surface.
	resp := postJSON(t, ts.URL+"/api/v1/users/register", "", map[string]string{
		"email":           "lead@example.com",
		"password":        "pedal-power",
		"confirmPassword": "pedal-power",
		"username":        "team-lead",
		"teamName":        "Chain Gang",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decodeBody(t, resp)
	assert.NotEmpty(t, registered["token"])

	// Log in with the same credentials.
	resp = postJSON(t, ts.URL+"/api/v1/users/login", "", map[string]string{
		"email":    "lead@example.com",
		"password": "pedal-power",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeBody(t, resp)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	// Log a ride and read the profile back.
	resp = postJSON(t, ts.URL+"/api/v1/miles", token, map[string]interface{}{
		"miles": 12.5,
		"notes": "evening ride",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	logged := decodeBody(t, resp)
	entry, _ := logged["mileLog"].(map[string]interface{})
	require.NotNil(t, entry)
	assert.Equal(t, 12.5, entry["miles"])

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/users/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	me := decodeBody(t, meResp)
	user, _ := me["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, 12.5, user["totalMiles"])
	assert.Equal(t, float64(1), user["totalRides"])
}

func TestLoginAcceptsMixedCaseEmail(t *testing.T) {
	ts, db := newTestServer(t)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin, sql.NullString{}, sql.NullString{})

	// The account is stored under the lower-cased email regardless of how the
	// form submitted it.
	resp := postJSON(t, ts.URL+"/api/v1/users/register", "", map[string]string{
		"email":           "Lead@Example.com",
		"password":        "pedal-power",
		"confirmPassword": "pedal-power",
		"username":        "team-lead",
		"teamName":        "Chain Gang",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Logging in with the same mixed-case string must still find the account.
	resp = postJSON(t, ts.URL+"/api/v1/users/login", "", map[string]string{
		"email":    "Lead@Example.com",
		"password": "pedal-power",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeBody(t, resp)
	assert.NotEmpty(t, login["token"])

	// Other case variants and stray whitespace work too.
	resp = postJSON(t, ts.URL+"/api/v1/users/login", "", map[string]string{
		"email":    "  LEAD@EXAMPLE.COM ",
		"password": "pedal-power",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateInvitationRejectsDuplicateEmail(t *testing.T) {
	ts, db := newTestServer(t)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin, sql.NullString{}, sql.NullString{})
	resp := postJSON(t, ts.URL+"/api/v1/users/register", "", map[string]string{
		"email":           "lead@example.com",
		"password":        "pedal-power",
		"confirmPassword": "pedal-power",
		"username":        "team-lead",
		"teamName":        "Chain Gang",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decodeBody(t, resp)
	token, _ := registered["token"].(string)
	require.NotEmpty(t, token)

	resp = postJSON(t, ts.URL+"/api/v1/invitations", token, map[string]string{
		"email": "rider@example.com",
		"role":  database.RoleUser,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// A second invitation for the same email is refused as a conflict.
	resp = postJSON(t, ts.URL+"/api/v1/invitations", token, map[string]string{
		"email": "rider@example.com",
		"role":  database.RoleUser,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterWithoutInvitationIsForbidden(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/users/register", "", map[string]string{
		"email":           "stranger@example.com",
		"password":        "pedal-power",
		"confirmPassword": "pedal-power",
		"username":        "stranger",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckEndpoints(t *testing.T) {
	ts, db := newTestServer(t)

	seedInvitation(t, db, "rider@example.com", database.RoleUser,
		sql.NullString{String: "team-1", Valid: true},
		sql.NullString{String: "Chain Gang", Valid: true})

	resp, err := http.Get(ts.URL + "/api/v1/invitations/check?email=rider@example.com")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Chain Gang", body["teamName"])

	resp, err = http.Get(ts.URL + "/api/v1/invitations/check?email=unknown@example.com")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["valid"])

	resp, err = http.Get(ts.URL + "/api/v1/usernames/check?username=brand-new")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["available"])

	resp, err = http.Get(ts.URL + "/api/v1/usernames/check?username=_bad_")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["available"])
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts, db := newTestServer(t)

	err := db.WriteToDB(func(tx *sql.Tx) error {
		if _, txErr := db.CreateTeam(tx, "team-1", "Chain Gang", "", "seed"); txErr != nil {
			return txErr
		}
		_, txErr := tx.Exec(`UPDATE teams SET member_count = 2, total_miles = 80 WHERE id = 'team-1';`)
		return txErr
	})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/v1/leaderboard?scope=teams&sortBy=totalMiles")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	standings, _ := body["standings"].([]interface{})
	require.Len(t, standings, 1)
	top, _ := standings[0].(map[string]interface{})
	assert.Equal(t, "Chain Gang", top["name"])
	assert.Equal(t, "gold", top["medal"])
	assert.Equal(t, float64(1), top["rank"])

	resp, err = http.Get(ts.URL + "/api/v1/leaderboard?sortBy=shoeSize")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/leaderboard?scope=planets")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/users/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/users/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
