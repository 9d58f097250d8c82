package registration

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rideon/rideon/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *database.Service {
	t.Helper()

	db, err := database.NewService(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitDB())
	t.Cleanup(db.Close)

	return db
}

// seedInvitation creates both the authoritative invitation and its public
// mirror, the way handleCreateInvitation does.
func seedInvitation(t *testing.T, db *database.Service, email, role string, teamID, teamName sql.NullString, expiresAt time.Time) {
	t.Helper()

	err := db.WriteToDB(func(tx *sql.Tx) error {
		if _, err := db.CreateInvitation(tx, email, role, teamID, "inviter-1", expiresAt); err != nil {
			return err
		}
		return db.CreatePublicInvitation(tx, email, role, teamName, expiresAt)
	})
	require.NoError(t, err)
}

func validInput(email, username string) Input {
	return Input{
		Email:           email,
		Password:        "pedal-power",
		ConfirmPassword: "pedal-power",
		Username:        username,
	}
}

func TestRegisterTeamAdminCreatesTeam(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))

	input := validInput("lead@example.com", "team-lead")
	input.TeamName = "Chain Gang"

	result, err := orch.Register(input)
	require.NoError(t, err)
	assert.Equal(t, database.RoleTeamAdmin, result.Role)
	assert.Equal(t, "Chain Gang", result.TeamName)
	require.NotEmpty(t, result.TeamID)

	// The new rider is the team's only member and the count reflects that.
	team, err := db.GetTeamByID(db.GetDB(), result.TeamID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), team.MemberCount)

	members, err := db.GetTeamMembers(db.GetDB(), result.TeamID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, result.UserID, members[0].ID)

	// The username is claimed and the invitation consumed.
	exists, err := db.UsernameExists(db.GetDB(), "team-lead")
	require.NoError(t, err)
	assert.True(t, exists)

	inv, err := db.GetInvitationByEmail(db.GetDB(), "lead@example.com")
	require.NoError(t, err)
	assert.True(t, inv.Used)
}

func TestRegisterRiderJoinsExistingTeam(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	// First build a team through a team-admin registration.
	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))
	leadInput := validInput("lead@example.com", "team-lead")
	leadInput.TeamName = "Chain Gang"
	lead, err := orch.Register(leadInput)
	require.NoError(t, err)

	// Then register a regular rider invited onto that team.
	seedInvitation(t, db, "rider@example.com", database.RoleUser,
		sql.NullString{String: lead.TeamID, Valid: true},
		sql.NullString{String: "Chain Gang", Valid: true},
		time.Now().AddDate(0, 0, 7))

	rider, err := orch.Register(validInput("rider@example.com", "fast-rider"))
	require.NoError(t, err)
	assert.Equal(t, database.RoleUser, rider.Role)
	assert.Equal(t, lead.TeamID, rider.TeamID)
	assert.Equal(t, "Chain Gang", rider.TeamName)

	team, err := db.GetTeamByID(db.GetDB(), lead.TeamID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), team.MemberCount)

	profile, err := db.GetUserProfileByID(db.GetDB(), rider.UserID)
	require.NoError(t, err)
	assert.Equal(t, "fast-rider", profile.UserName)
	assert.Equal(t, float64(0), profile.TotalMiles)
	assert.Equal(t, int64(0), profile.TotalRides)
}

func TestRegisterWithoutInvitation(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	_, err := orch.Register(validInput("stranger@example.com", "stranger"))
	assert.ErrorIs(t, err, ErrNotInvited)
}

func TestRegisterExpiredInvitation(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "late@example.com", database.RoleUser,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, -1))

	_, err := orch.Register(validInput("late@example.com", "latecomer"))
	assert.ErrorIs(t, err, ErrInvitationExpired)
}

func TestRegisterUsedInvitation(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "done@example.com", database.RoleUser,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))
	err := db.WriteToDB(func(tx *sql.Tx) error {
		if err := db.MarkInvitationUsed(tx, "done@example.com"); err != nil {
			return err
		}
		_, execErr := tx.Exec(`UPDATE invitations_public SET used = 1 WHERE email = ?;`, "done@example.com")
		return execErr
	})
	require.NoError(t, err)

	_, err = orch.Register(validInput("done@example.com", "second-try"))
	assert.ErrorIs(t, err, ErrInvitationAlreadyUsed)
}

func TestRegisterUsernameTakenCaseInsensitive(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))
	leadInput := validInput("lead@example.com", "RoadRunner")
	leadInput.TeamName = "Chain Gang"
	lead, err := orch.Register(leadInput)
	require.NoError(t, err)

	seedInvitation(t, db, "copy@example.com", database.RoleUser,
		sql.NullString{String: lead.TeamID, Valid: true},
		sql.NullString{String: "Chain Gang", Valid: true},
		time.Now().AddDate(0, 0, 7))

	// Same name in a different case collides against the registry.
	_, err = orch.Register(validInput("copy@example.com", "roadrunner"))
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterPasswordRules(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "rider@example.com", database.RoleUser,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))

	weak := validInput("rider@example.com", "fast-rider")
	weak.Password = "short"
	weak.ConfirmPassword = "short"
	_, err := orch.Register(weak)
	assert.ErrorIs(t, err, ErrPasswordTooWeak)

	mismatch := validInput("rider@example.com", "fast-rider")
	mismatch.ConfirmPassword = "something else"
	_, err = orch.Register(mismatch)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestRegisterTeamAdminNeedsTeamName(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))

	_, err := orch.Register(validInput("lead@example.com", "team-lead"))
	assert.ErrorIs(t, err, ErrTeamNameRequired)
}

func TestRegisterRiderTargetTeamMissing(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "rider@example.com", database.RoleUser,
		sql.NullString{String: "no-such-team", Valid: true},
		sql.NullString{String: "Ghost Team", Valid: true},
		time.Now().AddDate(0, 0, 7))

	_, err := orch.Register(validInput("rider@example.com", "fast-rider"))
	assert.ErrorIs(t, err, ErrTeamNotFound)

	// The atomic write phase rolled back: no profile or username remain.
	exists, err := db.UsernameExists(db.GetDB(), "fast-rider")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterEmailAlreadyInUse(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))
	leadInput := validInput("lead@example.com", "team-lead")
	leadInput.TeamName = "Chain Gang"
	_, err := orch.Register(leadInput)
	require.NoError(t, err)

	// Re-seed the public view so the invitation check passes again and the
	// duplicate-account check is what fires.
	err = db.WriteToDB(func(tx *sql.Tx) error {
		return db.CreatePublicInvitation(tx, "lead@example.com", database.RoleTeamAdmin,
			sql.NullString{}, time.Now().AddDate(0, 0, 7))
	})
	require.NoError(t, err)

	second := validInput("lead@example.com", "other-name")
	second.TeamName = "Chain Gang II"
	_, err = orch.Register(second)
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestRegisterRemovesPublicInvitation(t *testing.T) {
	db := newTestService(t)
	orch := NewOrchestrator(db)

	seedInvitation(t, db, "lead@example.com", database.RoleTeamAdmin,
		sql.NullString{}, sql.NullString{}, time.Now().AddDate(0, 0, 7))
	input := validInput("lead@example.com", "team-lead")
	input.TeamName = "Chain Gang"
	_, err := orch.Register(input)
	require.NoError(t, err)

	_, err = db.GetPublicInvitationByEmail(db.GetDB(), "lead@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
