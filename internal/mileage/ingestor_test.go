package mileage

import (
	"database/sql"
	"errors"
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

// seedRider creates a team with one member and returns the rider's ID and the
// team's ID.
func seedRider(t *testing.T, db *database.Service) (string, string) {
	t.Helper()

	err := db.WriteToDB(func(tx *sql.Tx) error {
		if _, err := db.CreateTeam(tx, "team-1", "Chain Gang", "", "user-1"); err != nil {
			return err
		}
		profile := &database.UserProfile{
			ID:       "user-1",
			UserName: "fast-rider",
			Email:    "rider@example.com",
			Role:     database.RoleUser,
			TeamID:   sql.NullString{String: "team-1", Valid: true},
			TeamName: sql.NullString{String: "Chain Gang", Valid: true},
		}
		if _, err := db.CreateUserProfile(tx, profile); err != nil {
			return err
		}
		return db.AddTeamMember(tx, "team-1", "user-1", false)
	})
	require.NoError(t, err)

	return "user-1", "team-1"
}

func TestLogMilesAccumulatesTotals(t *testing.T) {
	db := newTestService(t)
	userID, teamID := seedRider(t, db)

	ingestor := NewServiceIngestor(db)
	pinned := time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC) // a Wednesday
	ingestor.Now = func() time.Time { return pinned }

	first, err := ingestor.LogMiles(userID, 10.0, "", "morning loop")
	require.NoError(t, err)
	assert.Equal(t, 10.0, first.Miles)
	assert.Equal(t, "2025-06-18", first.RideDate)
	assert.Equal(t, "morning loop", first.Notes)

	_, err = ingestor.LogMiles(userID, 5.5, "2025-06-17", "")
	require.NoError(t, err)

	// Rider totals accumulate across entries.
	profile, err := db.GetUserProfileByID(db.GetDB(), userID)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, profile.TotalMiles, 0.0001)
	assert.Equal(t, int64(2), profile.TotalRides)

	// Team totals follow.
	team, err := db.GetTeamByID(db.GetDB(), teamID)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, team.TotalMiles, 0.0001)
	assert.Equal(t, int64(2), team.TotalRides)

	// Both entries land in the same weekly bucket, keyed by submission time.
	weekID := WeekID(pinned)
	stat, err := db.GetWeeklyUserStat(db.GetDB(), userID, weekID)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, stat.WeeklyMiles, 0.0001)
	assert.Equal(t, int64(2), stat.WeeklyRides)

	teamStats, err := db.GetWeeklyTeamStats(db.GetDB(), weekID, 10)
	require.NoError(t, err)
	require.Len(t, teamStats, 1)
	assert.InDelta(t, 15.5, teamStats[0].WeeklyMiles, 0.0001)
	assert.Equal(t, int64(1), teamStats[0].MemberCount)

	// Every ride keeps its own immutable log row.
	logs, err := db.GetMileLogsByUserID(db.GetDB(), userID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestLogMilesRejectsInvalidInput(t *testing.T) {
	db := newTestService(t)
	userID, _ := seedRider(t, db)

	ingestor := NewServiceIngestor(db)

	_, err := ingestor.LogMiles(userID, 0, "", "")
	assert.ErrorIs(t, err, ErrInvalidMiles)

	_, err = ingestor.LogMiles(userID, -3, "", "")
	assert.ErrorIs(t, err, ErrInvalidMiles)

	_, err = ingestor.LogMiles("no-such-user", 10, "", "")
	assert.ErrorIs(t, err, ErrProfileNotLoaded)

	// Nothing was written.
	logs, err := db.GetMileLogsByUserID(db.GetDB(), userID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// flakyStore wraps a real store but fails every aggregate update, leaving only
// the mile-log insert working.
type flakyStore struct {
	real Store
}

func (f *flakyStore) GetProfile(userID string) (*database.UserProfile, error) {
	return f.real.GetProfile(userID)
}

func (f *flakyStore) GetTeam(teamID string) (*database.Team, error) {
	return f.real.GetTeam(teamID)
}

func (f *flakyStore) InsertMileLog(entry *database.MileLog) (*database.MileLog, error) {
	return f.real.InsertMileLog(entry)
}

func (f *flakyStore) AddUserMiles(string, float64) error {
	return errors.New("aggregate write failed")
}

func (f *flakyStore) AddTeamMiles(string, float64) error {
	return errors.New("aggregate write failed")
}

func (f *flakyStore) UpsertWeeklyUserStat(string, string, string, sql.NullString, float64) error {
	return errors.New("aggregate write failed")
}

func (f *flakyStore) UpsertWeeklyTeamStat(string, string, string, int64, float64) error {
	return errors.New("aggregate write failed")
}

func TestLogMilesSurvivesAggregateFailures(t *testing.T) {
	db := newTestService(t)
	userID, teamID := seedRider(t, db)

	ingestor := NewIngestor(&flakyStore{real: &storeAdapter{db: db}})

	entry, err := ingestor.LogMiles(userID, 12.3, "", "")
	require.NoError(t, err)
	assert.Equal(t, 12.3, entry.Miles)

	// The mandatory record exists.
	logs, err := db.GetMileLogsByUserID(db.GetDB(), userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	// The aggregates were left untouched, not corrupted.
	profile, err := db.GetUserProfileByID(db.GetDB(), userID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), profile.TotalMiles)
	assert.Equal(t, int64(0), profile.TotalRides)

	team, err := db.GetTeamByID(db.GetDB(), teamID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), team.TotalMiles)
}

func TestLogMilesWithoutTeam(t *testing.T) {
	db := newTestService(t)

	err := db.WriteToDB(func(tx *sql.Tx) error {
		profile := &database.UserProfile{
			ID:       "solo-1",
			UserName: "lone-wolf",
			Email:    "solo@example.com",
			Role:     database.RoleUser,
		}
		_, txErr := db.CreateUserProfile(tx, profile)
		return txErr
	})
	require.NoError(t, err)

	ingestor := NewServiceIngestor(db)
	pinned := time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)
	ingestor.Now = func() time.Time { return pinned }

	entry, err := ingestor.LogMiles("solo-1", 8.0, "", "")
	require.NoError(t, err)
	assert.False(t, entry.TeamID.Valid)

	// Rider stats update; no team stats appear.
	profile, err := db.GetUserProfileByID(db.GetDB(), "solo-1")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, profile.TotalMiles, 0.0001)

	teamStats, err := db.GetWeeklyTeamStats(db.GetDB(), WeekID(pinned), 10)
	require.NoError(t, err)
	assert.Empty(t, teamStats)
}
