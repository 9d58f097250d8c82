package mileage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rideon/rideon/internal/database"
)

var (
	// ErrProfileNotLoaded means the rider has no profile document, so there
	// is nothing to attribute the miles to. Returned before any write.
	ErrProfileNotLoaded = errors.New("user profile not loaded")

	// ErrInvalidMiles rejects zero or negative distances.
	ErrInvalidMiles = errors.New("miles must be greater than zero")
)

// Store is the slice of the database the ingestor needs. database.Service
// satisfies it through the storeAdapter below; tests substitute failing
// implementations to exercise the best-effort fan-out.
type Store interface {
	GetProfile(userID string) (*database.UserProfile, error)
	GetTeam(teamID string) (*database.Team, error)
	InsertMileLog(entry *database.MileLog) (*database.MileLog, error)
	AddUserMiles(userID string, miles float64) error
	AddTeamMiles(teamID string, miles float64) error
	UpsertWeeklyUserStat(userID, weekID, userName string, teamID sql.NullString, miles float64) error
	UpsertWeeklyTeamStat(teamID, weekID, teamName string, memberCount int64, miles float64) error
}

// Ingestor records a single mileage entry and fans out incremental updates to
// the denormalized aggregates. Only the mile-log insert is mandatory; the
// four aggregate updates are best-effort, each logged and swallowed on
// failure, so the primary record stays available even when an aggregate write
// misbehaves.
type Ingestor struct {
	store Store

	// Now is injectable so tests can pin the week bucket.
	Now func() time.Time
}

// NewIngestor creates an ingestor over the given store.
func NewIngestor(store Store) *Ingestor {
	return &Ingestor{store: store, Now: time.Now}
}

// NewServiceIngestor creates an ingestor directly over the database service.
func NewServiceIngestor(db *database.Service) *Ingestor {
	return NewIngestor(&storeAdapter{db: db})
}

// LogMiles persists one ride for the rider and updates the aggregates.
// Returns the created mile log once it is durable; aggregate failures do not
// fail the call.
func (in *Ingestor) LogMiles(userID string, miles float64, rideDate, notes string) (*database.MileLog, error) {
	// 1. The rider's profile supplies team attribution and the display name.
	profile, err := in.store.GetProfile(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotLoaded
		}
		return nil, fmt.Errorf("could not load profile: %w", err)
	}

	if miles <= 0 {
		return nil, ErrInvalidMiles
	}

	now := in.Now()
	if rideDate == "" {
		rideDate = now.Format("2006-01-02")
	}
	weekID := WeekID(now)

	// 2. The mandatory step: persist the immutable mile log. A failure here
	// aborts the whole operation.
	entry, err := in.store.InsertMileLog(&database.MileLog{
		UserID:   userID,
		UserName: profile.UserName,
		TeamID:   profile.TeamID,
		TeamName: profile.TeamName,
		Miles:    miles,
		RideDate: rideDate,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create mile log: %w", err)
	}

	// 3. Best-effort fan-out. From here on the call already succeeded.
	if err := in.store.AddUserMiles(userID, miles); err != nil {
		log.Printf("ERROR: could not update totals for user %s: %v", userID, err)
	}

	if profile.TeamID.Valid {
		if err := in.store.AddTeamMiles(profile.TeamID.String, miles); err != nil {
			log.Printf("ERROR: could not update totals for team %s: %v", profile.TeamID.String, err)
		}
	}

	if err := in.store.UpsertWeeklyUserStat(userID, weekID, profile.UserName, profile.TeamID, miles); err != nil {
		log.Printf("ERROR: could not update weekly stats for user %s week %s: %v", userID, weekID, err)
	}

	if profile.TeamID.Valid {
		memberCount := int64(1)
		if team, err := in.store.GetTeam(profile.TeamID.String); err != nil {
			log.Printf("WARN: could not load team %s for weekly stats: %v", profile.TeamID.String, err)
		} else {
			memberCount = team.MemberCount
		}
		if err := in.store.UpsertWeeklyTeamStat(profile.TeamID.String, weekID, profile.TeamName.String, memberCount, miles); err != nil {
			log.Printf("ERROR: could not update weekly stats for team %s week %s: %v", profile.TeamID.String, weekID, err)
		}
	}

	return entry, nil
}

// storeAdapter maps the Store interface onto database.Service queries.
type storeAdapter struct {
	db *database.Service
}

func (a *storeAdapter) GetProfile(userID string) (*database.UserProfile, error) {
	return a.db.GetUserProfileByID(a.db.GetDB(), userID)
}

func (a *storeAdapter) GetTeam(teamID string) (*database.Team, error) {
	return a.db.GetTeamByID(a.db.GetDB(), teamID)
}

func (a *storeAdapter) InsertMileLog(entry *database.MileLog) (*database.MileLog, error) {
	var created *database.MileLog
	err := a.db.WriteToDB(func(tx *sql.Tx) error {
		var txErr error
		created, txErr = a.db.CreateMileLog(tx, entry)
		return txErr
	})
	return created, err
}

func (a *storeAdapter) AddUserMiles(userID string, miles float64) error {
	return a.db.WriteToDB(func(tx *sql.Tx) error {
		return a.db.AddUserMiles(tx, userID, miles)
	})
}

func (a *storeAdapter) AddTeamMiles(teamID string, miles float64) error {
	return a.db.WriteToDB(func(tx *sql.Tx) error {
		return a.db.AddTeamMiles(tx, teamID, miles)
	})
}

func (a *storeAdapter) UpsertWeeklyUserStat(userID, weekID, userName string, teamID sql.NullString, miles float64) error {
	return a.db.WriteToDB(func(tx *sql.Tx) error {
		return a.db.UpsertWeeklyUserStat(tx, userID, weekID, userName, teamID, miles)
	})
}

func (a *storeAdapter) UpsertWeeklyTeamStat(teamID, weekID, teamName string, memberCount int64, miles float64) error {
	return a.db.WriteToDB(func(tx *sql.Tx) error {
		return a.db.UpsertWeeklyTeamStat(tx, teamID, weekID, teamName, memberCount, miles)
	})
}
