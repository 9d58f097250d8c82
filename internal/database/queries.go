package database

import (
	"database/sql"
	"errors"
	"time"
)

// DBorTx is an interface that allows functions to accept either a `*sql.DB` for single queries
// or a `*sql.Tx` for operations within a transaction. This promotes code reuse.
type DBorTx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// --- Account Queries ---

func (s *Service) CreateAccount(db DBorTx, id, email, passwordHash string) (*Account, error) {
	// An empty password hash is set to NULL in the DB for Google-only accounts.
	var hash interface{} = passwordHash
	if passwordHash == "" {
		hash = nil
	}
	query := `INSERT INTO accounts (id, email, password_hash) VALUES (?, ?, ?);`
	if _, err := db.Exec(query, id, email, hash); err != nil {
		return nil, err
	}
	return s.GetAccountByID(db, id)
}

func (s *Service) GetAccountByEmail(db DBorTx, email string) (*Account, error) {
	query := `SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?;`
	account := &Account{}
	err := db.QueryRow(query, email).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err // Returns sql.ErrNoRows if not found
	}
	return account, nil
}

func (s *Service) GetAccountByID(db DBorTx, id string) (*Account, error) {
	query := `SELECT id, email, password_hash, created_at FROM accounts WHERE id = ?;`
	account := &Account{}
	err := db.QueryRow(query, id).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	return account, err
}

// --- Invitation Queries ---

func (s *Service) CreateInvitation(tx *sql.Tx, email, role string, teamID sql.NullString, invitedBy string, expiresAt time.Time) (*Invitation, error) {
	query := `INSERT INTO invitations (email, role, team_id, invited_by, expires_at) VALUES (?, ?, ?, ?, ?);`
	if _, err := tx.Exec(query, email, role, teamID, invitedBy, expiresAt); err != nil {
		return nil, err
	}
	return s.GetInvitationByEmail(tx, email)
}

func (s *Service) GetInvitationByEmail(db DBorTx, email string) (*Invitation, error) {
	query := `SELECT email, role, team_id, invited_by, expires_at, used, used_at, created_at FROM invitations WHERE email = ?;`
	inv := &Invitation{}
	err := db.QueryRow(query, email).Scan(
		&inv.Email,
		&inv.Role,
		&inv.TeamID,
		&inv.InvitedBy,
		&inv.ExpiresAt,
		&inv.Used,
		&inv.UsedAt,
		&inv.CreatedAt,
	)
	return inv, err
}

// MarkInvitationUsed flips the used flag exactly once. A second call for the
// same email affects zero rows and reports the invitation as already consumed.
func (s *Service) MarkInvitationUsed(tx *sql.Tx, email string) error {
	query := `UPDATE invitations SET used = 1, used_at = CURRENT_TIMESTAMP WHERE email = ? AND used = 0;`
	res, err := tx.Exec(query, email)
	if err != nil {
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return errors.New("invitation not found or already used")
	}
	return nil
}

func (s *Service) CreatePublicInvitation(tx *sql.Tx, email, role string, teamName sql.NullString, expiresAt time.Time) error {
	query := `INSERT INTO invitations_public (email, role, team_name, expires_at) VALUES (?, ?, ?, ?);`
	_, err := tx.Exec(query, email, role, teamName, expiresAt)
	return err
}

func (s *Service) GetPublicInvitationByEmail(db DBorTx, email string) (*PublicInvitation, error) {
	query := `SELECT email, role, team_name, expires_at, used FROM invitations_public WHERE email = ?;`
	inv := &PublicInvitation{}
	err := db.QueryRow(query, email).Scan(
		&inv.Email,
		&inv.Role,
		&inv.TeamName,
		&inv.ExpiresAt,
		&inv.Used,
	)
	return inv, err
}

func (s *Service) DeletePublicInvitation(tx *sql.Tx, email string) error {
	_, err := tx.Exec(`DELETE FROM invitations_public WHERE email = ?;`, email)
	return err
}

// --- Username Registry Queries ---

func (s *Service) UsernameExists(db DBorTx, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM usernames WHERE username = ?);`
	var exists bool
	err := db.QueryRow(query, username).Scan(&exists)
	return exists, err
}

func (s *Service) CreateUsernameRecord(tx *sql.Tx, username, userID string) error {
	query := `INSERT INTO usernames (username, user_id) VALUES (?, ?);`
	_, err := tx.Exec(query, username, userID)
	return err
}

// --- User Profile Queries ---

func (s *Service) CreateUserProfile(tx *sql.Tx, profile *UserProfile) (*UserProfile, error) {
	query := `
		INSERT INTO users (id, user_name, email, role, team_id, team_name, joined_team_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);`
	_, err := tx.Exec(query, profile.ID, profile.UserName, profile.Email, profile.Role, profile.TeamID, profile.TeamName)
	if err != nil {
		return nil, err
	}
	return s.GetUserProfileByID(tx, profile.ID)
}

func (s *Service) GetUserProfileByID(db DBorTx, id string) (*UserProfile, error) {
	query := `
		SELECT id, user_name, email, role, team_id, team_name, total_miles, total_rides, created_at, joined_team_at
		FROM users WHERE id = ?;`
	profile := &UserProfile{}
	err := db.QueryRow(query, id).Scan(
		&profile.ID,
		&profile.UserName,
		&profile.Email,
		&profile.Role,
		&profile.TeamID,
		&profile.TeamName,
		&profile.TotalMiles,
		&profile.TotalRides,
		&profile.CreatedAt,
		&profile.JoinedTeamAt,
	)
	return profile, err
}

// AddUserMiles applies an atomic increment to a rider's running totals.
// The increment is commutative, so concurrent submissions from different
// requests cannot lose updates.
func (s *Service) AddUserMiles(db DBorTx, userID string, miles float64) error {
	query := `UPDATE users SET total_miles = total_miles + ?, total_rides = total_rides + 1 WHERE id = ?;`
	res, err := db.Exec(query, miles, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return errors.New("user not found")
	}
	return nil
}

// leaderboardColumns whitelists the sortable columns so a caller-supplied sort
// key can never reach the SQL string directly.
var leaderboardColumns = map[string]string{
	"totalMiles": "total_miles",
	"totalRides": "total_rides",
}

func (s *Service) GetTopUsers(db DBorTx, sortKey string, limit int) ([]*UserProfile, error) {
	column, ok := leaderboardColumns[sortKey]
	if !ok {
		return nil, errors.New("unsupported sort key: " + sortKey)
	}
	query := `
		SELECT id, user_name, email, role, team_id, team_name, total_miles, total_rides, created_at, joined_team_at
		FROM users ORDER BY ` + column + ` DESC LIMIT ?;`
	return s.scanUserProfiles(db, query, limit)
}

// GetUsers fetches users without ordering, bounded by limit. Used by the
// weekly leaderboard, which sorts in memory after joining weekly stats.
func (s *Service) GetUsers(db DBorTx, limit int) ([]*UserProfile, error) {
	query := `
		SELECT id, user_name, email, role, team_id, team_name, total_miles, total_rides, created_at, joined_team_at
		FROM users LIMIT ?;`
	return s.scanUserProfiles(db, query, limit)
}

func (s *Service) scanUserProfiles(db DBorTx, query string, args ...interface{}) ([]*UserProfile, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*UserProfile
	for rows.Next() {
		profile := &UserProfile{}
		if err := rows.Scan(
			&profile.ID, &profile.UserName, &profile.Email, &profile.Role,
			&profile.TeamID, &profile.TeamName, &profile.TotalMiles, &profile.TotalRides,
			&profile.CreatedAt, &profile.JoinedTeamAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// --- Team & Membership Queries ---

func (s *Service) CreateTeam(tx *sql.Tx, id, name, description, createdBy string) (*Team, error) {
	query := `INSERT INTO teams (id, name, description, created_by) VALUES (?, ?, ?, ?);`
	if _, err := tx.Exec(query, id, name, description, createdBy); err != nil {
		return nil, err
	}
	return s.GetTeamByID(tx, id)
}

func (s *Service) GetTeamByID(db DBorTx, id string) (*Team, error) {
	query := `
		SELECT id, name, description, created_by, is_active, member_count, total_miles, total_rides, created_at, last_updated
		FROM teams WHERE id = ?;`
	team := &Team{}
	err := db.QueryRow(query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatedBy,
		&team.IsActive,
		&team.MemberCount,
		&team.TotalMiles,
		&team.TotalRides,
		&team.CreatedAt,
		&team.LastUpdated,
	)
	return team, err
}

// AddTeamMember inserts the membership row and bumps member_count in the same
// statement sequence, inside the caller's transaction. member_count therefore
// always equals the number of membership rows.
func (s *Service) AddTeamMember(tx *sql.Tx, teamID, userID string, isAdmin bool) error {
	query := `INSERT INTO team_members (team_id, user_id, is_admin) VALUES (?, ?, ?);`
	if _, err := tx.Exec(query, teamID, userID, isAdmin); err != nil {
		return err
	}
	bump := `UPDATE teams SET member_count = member_count + 1, last_updated = CURRENT_TIMESTAMP WHERE id = ?;`
	_, err := tx.Exec(bump, teamID)
	return err
}

func (s *Service) GetTeamMembers(db DBorTx, teamID string) ([]*UserProfile, error) {
	query := `
		SELECT u.id, u.user_name, u.email, u.role, u.team_id, u.team_name, u.total_miles, u.total_rides, u.created_at, u.joined_team_at
		FROM users u
		JOIN team_members tm ON u.id = tm.user_id
		WHERE tm.team_id = ?
		ORDER BY u.user_name;`
	return s.scanUserProfiles(db, query, teamID)
}

// AddTeamMiles applies an atomic increment to a team's running totals.
func (s *Service) AddTeamMiles(db DBorTx, teamID string, miles float64) error {
	query := `
		UPDATE teams
		SET total_miles = total_miles + ?, total_rides = total_rides + 1, last_updated = CURRENT_TIMESTAMP
		WHERE id = ?;`
	res, err := db.Exec(query, miles, teamID)
	if err != nil {
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return errors.New("team not found")
	}
	return nil
}

// GetTopTeams fetches teams ordered by a stored total. Teams with no members
// are treated as inactive and excluded from standings.
func (s *Service) GetTopTeams(db DBorTx, sortKey string, limit int) ([]*Team, error) {
	column, ok := leaderboardColumns[sortKey]
	if !ok {
		return nil, errors.New("unsupported sort key: " + sortKey)
	}
	query := `
		SELECT id, name, description, created_by, is_active, member_count, total_miles, total_rides, created_at, last_updated
		FROM teams WHERE member_count > 0 ORDER BY ` + column + ` DESC LIMIT ?;`
	return s.scanTeams(db, query, limit)
}

// GetTeams fetches teams without ordering, bounded by limit, for the in-memory
// weekly join.
func (s *Service) GetTeams(db DBorTx, limit int) ([]*Team, error) {
	query := `
		SELECT id, name, description, created_by, is_active, member_count, total_miles, total_rides, created_at, last_updated
		FROM teams WHERE member_count > 0 LIMIT ?;`
	return s.scanTeams(db, query, limit)
}

func (s *Service) scanTeams(db DBorTx, query string, args ...interface{}) ([]*Team, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(
			&team.ID, &team.Name, &team.Description, &team.CreatedBy, &team.IsActive,
			&team.MemberCount, &team.TotalMiles, &team.TotalRides, &team.CreatedAt, &team.LastUpdated,
		); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// --- Mile Log Queries ---

func (s *Service) CreateMileLog(db DBorTx, logEntry *MileLog) (*MileLog, error) {
	query := `
		INSERT INTO mile_logs (user_id, user_name, team_id, team_name, miles, ride_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?);`
	res, err := db.Exec(query, logEntry.UserID, logEntry.UserName, logEntry.TeamID, logEntry.TeamName, logEntry.Miles, logEntry.RideDate, logEntry.Notes)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return s.GetMileLogByID(db, id)
}

func (s *Service) GetMileLogByID(db DBorTx, id int64) (*MileLog, error) {
	query := `SELECT id, user_id, user_name, team_id, team_name, miles, ride_date, notes, created_at FROM mile_logs WHERE id = ?;`
	logEntry := &MileLog{}
	err := db.QueryRow(query, id).Scan(
		&logEntry.ID,
		&logEntry.UserID,
		&logEntry.UserName,
		&logEntry.TeamID,
		&logEntry.TeamName,
		&logEntry.Miles,
		&logEntry.RideDate,
		&logEntry.Notes,
		&logEntry.CreatedAt,
	)
	return logEntry, err
}

func (s *Service) GetMileLogsByUserID(db DBorTx, userID string, limit int) ([]*MileLog, error) {
	query := `
		SELECT id, user_id, user_name, team_id, team_name, miles, ride_date, notes, created_at
		FROM mile_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?;`
	rows, err := db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*MileLog
	for rows.Next() {
		logEntry := &MileLog{}
		if err := rows.Scan(
			&logEntry.ID, &logEntry.UserID, &logEntry.UserName, &logEntry.TeamID, &logEntry.TeamName,
			&logEntry.Miles, &logEntry.RideDate, &logEntry.Notes, &logEntry.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, logEntry)
	}
	return logs, rows.Err()
}

// --- Weekly Stat Queries ---

// UpsertWeeklyUserStat creates-or-merges the rider's stat row for a week,
// applying the miles and ride increments atomically.
func (s *Service) UpsertWeeklyUserStat(db DBorTx, userID, weekID, userName string, teamID sql.NullString, miles float64) error {
	query := `
		INSERT INTO weekly_stats (user_id, week_id, user_name, team_id, weekly_miles, weekly_rides)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (user_id, week_id) DO UPDATE SET
			weekly_miles = weekly_miles + excluded.weekly_miles,
			weekly_rides = weekly_rides + 1,
			last_updated = CURRENT_TIMESTAMP;`
	_, err := db.Exec(query, userID, weekID, userName, teamID, miles)
	return err
}

// UpsertWeeklyTeamStat creates-or-merges the team's stat row for a week.
func (s *Service) UpsertWeeklyTeamStat(db DBorTx, teamID, weekID, teamName string, memberCount int64, miles float64) error {
	query := `
		INSERT INTO weekly_team_stats (team_id, week_id, team_name, weekly_miles, weekly_rides, member_count)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (team_id, week_id) DO UPDATE SET
			weekly_miles = weekly_miles + excluded.weekly_miles,
			weekly_rides = weekly_rides + 1,
			member_count = excluded.member_count,
			last_updated = CURRENT_TIMESTAMP;`
	_, err := db.Exec(query, teamID, weekID, teamName, miles, memberCount)
	return err
}

func (s *Service) GetWeeklyUserStats(db DBorTx, weekID string, limit int) ([]*WeeklyUserStat, error) {
	query := `
		SELECT user_id, week_id, user_name, team_id, weekly_miles, weekly_rides, last_updated
		FROM weekly_stats WHERE week_id = ? LIMIT ?;`
	rows, err := db.Query(query, weekID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*WeeklyUserStat
	for rows.Next() {
		stat := &WeeklyUserStat{}
		if err := rows.Scan(
			&stat.UserID, &stat.WeekID, &stat.UserName, &stat.TeamID,
			&stat.WeeklyMiles, &stat.WeeklyRides, &stat.LastUpdated,
		); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *Service) GetWeeklyTeamStats(db DBorTx, weekID string, limit int) ([]*WeeklyTeamStat, error) {
	query := `
		SELECT team_id, week_id, team_name, weekly_miles, weekly_rides, member_count, last_updated
		FROM weekly_team_stats WHERE week_id = ? LIMIT ?;`
	rows, err := db.Query(query, weekID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*WeeklyTeamStat
	for rows.Next() {
		stat := &WeeklyTeamStat{}
		if err := rows.Scan(
			&stat.TeamID, &stat.WeekID, &stat.TeamName,
			&stat.WeeklyMiles, &stat.WeeklyRides, &stat.MemberCount, &stat.LastUpdated,
		); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (s *Service) GetWeeklyUserStat(db DBorTx, userID, weekID string) (*WeeklyUserStat, error) {
	query := `
		SELECT user_id, week_id, user_name, team_id, weekly_miles, weekly_rides, last_updated
		FROM weekly_stats WHERE user_id = ? AND week_id = ?;`
	stat := &WeeklyUserStat{}
	err := db.QueryRow(query, userID, weekID).Scan(
		&stat.UserID, &stat.WeekID, &stat.UserName, &stat.TeamID,
		&stat.WeeklyMiles, &stat.WeeklyRides, &stat.LastUpdated,
	)
	return stat, err
}
