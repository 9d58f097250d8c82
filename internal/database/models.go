package database

import (
	"database/sql"
	"time"
)

// Rider roles. Admin and team-admin invitations create a team at
// registration; regular riders join the invitation's target team.
const (
	RoleUser      = "user"
	RoleTeamAdmin = "team_admin"
	RoleAdmin     = "admin"
)

// Account represents a record in the 'accounts' table. It is the
// authentication identity, kept separate from the rider profile: the account
// row is created first during registration and is never rolled back if the
// profile side fails.
type Account struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash sql.NullString `json:"-"` // Omit from JSON responses for security
	CreatedAt    time.Time      `json:"createdAt"`
}

// Invitation represents a record in the 'invitations' table. This is the
// authoritative invitation, keyed by lower-cased email. At most one invitation
// exists per email and it is consumed exactly once.
type Invitation struct {
	Email     string         `json:"email"`
	Role      string         `json:"role"` // 'user', 'team_admin' or 'admin'
	TeamID    sql.NullString `json:"teamId"`
	InvitedBy string         `json:"invitedBy"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Used      bool           `json:"used"`
	UsedAt    sql.NullTime   `json:"usedAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PublicInvitation mirrors the subset of an invitation that the registration
// form may read before the caller is authenticated. It is deleted best-effort
// once registration completes.
type PublicInvitation struct {
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	TeamName  sql.NullString `json:"teamName"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Used      bool           `json:"used"`
}

// UsernameRecord represents a record in the 'usernames' table. Its mere
// existence under the lower-cased name means the name is claimed.
type UsernameRecord struct {
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserProfile represents a record in the 'users' table. TotalMiles and
// TotalRides only ever move through atomic SQL increments.
type UserProfile struct {
	ID           string         `json:"id"`
	UserName     string         `json:"userName"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	TeamID       sql.NullString `json:"teamId"`
	TeamName     sql.NullString `json:"teamName"`
	TotalMiles   float64        `json:"totalMiles"`
	TotalRides   int64          `json:"totalRides"`
	CreatedAt    time.Time      `json:"createdAt"`
	JoinedTeamAt sql.NullTime   `json:"joinedTeamAt"`
}

// Team represents a record in the 'teams' table. MemberCount is denormalized
// but maintained in the same transaction as every membership change, so it
// always equals the number of team_members rows.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	IsActive    bool      `json:"isActive"`
	MemberCount int64     `json:"memberCount"`
	TotalMiles  float64   `json:"totalMiles"`
	TotalRides  int64     `json:"totalRides"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TeamMember represents a record in the 'team_members' table.
type TeamMember struct {
	TeamID   string    `json:"teamId"`
	UserID   string    `json:"userId"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// MileLog represents a record in the 'mile_logs' table. Rows are immutable
// once created.
type MileLog struct {
	ID        int64          `json:"id"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	TeamID    sql.NullString `json:"teamId"`
	TeamName  sql.NullString `json:"teamName"`
	Miles     float64        `json:"miles"`
	RideDate  string         `json:"date"` // YYYY-MM-DD as entered by the rider
	Notes     string         `json:"notes"`
	CreatedAt time.Time      `json:"createdAt"`
}

// WeeklyUserStat represents a record in the 'weekly_stats' table, one row per
// (user, week). Rows are created-or-merged with increments.
type WeeklyUserStat struct {
	UserID      string         `json:"userId"`
	WeekID      string         `json:"weekId"`
	UserName    string         `json:"userName"`
	TeamID      sql.NullString `json:"teamId"`
	WeeklyMiles float64        `json:"weeklyMiles"`
	WeeklyRides int64          `json:"weeklyRides"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// WeeklyTeamStat represents a record in the 'weekly_team_stats' table, one row
// per (team, week).
type WeeklyTeamStat struct {
	TeamID      string    `json:"teamId"`
	WeekID      string    `json:"weekId"`
	TeamName    string    `json:"teamName"`
	WeeklyMiles float64   `json:"weeklyMiles"`
	WeeklyRides int64     `json:"weeklyRides"`
	MemberCount int64     `json:"memberCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}
