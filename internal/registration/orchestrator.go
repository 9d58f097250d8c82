package registration

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rideon/rideon/internal/auth"
	"github.com/rideon/rideon/internal/database"

	"github.com/google/uuid"
)

// Input carries everything the registration form submits.
type Input struct {
	Email           string
	Password        string
	ConfirmPassword string
	Username        string
	TeamName        string
}

// Result identifies what a successful registration created.
type Result struct {
	UserID   string
	Role     string
	TeamID   string
	TeamName string
}

// Orchestrator drives account creation: it validates the invitation and
// username, creates the authentication account, then writes the team, profile
// and username records in a single transaction and consumes the invitation.
//
// The account row is deliberately created outside that transaction, mirroring
// an external identity provider: if the document side fails afterwards, the
// account is left behind and the failure is reported to the caller as a
// generic error. The write phase itself is atomic, so partially created
// profile/team/username records cannot be observed.
type Orchestrator struct {
	db         *database.Service
	invitation *InvitationValidator
	usernames  *UsernameRegistry
}

// NewOrchestrator wires an orchestrator and its leaf validators onto the
// given database service.
func NewOrchestrator(db *database.Service) *Orchestrator {
	return &Orchestrator{
		db:         db,
		invitation: NewInvitationValidator(db),
		usernames:  NewUsernameRegistry(db),
	}
}

// Invitations exposes the invitation validator for advisory pre-checks.
func (o *Orchestrator) Invitations() *InvitationValidator {
	return o.invitation
}

// Usernames exposes the username registry for advisory pre-checks.
func (o *Orchestrator) Usernames() *UsernameRegistry {
	return o.usernames
}

// Register runs the full onboarding sequence for an invited rider.
func (o *Orchestrator) Register(input Input) (*Result, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	teamName := strings.TrimSpace(input.TeamName)

	// --- 1. Pre-flight validation. Fail fast, no side effects. ---
	publicInv, err := o.invitation.Validate(email)
	if err != nil {
		return nil, err
	}

	if err := ValidateUsernameFormat(username); err != nil {
		return nil, err
	}
	available, err := o.usernames.IsAvailable(username)
	if err != nil {
		return nil, fmt.Errorf("could not check username availability: %w", err)
	}
	if !available {
		return nil, ErrUsernameTaken
	}

	if len(input.Password) < 6 {
		return nil, ErrPasswordTooWeak
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	createsTeam := publicInv.Role == database.RoleAdmin || publicInv.Role == database.RoleTeamAdmin
	if createsTeam && teamName == "" {
		return nil, ErrTeamNameRequired
	}

	if _, err := o.db.GetAccountByEmail(o.db.GetDB(), email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not check existing accounts: %w", err)
	}

	// --- 2. Create the authentication account. ---
	// This step is not compensable: a failure later on leaves the account
	// behind with no profile, which is accepted and only logged.
	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	userID := uuid.NewString()
	err = o.db.WriteToDB(func(tx *sql.Tx) error {
		_, txErr := o.db.CreateAccount(tx, userID, email, passwordHash)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("could not create account: %w", err)
	}

	// --- 3. Write phase: one atomic transaction. ---
	// The invitation is re-fetched from the authoritative table here; the
	// public-view check above was only advisory.
	result := &Result{UserID: userID}
	err = o.db.WriteToDB(func(tx *sql.Tx) error {
		inv, txErr := o.db.GetInvitationByEmail(tx, email)
		if txErr != nil {
			if errors.Is(txErr, sql.ErrNoRows) {
				return ErrNotInvited
			}
			return txErr
		}
		if time.Now().After(inv.ExpiresAt) {
			return ErrInvitationExpired
		}
		if inv.Used {
			return ErrInvitationAlreadyUsed
		}

		profile := &database.UserProfile{
			ID:       userID,
			UserName: username,
			Email:    email,
			Role:     inv.Role,
		}
		if profile.Role == "" {
			profile.Role = database.RoleUser
		}

		isTeamAdmin := false
		switch inv.Role {
		case database.RoleAdmin, database.RoleTeamAdmin:
			// Synthesize a fresh team with the new rider as its only member.
			teamID := uuid.NewString()
			description := "A new cycling team"
			if inv.Role == database.RoleAdmin {
				description = "Application administrators team"
			}
			if _, txErr = o.db.CreateTeam(tx, teamID, teamName, description, userID); txErr != nil {
				return txErr
			}
			profile.TeamID = sql.NullString{String: teamID, Valid: true}
			profile.TeamName = sql.NullString{String: teamName, Valid: true}
			isTeamAdmin = true
		default:
			// Join the invitation's target team.
			if !inv.TeamID.Valid {
				return ErrTeamNotFound
			}
			team, txErr := o.db.GetTeamByID(tx, inv.TeamID.String)
			if txErr != nil {
				if errors.Is(txErr, sql.ErrNoRows) {
					return ErrTeamNotFound
				}
				return txErr
			}
			profile.TeamID = sql.NullString{String: team.ID, Valid: true}
			profile.TeamName = sql.NullString{String: team.Name, Valid: true}
		}

		if _, txErr = o.db.CreateUserProfile(tx, profile); txErr != nil {
			return txErr
		}

		// Re-check the registry inside the transaction before reserving the
		// name; the pre-flight check may be stale by now.
		taken, txErr := o.db.UsernameExists(tx, strings.ToLower(username))
		if txErr != nil {
			return txErr
		}
		if taken {
			return ErrUsernameTaken
		}
		if txErr = o.db.CreateUsernameRecord(tx, strings.ToLower(username), userID); txErr != nil {
			return txErr
		}

		if txErr = o.db.AddTeamMember(tx, profile.TeamID.String, userID, isTeamAdmin); txErr != nil {
			return txErr
		}

		// The invitation was verified unused above in this same transaction,
		// so a failure here is a genuine write error, not a consumed invite.
		if txErr = o.db.MarkInvitationUsed(tx, email); txErr != nil {
			return txErr
		}

		result.Role = profile.Role
		result.TeamID = profile.TeamID.String
		result.TeamName = profile.TeamName.String
		return nil
	})
	if err != nil {
		// The account from step 2 is now orphaned. Surface the categorized
		// error but do not attempt to roll the account back.
		log.Printf("WARN: registration for %s failed after account creation; account %s is orphaned: %v", email, userID, err)
		return nil, err
	}

	// --- 4. Best-effort cleanup of the public invitation view. ---
	// A failure here does not fail registration: the authoritative invitation
	// is already marked used, which is what governs later validation.
	err = o.db.WriteToDB(func(tx *sql.Tx) error {
		return o.db.DeletePublicInvitation(tx, email)
	})
	if err != nil {
		log.Printf("WARN: could not delete public invitation for %s: %v", email, err)
	}

	return result, nil
}
