package registration

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rideon/rideon/internal/database"
)

// InvitationValidator checks whether an email holds a live, unexpired, unused
// invitation. It reads only the public invitation view, so it is safe to call
// before the caller has an account, and it has no side effects. The result is
// advisory: the orchestrator re-checks the authoritative invitation at submit
// time.
type InvitationValidator struct {
	db *database.Service
}

// NewInvitationValidator creates a validator backed by the given database service.
func NewInvitationValidator(db *database.Service) *InvitationValidator {
	return &InvitationValidator{db: db}
}

// Validate looks up the public invitation view by lower-cased email and
// returns the invitation when it is currently redeemable. Failure modes are
// ErrNotInvited, ErrInvitationExpired and ErrInvitationAlreadyUsed.
func (v *InvitationValidator) Validate(email string) (*database.PublicInvitation, error) {
	inv, err := v.db.GetPublicInvitationByEmail(v.db.GetDB(), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotInvited
		}
		return nil, err
	}

	if time.Now().After(inv.ExpiresAt) {
		return nil, ErrInvitationExpired
	}
	if inv.Used {
		return nil, ErrInvitationAlreadyUsed
	}

	return inv, nil
}
