package registration

import "errors"

// Categorized registration failures. The API layer maps each of these to a
// short human-readable message and an HTTP status; anything else is reported
// as a generic failure and logged server-side.
var (
	ErrNotInvited            = errors.New("this email has not been invited to join")
	ErrInvitationExpired     = errors.New("this invitation has expired")
	ErrInvitationAlreadyUsed = errors.New("this invitation has already been used")
	ErrUsernameTaken         = errors.New("this username is already taken")
	ErrPasswordTooWeak       = errors.New("password must be at least 6 characters long")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrTeamNotFound          = errors.New("the team for this invitation no longer exists")
	ErrEmailInUse            = errors.New("an account with this email already exists")
)

// FormatError describes why a username fails the format rules. It satisfies
// the error interface so callers can surface the reason directly.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}
