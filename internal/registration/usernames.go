package registration

import (
	"regexp"
	"strings"

	"github.com/rideon/rideon/internal/database"
)

// usernamePattern limits usernames to letters, numbers, underscores and hyphens.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsernameFormat applies the display-name rules: 3-20 characters from
// [a-zA-Z0-9_-], no spaces, and no leading or trailing underscore or hyphen.
// Format validation is independent of availability; both must pass before a
// name can be reserved.
func ValidateUsernameFormat(username string) error {
	if len(username) < 3 {
		return &FormatError{Reason: "username must be at least 3 characters long"}
	}
	if len(username) > 20 {
		return &FormatError{Reason: "username must be 20 characters or less"}
	}
	if strings.Contains(username, " ") {
		return &FormatError{Reason: "username cannot contain spaces"}
	}
	if !usernamePattern.MatchString(username) {
		return &FormatError{Reason: "username can only contain letters, numbers, underscores, and hyphens"}
	}
	if strings.HasPrefix(username, "_") || strings.HasPrefix(username, "-") ||
		strings.HasSuffix(username, "_") || strings.HasSuffix(username, "-") {
		return &FormatError{Reason: "username cannot start or end with underscores or hyphens"}
	}
	return nil
}

// UsernameRegistry enforces global display-name uniqueness through the
// dedicated usernames table: the existence of a row under the lower-cased name
// means the name is claimed. This registry, not the profiles table, is the
// authoritative source of truth for uniqueness.
type UsernameRegistry struct {
	db *database.Service
}

// NewUsernameRegistry creates a registry backed by the given database service.
func NewUsernameRegistry(db *database.Service) *UsernameRegistry {
	return &UsernameRegistry{db: db}
}

// IsAvailable reports whether the lower-cased username is unclaimed.
func (r *UsernameRegistry) IsAvailable(username string) (bool, error) {
	exists, err := r.db.UsernameExists(r.db.GetDB(), strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return false, err
	}
	return !exists, nil
}
