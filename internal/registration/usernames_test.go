package registration

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsernameFormat(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantOK   bool
	}{
		{"simple", "rider42", true},
		{"with underscore", "fast_rider", true},
		{"with hyphen", "fast-rider", true},
		{"minimum length", "abc", true},
		{"maximum length", "abcdefghijklmnopqrst", true},
		{"too short", "ab", false},
		{"too long", "abcdefghijklmnopqrstu", false},
		{"contains space", "fast rider", false},
		{"special characters", "rider!", false},
		{"leading underscore", "_rider", false},
		{"trailing underscore", "rider_", false},
		{"leading hyphen", "-rider", false},
		{"trailing hyphen", "rider-", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsernameFormat(tc.username)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				var formatErr *FormatError
				assert.ErrorAs(t, err, &formatErr)
			}
		})
	}
}

func TestUsernameRegistryAvailability(t *testing.T) {
	db := newTestService(t)
	registry := NewUsernameRegistry(db)

	available, err := registry.IsAvailable("fresh-name")
	require.NoError(t, err)
	assert.True(t, available)

	err = db.WriteToDB(func(tx *sql.Tx) error {
		return db.CreateUsernameRecord(tx, "fresh-name", "user-1")
	})
	require.NoError(t, err)

	available, err = registry.IsAvailable("fresh-name")
	require.NoError(t, err)
	assert.False(t, available)

	// Availability is case-insensitive.
	available, err = registry.IsAvailable("FRESH-NAME")
	require.NoError(t, err)
	assert.False(t, available)
}
