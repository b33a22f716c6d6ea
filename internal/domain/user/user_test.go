package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

func TestNewUser(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	u, err := NewUser(NewUserParams{Email: "  Ada@Example.COM ", PasswordHash: "h", Now: now})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "ada", u.DisplayName)
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.IsOnboarded())

	u.Enroll("data-analytics", now)
	assert.True(t, u.IsOnboarded())
}

func TestNormalizeEmail_Rejects(t *testing.T) {
	for _, in := range []string{"", "nope", "Name <a@b.c>", "a@"} {
		_, err := NormalizeEmail(in)
		assert.ErrorIs(t, err, shared.ErrInvalidEmail, in)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), shared.ErrWeakPassword)
	assert.NoError(t, ValidatePassword("long-enough"))
}
