package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Matching(t *testing.T) {
	cause := errors.New("pg: connection refused")
	err := fmt.Errorf("load: %w", ErrUserNotFound.Wrap(cause))

	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrProgressNotFound))
	assert.Contains(t, err.Error(), "user.Find: user not found")
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsValidation(ErrInvalidRequirement))
	assert.True(t, IsValidation(ErrWeakPassword))
	assert.True(t, IsUnauthorized(ErrInvalidCredentials))
	assert.True(t, IsForbidden(ErrTaskLocked))
	assert.True(t, IsInvalidState(ErrNotOnboarded))
	assert.True(t, IsAlreadyExists(ErrAlreadyOnboarded))
	assert.True(t, IsExternalService(ErrMentorUnavailable))
	assert.False(t, IsExternalService(ErrTaskNotFound))
}

func TestXPLevel(t *testing.T) {
	cases := []struct {
		xp    XP
		level int
	}{
		{0, 1},
		{499, 1},
		{500, 2},
		{1500, 4},
		{2400, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, c.xp.Level(), "xp=%d", c.xp)
	}
	assert.Equal(t, XP(0), XP(10).Add(-50))
	assert.Equal(t, 50, XP(750).ProgressToNextLevel())
}

func TestRoundPercent(t *testing.T) {
	assert.Equal(t, 7, RoundPercent(1, 14))
	assert.Equal(t, 14, RoundPercent(2, 14))
	assert.Equal(t, 50, RoundPercent(7, 14))
	assert.Equal(t, 100, RoundPercent(14, 14))
	assert.Equal(t, 100, RoundPercent(30, 10))
	assert.Equal(t, 0, RoundPercent(3, 0))
}

func TestParseUserID(t *testing.T) {
	id := NewUserID()
	parsed, err := ParseUserID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseUserID("not-a-uuid")
	assert.True(t, IsValidation(err))
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 20, Limit(0, 20, 100))
	assert.Equal(t, 100, Limit(500, 20, 100))
	assert.Equal(t, 5, Limit(5, 20, 100))
}
