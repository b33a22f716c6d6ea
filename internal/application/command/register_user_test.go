package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type stubIssuer struct{ at time.Time }

func (s stubIssuer) Issue(userID string) (string, time.Time, error) {
	return "token-" + userID, s.at.Add(time.Hour), nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := NewRegisterUserHandler(f.store.Users(), plainHasher{}, stubIssuer{at: start}, f.bus, f.cfg, nil)
	auth := NewAuthenticateUserHandler(f.store.Users(), plainHasher{}, stubIssuer{at: start}, nil)

	res, err := reg.Handle(ctx, RegisterUserCommand{Email: " Dana@Example.com ", Password: "correct-horse", DisplayName: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", res.User.Email)
	assert.Equal(t, "token-"+res.User.ID, res.Token)
	assert.NotEqual(t, "correct-horse", res.User.PasswordHash)
	assert.Contains(t, f.bus.types(), shared.EventUserRegistered)

	_, err = reg.Handle(ctx, RegisterUserCommand{Email: "dana@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)

	login, err := auth.Handle(ctx, AuthenticateUserCommand{Email: "DANA@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = auth.Handle(ctx, AuthenticateUserCommand{Email: "dana@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = auth.Handle(ctx, AuthenticateUserCommand{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	reg := NewRegisterUserHandler(f.store.Users(), plainHasher{}, stubIssuer{at: start}, f.bus, f.cfg, nil)

	_, err := reg.Handle(context.Background(), RegisterUserCommand{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)

	_, err = reg.Handle(context.Background(), RegisterUserCommand{Email: "ok@example.com", Password: "short"})
	assert.ErrorIs(t, err, shared.ErrWeakPassword)
}
