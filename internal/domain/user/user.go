// Package user defines learner accounts.
package user

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// User is a learner account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	// CareerTrack is empty until onboarding.
	CareerTrack string
	OnboardedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUserParams holds the inputs for NewUser.
type NewUserParams struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Now          time.Time
}

// NewUser builds a validated, not yet onboarded account.
func NewUser(p NewUserParams) (*User, error) {
	email, err := NormalizeEmail(p.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return &User{
		ID:           shared.NewUserID().String(),
		Email:        email,
		PasswordHash: p.PasswordHash,
		DisplayName:  name,
		CreatedAt:    p.Now,
		UpdatedAt:    p.Now,
	}, nil
}

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", shared.ErrInvalidEmail
	}
	return s, nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return shared.ErrWeakPassword
	}
	return nil
}

// IsOnboarded reports whether the user picked a career track.
func (u *User) IsOnboarded() bool {
	return u.CareerTrack != "" && u.OnboardedAt != nil
}

// Enroll records the chosen track.
func (u *User) Enroll(trackID string, now time.Time) {
	u.CareerTrack = trackID
	if u.OnboardedAt == nil {
		u.OnboardedAt = &now
	}
	u.UpdatedAt = now
}

// Repository stores accounts.
type Repository interface {
	// Create returns shared.ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *User) error
	// GetByID returns shared.ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail returns shared.ErrUserNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
