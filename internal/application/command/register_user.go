package command

import (
	"context"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER / AUTHENTICATE
// ══════════════════════════════════════════════════════════════════════════════

// TokenIssuer creates access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
}

// RegisterUserCommand creates an account.
type RegisterUserCommand struct {
	Email       string
	Password    string
	DisplayName string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if _, err := user.NormalizeEmail(c.Email); err != nil {
		return err
	}
	return user.ValidatePassword(c.Password)
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	userRepo  user.Repository
	hasher    user.PasswordHasher
	tokens    TokenIssuer
	publisher shared.EventPublisher
	cfg       EngineConfig
	log       *logger.Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	userRepo user.Repository,
	hasher user.PasswordHasher,
	tokens TokenIssuer,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *RegisterUserHandler {
	return &RegisterUserHandler{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		publisher: orNopPublisher(publisher),
		cfg:       cfg.WithDefaults(),
		log:       orNop(log).With(logger.Component("registration")),
	}
}

// Handle executes the command and logs the new user in.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*AuthResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, wrapStore("register: hash password", err)
	}

	now := h.cfg.now()
	u, err := user.NewUser(user.NewUserParams{
		Email:        cmd.Email,
		PasswordHash: hash,
		DisplayName:  cmd.DisplayName,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := h.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	token, exp, err := h.tokens.Issue(u.ID)
	if err != nil {
		return nil, wrapStore("register: issue token", err)
	}

	h.log.Info("user registered", logger.UserID(u.ID))
	publish(h.log, h.publisher, shared.UserRegisteredEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventUserRegistered, u.ID, now),
		Email:     u.Email,
	})
	return &AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

// AuthenticateUserCommand is a login attempt.
type AuthenticateUserCommand struct {
	Email    string
	Password string
}

// AuthenticateUserHandler handles AuthenticateUserCommand.
type AuthenticateUserHandler struct {
	userRepo user.Repository
	hasher   user.PasswordHasher
	tokens   TokenIssuer
	log      *logger.Logger
}

// NewAuthenticateUserHandler creates a new AuthenticateUserHandler.
func NewAuthenticateUserHandler(userRepo user.Repository, hasher user.PasswordHasher, tokens TokenIssuer, log *logger.Logger) *AuthenticateUserHandler {
	return &AuthenticateUserHandler{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		log:      orNop(log).With(logger.Component("authentication")),
	}
}

// Handle verifies credentials. Unknown email and wrong password both yield
// shared.ErrInvalidCredentials.
func (h *AuthenticateUserHandler) Handle(ctx context.Context, cmd AuthenticateUserCommand) (*AuthResult, error) {
	email, err := user.NormalizeEmail(cmd.Email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	u, err := h.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, wrapStore("authenticate: load user", err)
	}
	if err := h.hasher.Compare(u.PasswordHash, cmd.Password); err != nil {
		h.log.Debug("password mismatch", logger.UserID(u.ID))
		return nil, shared.ErrInvalidCredentials
	}

	token, exp, err := h.tokens.Issue(u.ID)
	if err != nil {
		return nil, wrapStore("authenticate: issue token", err)
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}
