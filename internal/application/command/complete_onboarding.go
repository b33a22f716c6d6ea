package command

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE ONBOARDING COMMAND
// Enrolls a learner in a career track and creates their day-1 progress record.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteOnboardingCommand selects a track for a learner.
type CompleteOnboardingCommand struct {
	UserID  string
	TrackID string
}

// Validate validates the command.
func (c CompleteOnboardingCommand) Validate() error {
	if err := requireUserID("CompleteOnboarding", c.UserID); err != nil {
		return err
	}
	if c.TrackID == "" {
		return shared.NewDomainError("command", "CompleteOnboarding", shared.ErrValidation, "track_id is required")
	}
	return nil
}

// CompleteOnboardingResult is the created progress record.
type CompleteOnboardingResult struct {
	Progress *progress.UserProgress
	Track    *plan.Track
}

// CompleteOnboardingHandler handles CompleteOnboardingCommand.
type CompleteOnboardingHandler struct {
	userRepo     user.Repository
	planRepo     plan.Repository
	progressRepo progress.Repository
	locker       progress.Locker
	publisher    shared.EventPublisher
	cfg          EngineConfig
	log          *logger.Logger
}

// NewCompleteOnboardingHandler creates a new CompleteOnboardingHandler.
func NewCompleteOnboardingHandler(
	userRepo user.Repository,
	planRepo plan.Repository,
	progressRepo progress.Repository,
	locker progress.Locker,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *CompleteOnboardingHandler {
	return &CompleteOnboardingHandler{
		userRepo:     userRepo,
		planRepo:     planRepo,
		progressRepo: progressRepo,
		locker:       orNoopLocker(locker),
		publisher:    orNopPublisher(publisher),
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("onboarding")),
	}
}

// Handle executes the command. Returns shared.ErrAlreadyOnboarded when a
// progress record already exists for the plan.
func (h *CompleteOnboardingHandler) Handle(ctx context.Context, cmd CompleteOnboardingCommand) (*CompleteOnboardingResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock, err := h.locker.Lock(ctx, progress.LockKey(cmd.UserID))
	if err != nil {
		return nil, wrapStore("onboarding: acquire lock", err)
	}
	defer unlock()

	u, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	track, err := h.planRepo.GetTrack(ctx, cmd.TrackID)
	if err != nil {
		return nil, err
	}

	if _, err := h.progressRepo.Get(ctx, cmd.UserID, h.cfg.PlanVersion); err == nil {
		return nil, shared.ErrAlreadyOnboarded
	} else if !shared.IsNotFound(err) {
		return nil, wrapStore("onboarding: check progress", err)
	}

	now := h.cfg.now()
	p := progress.NewUserProgress(cmd.UserID, track.ID, h.cfg.PlanVersion, track.TotalDays, now)
	if err := h.progressRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	u.Enroll(track.ID, now)
	if err := h.userRepo.Update(ctx, u); err != nil {
		return nil, wrapStore("onboarding: update user", err)
	}

	h.log.Info("user onboarded", logger.UserID(cmd.UserID), logger.String("track_id", track.ID), logger.PlanVersion(p.PlanVersion))
	publish(h.log, h.publisher, shared.UserOnboardedEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventUserOnboarded, cmd.UserID, now),
		TrackID:     track.ID,
		PlanVersion: p.PlanVersion,
	})

	return &CompleteOnboardingResult{Progress: p, Track: track}, nil
}
