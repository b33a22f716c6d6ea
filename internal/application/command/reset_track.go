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
// RESET TRACK COMMAND
// Restarts the plan, optionally on a different career track. Task progress and
// the progress record are dropped and recreated at day 1. Earned
// achievements are kept.
// ══════════════════════════════════════════════════════════════════════════════

// ResetTrackCommand restarts a learner's plan. Empty TrackID keeps the current track.
type ResetTrackCommand struct {
	UserID  string
	TrackID string
}

// Validate validates the command.
func (c ResetTrackCommand) Validate() error {
	return requireUserID("ResetTrack", c.UserID)
}

// ResetTrackHandler handles ResetTrackCommand.
type ResetTrackHandler struct {
	userRepo     user.Repository
	planRepo     plan.Repository
	progressRepo progress.Repository
	locker       progress.Locker
	publisher    shared.EventPublisher
	cfg          EngineConfig
	log          *logger.Logger
}

// NewResetTrackHandler creates a new ResetTrackHandler.
func NewResetTrackHandler(
	userRepo user.Repository,
	planRepo plan.Repository,
	progressRepo progress.Repository,
	locker progress.Locker,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *ResetTrackHandler {
	return &ResetTrackHandler{
		userRepo:     userRepo,
		planRepo:     planRepo,
		progressRepo: progressRepo,
		locker:       orNoopLocker(locker),
		publisher:    orNopPublisher(publisher),
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("track_reset")),
	}
}

// Handle executes the command.
func (h *ResetTrackHandler) Handle(ctx context.Context, cmd ResetTrackCommand) (*progress.UserProgress, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock, err := h.locker.Lock(ctx, progress.LockKey(cmd.UserID))
	if err != nil {
		return nil, wrapStore("reset_track: acquire lock", err)
	}
	defer unlock()

	u, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	trackID := cmd.TrackID
	if trackID == "" {
		trackID = u.CareerTrack
	}
	if trackID == "" {
		return nil, shared.ErrNotOnboarded
	}
	track, err := h.planRepo.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	now := h.cfg.now()
	p := progress.NewUserProgress(cmd.UserID, track.ID, h.cfg.PlanVersion, track.TotalDays, now)
	if err := h.progressRepo.Restart(ctx, p); err != nil {
		return nil, wrapStore("reset_track: restart progress", err)
	}

	u.Enroll(track.ID, now)
	if err := h.userRepo.Update(ctx, u); err != nil {
		return nil, wrapStore("reset_track: update user", err)
	}

	h.log.Info("track reset", logger.UserID(cmd.UserID), logger.String("track_id", track.ID))
	publish(h.log, h.publisher, shared.TrackResetEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTrackReset, cmd.UserID, now),
		TrackID:   track.ID,
	})
	return p, nil
}
