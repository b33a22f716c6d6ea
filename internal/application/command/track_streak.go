package command

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK STREAK COMMAND
// Compares the calendar day of the last activity with today and bumps or
// resets the streak. Any change triggers achievement evaluation inline.
// ══════════════════════════════════════════════════════════════════════════════

// TrackStreakCommand identifies the learner.
type TrackStreakCommand struct {
	UserID string
}

// Validate validates the command.
func (c TrackStreakCommand) Validate() error {
	return requireUserID("TrackStreak", c.UserID)
}

// TrackStreakResult describes the streak change.
type TrackStreakResult struct {
	NoRecord   bool `json:"no_record,omitempty"`
	Changed    bool `json:"changed"`
	Previous   int  `json:"previous"`
	StreakDays int  `json:"streak_days"`
	Broken     bool `json:"broken"`
	// Achievements is set when the change triggered an evaluation.
	Achievements *EvaluateAchievementsResult `json:"achievements,omitempty"`
}

// TrackStreakHandler handles TrackStreakCommand.
type TrackStreakHandler struct {
	progressRepo progress.Repository
	evaluator    *EvaluateAchievementsHandler
	publisher    shared.EventPublisher
	cfg          EngineConfig
	log          *logger.Logger
}

// NewTrackStreakHandler creates a new TrackStreakHandler.
func NewTrackStreakHandler(
	progressRepo progress.Repository,
	evaluator *EvaluateAchievementsHandler,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *TrackStreakHandler {
	return &TrackStreakHandler{
		progressRepo: progressRepo,
		evaluator:    evaluator,
		publisher:    orNopPublisher(publisher),
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("streak_tracker")),
	}
}

// Handle executes the command. When the streak was persisted but evaluation
// failed, both the result and the evaluation error are returned.
func (h *TrackStreakHandler) Handle(ctx context.Context, cmd TrackStreakCommand) (*TrackStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.progressRepo.Get(ctx, cmd.UserID, h.cfg.PlanVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return &TrackStreakResult{NoRecord: true}, nil
		}
		return nil, wrapStore("track_streak: load progress", err)
	}

	now := h.cfg.now()
	change := progress.ComputeStreak(p, now, h.cfg.Location)
	res := &TrackStreakResult{
		Changed:    change.Changed,
		Previous:   change.Previous,
		StreakDays: change.Current,
		Broken:     change.Broken,
	}
	if !change.Changed {
		return res, nil
	}

	if err := h.progressRepo.UpdateStreak(ctx, cmd.UserID, h.cfg.PlanVersion, change.Current, now); err != nil {
		return nil, wrapStore("track_streak: update progress", err)
	}

	h.log.Info("streak updated",
		logger.UserID(cmd.UserID),
		logger.Int("previous", change.Previous),
		logger.Streak(change.Current),
		logger.Int("day_gap", change.DayGap),
	)
	publish(h.log, h.publisher, shared.StreakUpdatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakUpdated, cmd.UserID, now),
		Previous:  change.Previous,
		Current:   change.Current,
		Broken:    change.Broken,
	})

	if h.evaluator == nil {
		return res, nil
	}
	eval, err := h.evaluator.Handle(ctx, EvaluateAchievementsCommand{UserID: cmd.UserID})
	if err != nil {
		return res, err
	}
	res.Achievements = eval
	return res, nil
}
