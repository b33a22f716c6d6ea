package command

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVANCE DAY COMMAND
// Moves the learner's current day forward by whole 24h periods elapsed since
// their last activity. One read, at most one write, no locking of its own.
// ══════════════════════════════════════════════════════════════════════════════

// AdvanceDayCommand identifies the learner.
type AdvanceDayCommand struct {
	UserID string
}

// Validate validates the command.
func (c AdvanceDayCommand) Validate() error {
	return requireUserID("AdvanceDay", c.UserID)
}

// AdvanceDayResult describes what happened.
type AdvanceDayResult struct {
	Outcome  progress.AdvanceOutcome `json:"outcome"`
	Advanced bool                    `json:"advanced"`
	FromDay  int                     `json:"from_day,omitempty"`
	NewDay   int                     `json:"new_day,omitempty"`
	Percent  int                     `json:"progress_percent,omitempty"`
	Message  string                  `json:"message"`
}

// AdvanceDayHandler handles AdvanceDayCommand.
type AdvanceDayHandler struct {
	progressRepo progress.Repository
	publisher    shared.EventPublisher
	cfg          EngineConfig
	log          *logger.Logger
}

// NewAdvanceDayHandler creates a new AdvanceDayHandler.
func NewAdvanceDayHandler(
	progressRepo progress.Repository,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *AdvanceDayHandler {
	return &AdvanceDayHandler{
		progressRepo: progressRepo,
		publisher:    orNopPublisher(publisher),
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("day_advancement")),
	}
}

// Handle executes the command. A missing progress record is a soft no-op.
func (h *AdvanceDayHandler) Handle(ctx context.Context, cmd AdvanceDayCommand) (*AdvanceDayResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.progressRepo.Get(ctx, cmd.UserID, h.cfg.PlanVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			adv := progress.ComputeAdvancement(nil, h.cfg.now())
			return toAdvanceResult(adv), nil
		}
		return nil, wrapStore("advance_day: load progress", err)
	}

	now := h.cfg.now()
	adv := progress.ComputeAdvancement(p, now)
	if !adv.Advanced() {
		return toAdvanceResult(adv), nil
	}

	if err := h.progressRepo.UpdateDay(ctx, cmd.UserID, h.cfg.PlanVersion, adv.NewDay, adv.Percent, now); err != nil {
		return nil, wrapStore("advance_day: update progress", err)
	}

	h.log.Info("day advanced",
		logger.UserID(cmd.UserID),
		logger.Int("from_day", adv.FromDay),
		logger.Day(adv.NewDay),
		logger.Float64("hours_since", adv.HoursSince),
	)
	publish(h.log, h.publisher, shared.DayAdvancedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventDayAdvanced, cmd.UserID, now),
		FromDay:   adv.FromDay,
		ToDay:     adv.NewDay,
		Percent:   adv.Percent,
	})

	return toAdvanceResult(adv), nil
}

func toAdvanceResult(a progress.Advancement) *AdvanceDayResult {
	return &AdvanceDayResult{
		Outcome:  a.Outcome,
		Advanced: a.Advanced(),
		FromDay:  a.FromDay,
		NewDay:   a.NewDay,
		Percent:  a.Percent,
		Message:  a.Message(),
	}
}
