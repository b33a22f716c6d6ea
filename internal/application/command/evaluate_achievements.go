package command

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE ACHIEVEMENTS COMMAND
// Recomputes every catalog requirement against the learner's counters and
// upserts the per-user rows. Idempotent for unchanged counters.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateAchievementsCommand identifies the learner.
type EvaluateAchievementsCommand struct {
	UserID string
}

// Validate validates the command.
func (c EvaluateAchievementsCommand) Validate() error {
	return requireUserID("EvaluateAchievements", c.UserID)
}

// EvaluateAchievementsResult summarizes an evaluation pass.
type EvaluateAchievementsResult struct {
	// NoRecord is true when the learner has no progress record.
	NoRecord      bool                     `json:"no_record,omitempty"`
	Counters      achievement.Counters     `json:"counters"`
	Evaluated     int                      `json:"evaluated"`
	Skipped       int                      `json:"skipped"`
	NewlyUnlocked []achievement.Definition `json:"newly_unlocked"`
}

// EvaluateAchievementsHandler handles EvaluateAchievementsCommand.
type EvaluateAchievementsHandler struct {
	progressRepo    progress.Repository
	taskRepo        progress.TaskRepository
	achievementRepo achievement.Repository
	publisher       shared.EventPublisher
	cfg             EngineConfig
	log             *logger.Logger
}

// NewEvaluateAchievementsHandler creates a new EvaluateAchievementsHandler.
func NewEvaluateAchievementsHandler(
	progressRepo progress.Repository,
	taskRepo progress.TaskRepository,
	achievementRepo achievement.Repository,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *EvaluateAchievementsHandler {
	return &EvaluateAchievementsHandler{
		progressRepo:    progressRepo,
		taskRepo:        taskRepo,
		achievementRepo: achievementRepo,
		publisher:       orNopPublisher(publisher),
		cfg:             cfg.WithDefaults(),
		log:             orNop(log).With(logger.Component("achievement_evaluator")),
	}
}

// Handle executes the command.
func (h *EvaluateAchievementsHandler) Handle(ctx context.Context, cmd EvaluateAchievementsCommand) (*EvaluateAchievementsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	p, err := h.progressRepo.Get(ctx, cmd.UserID, h.cfg.PlanVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return &EvaluateAchievementsResult{NoRecord: true, NewlyUnlocked: []achievement.Definition{}}, nil
		}
		return nil, wrapStore("evaluate_achievements: load progress", err)
	}

	tasksDone, err := h.taskRepo.CountCompleted(ctx, cmd.UserID)
	if err != nil {
		return nil, wrapStore("evaluate_achievements: count tasks", err)
	}

	counters := achievement.Counters{
		TasksCompleted: tasksDone,
		DaysCompleted:  p.DaysCompleted(),
		StreakDays:     p.StreakDays,
		// no source for projects yet
		ProjectsCompleted: 0,
	}

	records, err := h.achievementRepo.ListDefinitions(ctx)
	if err != nil {
		return nil, wrapStore("evaluate_achievements: load catalog", err)
	}
	defs, badRows := achievement.BuildCatalog(records)
	for _, e := range badRows {
		h.log.Warn("skipping malformed achievement rule", logger.UserID(cmd.UserID), logger.Err(e))
	}

	existing, err := h.achievementRepo.ListForUser(ctx, cmd.UserID)
	if err != nil {
		return nil, wrapStore("evaluate_achievements: load user achievements", err)
	}
	byID := make(map[string]achievement.UserAchievement, len(existing))
	for _, ua := range existing {
		byID[ua.AchievementID] = ua
	}

	now := h.cfg.now()
	res := &EvaluateAchievementsResult{
		Counters:      counters,
		Skipped:       len(badRows),
		NewlyUnlocked: []achievement.Definition{},
	}
	var events []shared.Event

	for _, def := range defs {
		ua, ok := byID[def.ID]
		if !ok {
			ua = achievement.UserAchievement{UserID: cmd.UserID, AchievementID: def.ID}
		}

		unlockedNow := ua.Apply(achievement.Assess(def.Requirement, counters), now)
		if err := h.achievementRepo.Upsert(ctx, &ua); err != nil {
			return nil, wrapStore("evaluate_achievements: upsert "+def.ID, err)
		}
		res.Evaluated++

		if unlockedNow {
			res.NewlyUnlocked = append(res.NewlyUnlocked, def)
			events = append(events, shared.AchievementUnlockedEvent{
				BaseEvent:     shared.NewBaseEvent(shared.EventAchievementUnlocked, cmd.UserID, now),
				AchievementID: def.ID,
				Title:         def.Title,
			})
			h.log.Info("achievement unlocked", logger.UserID(cmd.UserID), logger.AchievementID(def.ID))
		}
	}

	publish(h.log, h.publisher, events...)
	return res, nil
}
