package command

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE TASK COMMAND
// Marks a plan task done or not done. The first completion of a task pays its
// XP reward; un-completing never takes XP back. Achievements are evaluated
// after every toggle.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleTaskCommand sets the completion flag of one task.
type ToggleTaskCommand struct {
	UserID    string
	TaskID    string
	Completed bool
}

// Validate validates the command.
func (c ToggleTaskCommand) Validate() error {
	if err := requireUserID("ToggleTask", c.UserID); err != nil {
		return err
	}
	if c.TaskID == "" {
		return shared.NewDomainError("command", "ToggleTask", shared.ErrValidation, "task_id is required")
	}
	return nil
}

// ToggleTaskResult describes the new task and XP state.
type ToggleTaskResult struct {
	TaskID        string                   `json:"task_id"`
	Completed     bool                     `json:"completed"`
	XPAwarded     int                      `json:"xp_awarded"`
	CurrentXP     int                      `json:"current_xp"`
	Level         int                      `json:"level"`
	LevelUp       bool                     `json:"level_up"`
	NewlyUnlocked []achievement.Definition `json:"newly_unlocked"`
}

// ToggleTaskHandler handles ToggleTaskCommand.
type ToggleTaskHandler struct {
	planRepo     plan.Repository
	progressRepo progress.Repository
	taskRepo     progress.TaskRepository
	evaluator    *EvaluateAchievementsHandler
	locker       progress.Locker
	publisher    shared.EventPublisher
	cfg          EngineConfig
	log          *logger.Logger
}

// NewToggleTaskHandler creates a new ToggleTaskHandler.
func NewToggleTaskHandler(
	planRepo plan.Repository,
	progressRepo progress.Repository,
	taskRepo progress.TaskRepository,
	evaluator *EvaluateAchievementsHandler,
	locker progress.Locker,
	publisher shared.EventPublisher,
	cfg EngineConfig,
	log *logger.Logger,
) *ToggleTaskHandler {
	return &ToggleTaskHandler{
		planRepo:     planRepo,
		progressRepo: progressRepo,
		taskRepo:     taskRepo,
		evaluator:    evaluator,
		locker:       orNoopLocker(locker),
		publisher:    orNopPublisher(publisher),
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("task_toggle")),
	}
}

// Handle executes the command under the learner's progress lock.
func (h *ToggleTaskHandler) Handle(ctx context.Context, cmd ToggleTaskCommand) (*ToggleTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock, err := h.locker.Lock(ctx, progress.LockKey(cmd.UserID))
	if err != nil {
		return nil, wrapStore("toggle_task: acquire lock", err)
	}
	defer unlock()

	p, err := h.progressRepo.Get(ctx, cmd.UserID, h.cfg.PlanVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotOnboarded
		}
		return nil, wrapStore("toggle_task: load progress", err)
	}

	task, err := h.planRepo.GetTask(ctx, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	if task.TrackID != p.CareerTrack {
		return nil, shared.ErrTaskNotFound
	}
	if task.Day > p.CurrentDay {
		return nil, shared.ErrTaskLocked
	}

	tp, err := h.taskRepo.Get(ctx, cmd.UserID, cmd.TaskID)
	if err != nil {
		return nil, wrapStore("toggle_task: load task progress", err)
	}
	if tp == nil {
		tp = &progress.TaskProgress{UserID: cmd.UserID, TaskID: cmd.TaskID}
	}

	now := h.cfg.now()
	reward := tp.Toggle(cmd.Completed, task.XPReward, now)
	if err := h.taskRepo.Upsert(ctx, tp); err != nil {
		return nil, wrapStore("toggle_task: save task progress", err)
	}

	res := &ToggleTaskResult{
		TaskID:        cmd.TaskID,
		Completed:     tp.Completed,
		XPAwarded:     reward,
		CurrentXP:     p.CurrentXP,
		Level:         p.Level,
		NewlyUnlocked: []achievement.Definition{},
	}
	events := []shared.Event{shared.TaskToggledEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTaskToggled, cmd.UserID, now),
		TaskID:    cmd.TaskID,
		Completed: tp.Completed,
	}}

	if reward > 0 {
		res.LevelUp = p.AwardXP(reward)
		if err := h.progressRepo.UpdateXP(ctx, cmd.UserID, h.cfg.PlanVersion, p.CurrentXP, p.Level); err != nil {
			return nil, wrapStore("toggle_task: update xp", err)
		}
		res.CurrentXP = p.CurrentXP
		res.Level = p.Level
		events = append(events, shared.XPGainedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventXPGained, cmd.UserID, now),
			Amount:    reward,
			NewTotal:  p.CurrentXP,
			NewLevel:  p.Level,
			LevelUp:   res.LevelUp,
			TaskID:    cmd.TaskID,
		})
	}

	h.log.Info("task toggled",
		logger.UserID(cmd.UserID),
		logger.TaskID(cmd.TaskID),
		logger.Bool("completed", tp.Completed),
		logger.XPAmount(reward),
	)
	publish(h.log, h.publisher, events...)

	if h.evaluator != nil {
		eval, err := h.evaluator.Handle(ctx, EvaluateAchievementsCommand{UserID: cmd.UserID})
		if err != nil {
			h.log.Error("achievement evaluation failed after toggle", logger.UserID(cmd.UserID), logger.Err(err))
		} else {
			res.NewlyUnlocked = eval.NewlyUnlocked
		}
	}

	return res, nil
}
