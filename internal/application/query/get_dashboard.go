// Package query contains read operations following CQRS pattern.
// Each query is a self-contained use case with its own request/response types.
// GetDashboard is the one exception that writes: progress is recomputed
// lazily when the learner opens the dashboard.
package query

import (
	"context"
	"sort"

	"github.com/careerwise/careerwise-hub/internal/application/command"
	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Runs day advancement, then the streak tracker, then reads the progress
// record. Failures of the first two are logged and the read still happens.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery identifies the learner.
type GetDashboardQuery struct {
	UserID string
}

// ProgressDTO is the public view of UserProgress.
type ProgressDTO struct {
	PlanVersion     string `json:"plan_version"`
	CareerTrack     string `json:"career_track"`
	CurrentDay      int    `json:"current_day"`
	TotalDays       int    `json:"total_days"`
	ProgressPercent int    `json:"progress_percent"`
	StreakDays      int    `json:"streak_days"`
	CurrentXP       int    `json:"current_xp"`
	Level           int    `json:"level"`
	LevelProgress   int    `json:"level_progress"`
	LastActiveDate  string `json:"last_active_date"`
}

// NewProgressDTO converts a record.
func NewProgressDTO(p *progress.UserProgress) ProgressDTO {
	return ProgressDTO{
		PlanVersion:     p.PlanVersion,
		CareerTrack:     p.CareerTrack,
		CurrentDay:      p.CurrentDay,
		TotalDays:       p.TotalDays,
		ProgressPercent: p.ProgressPercent,
		StreakDays:      p.StreakDays,
		CurrentXP:       p.CurrentXP,
		Level:           p.Level,
		LevelProgress:   shared.XP(p.CurrentXP).ProgressToNextLevel(),
		LastActiveDate:  p.LastActiveDate.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// GetDashboardResult is the dashboard payload.
type GetDashboardResult struct {
	Progress    ProgressDTO                `json:"progress"`
	Today       []TaskDTO                  `json:"today"`
	TodayDone   int                        `json:"today_done"`
	Recent      []AchievementDTO           `json:"recent_achievements"`
	Unlocked    int                        `json:"unlocked_achievements"`
	Advancement *command.AdvanceDayResult  `json:"advancement,omitempty"`
	Streak      *command.TrackStreakResult `json:"streak,omitempty"`
}

// GetDashboardHandler handles GetDashboardQuery.
type GetDashboardHandler struct {
	advance         *command.AdvanceDayHandler
	streak          *command.TrackStreakHandler
	progressRepo    progress.Repository
	taskRepo        progress.TaskRepository
	planRepo        plan.Repository
	achievementRepo achievement.Repository
	locker          progress.Locker
	planVersion     string
	log             *logger.Logger
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(
	advance *command.AdvanceDayHandler,
	streak *command.TrackStreakHandler,
	progressRepo progress.Repository,
	taskRepo progress.TaskRepository,
	planRepo plan.Repository,
	achievementRepo achievement.Repository,
	locker progress.Locker,
	cfg command.EngineConfig,
	log *logger.Logger,
) *GetDashboardHandler {
	if locker == nil {
		locker = progress.NoopLocker{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetDashboardHandler{
		advance:         advance,
		streak:          streak,
		progressRepo:    progressRepo,
		taskRepo:        taskRepo,
		planRepo:        planRepo,
		achievementRepo: achievementRepo,
		locker:          locker,
		planVersion:     cfg.WithDefaults().PlanVersion,
		log:             log.With(logger.Component("dashboard")),
	}
}

// Handle runs the lazy recompute and returns the dashboard.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*GetDashboardResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetDashboard", shared.ErrValidation, "user_id is required")
	}

	res := &GetDashboardResult{Today: []TaskDTO{}, Recent: []AchievementDTO{}}

	p, err := h.recompute(ctx, q.UserID, res)
	if err != nil {
		return nil, err
	}
	res.Progress = NewProgressDTO(p)

	tasks, err := h.planRepo.ListTasks(ctx, p.CareerTrack, p.CurrentDay)
	if err != nil {
		return nil, err
	}
	done, err := completedTasks(ctx, h.taskRepo, q.UserID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		dto := newTaskDTO(t, done, p.CurrentDay)
		if dto.Completed {
			res.TodayDone++
		}
		res.Today = append(res.Today, dto)
	}

	list, err := achievementList(ctx, h.achievementRepo, q.UserID, h.log)
	if err != nil {
		return nil, err
	}
	unlocked := make([]AchievementDTO, 0, len(list))
	for _, a := range list {
		if a.Unlocked {
			unlocked = append(unlocked, a)
		}
	}
	sort.SliceStable(unlocked, func(i, j int) bool {
		return unlocked[i].UnlockedAt.After(*unlocked[j].UnlockedAt)
	})
	res.Unlocked = len(unlocked)
	if len(unlocked) > 3 {
		unlocked = unlocked[:3]
	}
	res.Recent = unlocked

	return res, nil
}

// recompute advances the day and tracks the streak under the learner's lock,
// then reads the record.
func (h *GetDashboardHandler) recompute(ctx context.Context, userID string, res *GetDashboardResult) (*progress.UserProgress, error) {
	unlock, err := h.locker.Lock(ctx, progress.LockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	adv, err := h.advance.Handle(ctx, command.AdvanceDayCommand{UserID: userID})
	if err != nil {
		h.log.Error("day advancement failed", logger.UserID(userID), logger.Err(err))
	}
	res.Advancement = adv

	st, err := h.streak.Handle(ctx, command.TrackStreakCommand{UserID: userID})
	if err != nil {
		h.log.Error("streak tracking failed", logger.UserID(userID), logger.Err(err))
	}
	res.Streak = st

	p, err := h.progressRepo.Get(ctx, userID, h.planVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotOnboarded
		}
		return nil, err
	}
	return p, nil
}
