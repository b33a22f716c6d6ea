package query

import (
	"context"
	"fmt"

	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TASKS QUERY
// Lists one day of the learner's track with completion and lock flags.
// ══════════════════════════════════════════════════════════════════════════════

// GetTasksQuery selects a day. Day 0 means the learner's current day.
type GetTasksQuery struct {
	UserID string
	Day    int
}

// TaskDTO is a plan task as seen by one learner.
type TaskDTO struct {
	ID               string `json:"id"`
	Day              int    `json:"day"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Kind             string `json:"kind"`
	XPReward         int    `json:"xp_reward"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Completed        bool   `json:"completed"`
	Locked           bool   `json:"locked"`
}

func newTaskDTO(t plan.Task, done map[string]struct{}, currentDay int) TaskDTO {
	_, ok := done[t.ID]
	return TaskDTO{
		ID:               t.ID,
		Day:              t.Day,
		Title:            t.Title,
		Description:      t.Description,
		Kind:             string(t.Kind),
		XPReward:         t.XPReward,
		EstimatedMinutes: t.EstimatedMinutes,
		Completed:        ok,
		Locked:           t.Day > currentDay,
	}
}

// GetTasksResult is one day of tasks.
type GetTasksResult struct {
	Day        int       `json:"day"`
	CurrentDay int       `json:"current_day"`
	TotalDays  int       `json:"total_days"`
	Completed  int       `json:"completed"`
	Tasks      []TaskDTO `json:"tasks"`
}

// GetTasksHandler handles GetTasksQuery.
type GetTasksHandler struct {
	planRepo     plan.Repository
	progressRepo progress.Repository
	taskRepo     progress.TaskRepository
	planVersion  string
}

// NewGetTasksHandler creates a new GetTasksHandler.
func NewGetTasksHandler(planRepo plan.Repository, progressRepo progress.Repository, taskRepo progress.TaskRepository, planVersion string) *GetTasksHandler {
	if planVersion == "" {
		planVersion = progress.DefaultPlanVersion
	}
	return &GetTasksHandler{planRepo: planRepo, progressRepo: progressRepo, taskRepo: taskRepo, planVersion: planVersion}
}

// Handle executes the query.
func (h *GetTasksHandler) Handle(ctx context.Context, q GetTasksQuery) (*GetTasksResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetTasks", shared.ErrValidation, "user_id is required")
	}

	p, err := loadProgress(ctx, h.progressRepo, q.UserID, h.planVersion)
	if err != nil {
		return nil, err
	}

	day := q.Day
	if day == 0 {
		day = p.CurrentDay
	}
	if day < 1 || day > p.TotalDays {
		return nil, shared.ErrInvalidDay
	}

	tasks, err := h.planRepo.ListTasks(ctx, p.CareerTrack, day)
	if err != nil {
		return nil, err
	}
	done, err := completedTasks(ctx, h.taskRepo, q.UserID)
	if err != nil {
		return nil, err
	}

	res := &GetTasksResult{Day: day, CurrentDay: p.CurrentDay, TotalDays: p.TotalDays, Tasks: make([]TaskDTO, 0, len(tasks))}
	for _, t := range tasks {
		dto := newTaskDTO(t, done, p.CurrentDay)
		if dto.Completed {
			res.Completed++
		}
		res.Tasks = append(res.Tasks, dto)
	}
	return res, nil
}

// loadProgress maps a missing record to shared.ErrNotOnboarded.
func loadProgress(ctx context.Context, repo progress.Repository, userID, planVersion string) (*progress.UserProgress, error) {
	p, err := repo.Get(ctx, userID, planVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotOnboarded
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

// completedTasks returns the ids of the learner's completed tasks.
func completedTasks(ctx context.Context, repo progress.TaskRepository, userID string) (map[string]struct{}, error) {
	rows, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load task progress: %w", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.Completed {
			out[r.TaskID] = struct{}{}
		}
	}
	return out, nil
}
