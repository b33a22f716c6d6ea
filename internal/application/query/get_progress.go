package query

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Plain read of the progress record. Unlike the dashboard it never advances
// the day or touches the streak.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery identifies the learner.
type GetProgressQuery struct {
	UserID string
}

// GetProgressResult wraps the record with task totals.
type GetProgressResult struct {
	Progress       ProgressDTO `json:"progress"`
	TasksCompleted int         `json:"tasks_completed"`
	TasksTotal     int         `json:"tasks_total"`
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	progressRepo progress.Repository
	taskRepo     progress.TaskRepository
	planRepo     plan.Repository
	planVersion  string
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(progressRepo progress.Repository, taskRepo progress.TaskRepository, planRepo plan.Repository, planVersion string) *GetProgressHandler {
	if planVersion == "" {
		planVersion = progress.DefaultPlanVersion
	}
	return &GetProgressHandler{progressRepo: progressRepo, taskRepo: taskRepo, planRepo: planRepo, planVersion: planVersion}
}

// Handle executes the query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetProgress", shared.ErrValidation, "user_id is required")
	}

	p, err := loadProgress(ctx, h.progressRepo, q.UserID, h.planVersion)
	if err != nil {
		return nil, err
	}
	done, err := h.taskRepo.CountCompleted(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	tasks, err := h.planRepo.ListTasks(ctx, p.CareerTrack, 0)
	if err != nil {
		return nil, err
	}

	return &GetProgressResult{
		Progress:       NewProgressDTO(p),
		TasksCompleted: done,
		TasksTotal:     len(tasks),
	}, nil
}
