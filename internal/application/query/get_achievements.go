package query

import (
	"context"
	"fmt"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Joins the catalog with the learner's rows. Entries the learner never
// touched show zero progress.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery identifies the learner.
type GetAchievementsQuery struct {
	UserID string
}

// AchievementDTO is a catalog entry with the learner's standing.
type AchievementDTO struct {
	ID          string                  `json:"id"`
	Type        string                  `json:"type"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Icon        string                  `json:"icon"`
	Requirement achievement.Requirement `json:"requirement"`
	Unlocked    bool                    `json:"unlocked"`
	UnlockedAt  *time.Time              `json:"unlocked_at,omitempty"`
	Progress    int                     `json:"progress"`
}

// GetAchievementsResult is the learner's achievement list.
type GetAchievementsResult struct {
	Achievements []AchievementDTO `json:"achievements"`
	Unlocked     int              `json:"unlocked"`
	Total        int              `json:"total"`
}

// GetAchievementsHandler handles GetAchievementsQuery.
type GetAchievementsHandler struct {
	repo achievement.Repository
	log  *logger.Logger
}

// NewGetAchievementsHandler creates a new GetAchievementsHandler.
func NewGetAchievementsHandler(repo achievement.Repository, log *logger.Logger) *GetAchievementsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetAchievementsHandler{repo: repo, log: log}
}

// Handle executes the query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*GetAchievementsResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetAchievements", shared.ErrValidation, "user_id is required")
	}

	list, err := achievementList(ctx, h.repo, q.UserID, h.log)
	if err != nil {
		return nil, err
	}
	res := &GetAchievementsResult{Achievements: list, Total: len(list)}
	for _, a := range list {
		if a.Unlocked {
			res.Unlocked++
		}
	}
	return res, nil
}

// achievementList returns the catalog in stored order joined with the
// learner's rows. Malformed catalog rows are logged and left out.
func achievementList(ctx context.Context, repo achievement.Repository, userID string, log *logger.Logger) ([]AchievementDTO, error) {
	records, err := repo.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defs, bad := achievement.BuildCatalog(records)
	for _, e := range bad {
		log.Warn("skipping malformed achievement rule", logger.Err(e))
	}

	rows, err := repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user achievements: %w", err)
	}
	byID := make(map[string]achievement.UserAchievement, len(rows))
	for _, r := range rows {
		byID[r.AchievementID] = r
	}

	out := make([]AchievementDTO, 0, len(defs))
	for _, d := range defs {
		dto := AchievementDTO{
			ID:          d.ID,
			Type:        d.Type,
			Title:       d.Title,
			Description: d.Description,
			Icon:        d.Icon,
			Requirement: d.Requirement,
		}
		if r, ok := byID[d.ID]; ok {
			dto.Unlocked = r.Unlocked
			dto.UnlockedAt = r.UnlockedAt
			dto.Progress = r.Progress
		}
		out = append(out, dto)
	}
	return out, nil
}
