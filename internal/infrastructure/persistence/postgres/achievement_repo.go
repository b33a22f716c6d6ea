package postgres

import (
	"context"
	"fmt"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
)

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

var _ achievement.Repository = (*AchievementRepository)(nil)

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// ListDefinitions returns catalog rows in insertion order. Requirements are
// returned raw so malformed rows can be skipped by the caller.
func (r *AchievementRepository) ListDefinitions(ctx context.Context) ([]achievement.Record, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, type, title, description, icon, requirement
		FROM achievements
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []achievement.Record
	for rows.Next() {
		var (
			rec achievement.Record
			raw []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Description, &rec.Icon, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		rec.RequirementJSON = raw
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertDefinition inserts or replaces a catalog row.
func (r *AchievementRepository) UpsertDefinition(ctx context.Context, rec achievement.Record) error {
	query := `
		INSERT INTO achievements (id, type, title, description, icon, requirement)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			requirement = EXCLUDED.requirement
	`
	_, err := r.conn.Exec(ctx, query, rec.ID, rec.Type, rec.Title, rec.Description, rec.Icon, []byte(rec.RequirementJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert achievement %s: %w", rec.ID, err)
	}
	return nil
}

// ListForUser returns the user's achievement rows.
func (r *AchievementRepository) ListForUser(ctx context.Context, userID string) ([]achievement.UserAchievement, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT user_id, achievement_id, unlocked, unlocked_at, progress, updated_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY achievement_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	defer rows.Close()

	var out []achievement.UserAchievement
	for rows.Next() {
		var ua achievement.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.Unlocked, &ua.UnlockedAt, &ua.Progress, &ua.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

// Upsert writes a user's standing. An unlocked row stays unlocked and keeps
// its first unlock time.
func (r *AchievementRepository) Upsert(ctx context.Context, ua *achievement.UserAchievement) error {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked, unlocked_at, progress, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			unlocked = user_achievements.unlocked OR EXCLUDED.unlocked,
			unlocked_at = COALESCE(user_achievements.unlocked_at, EXCLUDED.unlocked_at),
			progress = EXCLUDED.progress,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.conn.Exec(ctx, query, ua.UserID, ua.AchievementID, ua.Unlocked, ua.UnlockedAt, ua.Progress, ua.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user achievement: %w", err)
	}
	return nil
}
