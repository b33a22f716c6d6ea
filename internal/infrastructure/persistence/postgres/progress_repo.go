package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

var _ progress.Repository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Get returns the record for (userID, planVersion).
func (r *ProgressRepository) Get(ctx context.Context, userID, planVersion string) (*progress.UserProgress, error) {
	query := `
		SELECT user_id, plan_version, career_track, current_day, total_days,
			   progress_percent, streak_days, current_xp, level, last_active_date,
			   created_at, updated_at
		FROM user_progress
		WHERE user_id = $1 AND plan_version = $2
	`
	var (
		p          progress.UserProgress
		lastActive *time.Time
	)
	err := r.conn.QueryRow(ctx, query, userID, planVersion).Scan(
		&p.UserID,
		&p.PlanVersion,
		&p.CareerTrack,
		&p.CurrentDay,
		&p.TotalDays,
		&p.ProgressPercent,
		&p.StreakDays,
		&p.CurrentXP,
		&p.Level,
		&lastActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if lastActive != nil {
		p.LastActiveDate = *lastActive
	}
	return &p, nil
}

const insertProgressSQL = `
	INSERT INTO user_progress (
		user_id, plan_version, career_track, current_day, total_days,
		progress_percent, streak_days, current_xp, level, last_active_date,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func progressArgs(p *progress.UserProgress) []any {
	return []any{
		p.UserID,
		p.PlanVersion,
		p.CareerTrack,
		p.CurrentDay,
		p.TotalDays,
		p.ProgressPercent,
		p.StreakDays,
		p.CurrentXP,
		p.Level,
		nullableTime(p.LastActiveDate),
		p.CreatedAt,
		p.UpdatedAt,
	}
}

// Create inserts the onboarding record.
func (r *ProgressRepository) Create(ctx context.Context, p *progress.UserProgress) error {
	if _, err := r.conn.Exec(ctx, insertProgressSQL, progressArgs(p)...); err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyOnboarded
		}
		return fmt.Errorf("failed to create progress: %w", err)
	}
	return nil
}

// Restart clears the user's task progress and swaps in p in one transaction.
func (r *ProgressRepository) Restart(ctx context.Context, p *progress.UserProgress) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM task_progress WHERE user_id = $1`, p.UserID); err != nil {
			return fmt.Errorf("delete task progress: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_progress WHERE user_id = $1 AND plan_version = $2`,
			p.UserID, p.PlanVersion,
		); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if _, err := tx.Exec(ctx, insertProgressSQL, progressArgs(p)...); err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restart progress: %w", err)
	}
	return nil
}

// UpdateDay writes day, percent and last activity.
func (r *ProgressRepository) UpdateDay(ctx context.Context, userID, planVersion string, day, percent int, lastActive time.Time) error {
	query := `
		UPDATE user_progress SET
			current_day = $1,
			progress_percent = $2,
			last_active_date = $3,
			updated_at = NOW()
		WHERE user_id = $4 AND plan_version = $5
	`
	return r.update(ctx, "day", query, day, percent, lastActive, userID, planVersion)
}

// UpdateStreak writes the streak and last activity.
func (r *ProgressRepository) UpdateStreak(ctx context.Context, userID, planVersion string, streak int, lastActive time.Time) error {
	query := `
		UPDATE user_progress SET
			streak_days = $1,
			last_active_date = $2,
			updated_at = NOW()
		WHERE user_id = $3 AND plan_version = $4
	`
	return r.update(ctx, "streak", query, streak, lastActive, userID, planVersion)
}

// UpdateXP writes XP and level.
func (r *ProgressRepository) UpdateXP(ctx context.Context, userID, planVersion string, xp, level int) error {
	query := `
		UPDATE user_progress SET
			current_xp = $1,
			level = $2,
			updated_at = NOW()
		WHERE user_id = $3 AND plan_version = $4
	`
	return r.update(ctx, "xp", query, xp, level, userID, planVersion)
}

func (r *ProgressRepository) update(ctx context.Context, what, query string, args ...interface{}) error {
	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update progress %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}
	return nil
}

// Delete removes the record.
func (r *ProgressRepository) Delete(ctx context.Context, userID, planVersion string) error {
	_, err := r.conn.Exec(ctx,
		`DELETE FROM user_progress WHERE user_id = $1 AND plan_version = $2`,
		userID, planVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

// TopByXP lists the highest-XP learners on planVersion, joined with their
// display names.
func (r *ProgressRepository) TopByXP(ctx context.Context, planVersion, excludeUserID string, limit int) ([]progress.Ranked, error) {
	if limit <= 0 {
		return []progress.Ranked{}, nil
	}
	query := `
		SELECT p.user_id, u.display_name, p.current_xp, p.level
		FROM user_progress p
		JOIN users u ON u.id = p.user_id
		WHERE p.plan_version = $1 AND p.user_id::text <> $2
		ORDER BY p.current_xp DESC, p.user_id
		LIMIT $3
	`
	rows, err := r.conn.Query(ctx, query, planVersion, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top learners: %w", err)
	}
	defer rows.Close()

	out := make([]progress.Ranked, 0, limit)
	for rows.Next() {
		var rk progress.Ranked
		if err := rows.Scan(&rk.UserID, &rk.DisplayName, &rk.CurrentXP, &rk.Level); err != nil {
			return nil, fmt.Errorf("failed to scan ranked row: %w", err)
		}
		out = append(out, rk)
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// TaskProgressRepository implements progress.TaskRepository for PostgreSQL.
type TaskProgressRepository struct {
	conn *Connection
}

var _ progress.TaskRepository = (*TaskProgressRepository)(nil)

// NewTaskProgressRepository creates a new TaskProgressRepository.
func NewTaskProgressRepository(conn *Connection) *TaskProgressRepository {
	return &TaskProgressRepository{conn: conn}
}

const taskProgressColumns = `user_id, task_id, completed, completed_at, xp_awarded, updated_at`

// Get returns (nil, nil) when no row exists.
func (r *TaskProgressRepository) Get(ctx context.Context, userID, taskID string) (*progress.TaskProgress, error) {
	row := r.conn.QueryRow(ctx,
		`SELECT `+taskProgressColumns+` FROM task_progress WHERE user_id = $1 AND task_id = $2`,
		userID, taskID,
	)
	t, err := scanTaskProgress(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task progress: %w", err)
	}
	return t, nil
}

// Upsert inserts or overwrites a row. xp_awarded is sticky.
func (r *TaskProgressRepository) Upsert(ctx context.Context, t *progress.TaskProgress) error {
	query := `
		INSERT INTO task_progress (` + taskProgressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, task_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			xp_awarded = task_progress.xp_awarded OR EXCLUDED.xp_awarded,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.conn.Exec(ctx, query, t.UserID, t.TaskID, t.Completed, t.CompletedAt, t.XPAwarded, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert task progress: %w", err)
	}
	return nil
}

// ListByUser returns every row for the user.
func (r *TaskProgressRepository) ListByUser(ctx context.Context, userID string) ([]progress.TaskProgress, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT `+taskProgressColumns+` FROM task_progress WHERE user_id = $1 ORDER BY task_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list task progress: %w", err)
	}
	defer rows.Close()

	var out []progress.TaskProgress
	for rows.Next() {
		t, err := scanTaskProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task progress: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountCompleted counts completed rows.
func (r *TaskProgressRepository) CountCompleted(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_progress WHERE user_id = $1 AND completed`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return n, nil
}

// DeleteByUser removes all rows for the user.
func (r *TaskProgressRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM task_progress WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete task progress: %w", err)
	}
	return nil
}

func scanTaskProgress(row pgx.Row) (*progress.TaskProgress, error) {
	var t progress.TaskProgress
	if err := row.Scan(&t.UserID, &t.TaskID, &t.Completed, &t.CompletedAt, &t.XPAwarded, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
