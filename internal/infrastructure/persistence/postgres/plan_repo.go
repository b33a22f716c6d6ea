package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// PlanRepository implements plan.Repository for PostgreSQL.
type PlanRepository struct {
	conn *Connection
}

var _ plan.Repository = (*PlanRepository)(nil)

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(conn *Connection) *PlanRepository {
	return &PlanRepository{conn: conn}
}

// ListTracks returns all tracks ordered by ID.
func (r *PlanRepository) ListTracks(ctx context.Context) ([]plan.Track, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, title, description, total_days FROM tracks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var out []plan.Track
	for rows.Next() {
		var t plan.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.TotalDays); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTrack returns a track by ID.
func (r *PlanRepository) GetTrack(ctx context.Context, id string) (*plan.Track, error) {
	var t plan.Track
	err := r.conn.QueryRow(ctx,
		`SELECT id, title, description, total_days FROM tracks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.TotalDays)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return &t, nil
}

const taskColumns = `id, track_id, day, title, description, kind, xp_reward, estimated_minutes`

// ListTasks returns tasks for one day, or the whole track when day is 0.
func (r *PlanRepository) ListTasks(ctx context.Context, trackID string, day int) ([]plan.Task, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if day == 0 {
		rows, err = r.conn.Query(ctx,
			`SELECT `+taskColumns+` FROM plan_tasks WHERE track_id = $1 ORDER BY day, id`, trackID)
	} else {
		rows, err = r.conn.Query(ctx,
			`SELECT `+taskColumns+` FROM plan_tasks WHERE track_id = $1 AND day = $2 ORDER BY id`, trackID, day)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []plan.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetTask returns a task by ID.
func (r *PlanRepository) GetTask(ctx context.Context, id string) (*plan.Task, error) {
	t, err := scanTask(r.conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM plan_tasks WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpsertTrack replaces a track and its task list in one transaction.
func (r *PlanRepository) UpsertTrack(ctx context.Context, t plan.Track, tasks []plan.Task) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tracks (id, title, description, total_days)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				total_days = EXCLUDED.total_days
		`, t.ID, t.Title, t.Description, t.TotalDays)
		if err != nil {
			return fmt.Errorf("failed to upsert track %s: %w", t.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM plan_tasks WHERE track_id = $1`, t.ID); err != nil {
			return fmt.Errorf("failed to clear tasks for %s: %w", t.ID, err)
		}

		batch := &pgx.Batch{}
		for _, task := range tasks {
			batch.Queue(`INSERT INTO plan_tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				task.ID, t.ID, task.Day, task.Title, task.Description, string(task.Kind), task.XPReward, task.EstimatedMinutes)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert tasks for %s: %w", t.ID, err)
		}
		return nil
	})
}

func scanTask(row pgx.Row) (*plan.Task, error) {
	var (
		t    plan.Task
		kind string
	)
	if err := row.Scan(&t.ID, &t.TrackID, &t.Day, &t.Title, &t.Description, &kind, &t.XPReward, &t.EstimatedMinutes); err != nil {
		return nil, err
	}
	t.Kind = plan.TaskKind(kind)
	return &t, nil
}
