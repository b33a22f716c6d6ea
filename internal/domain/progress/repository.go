package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores UserProgress records.
type Repository interface {
	// Get returns shared.ErrProgressNotFound when no record exists.
	Get(ctx context.Context, userID, planVersion string) (*UserProgress, error)

	// Create returns shared.ErrAlreadyOnboarded on a duplicate (user, plan).
	Create(ctx context.Context, p *UserProgress) error

	// UpdateDay writes the day-advancement fields only.
	UpdateDay(ctx context.Context, userID, planVersion string, day, percent int, lastActive time.Time) error

	// UpdateStreak writes the streak fields only.
	UpdateStreak(ctx context.Context, userID, planVersion string, streak int, lastActive time.Time) error

	// UpdateXP writes the XP and level fields only.
	UpdateXP(ctx context.Context, userID, planVersion string, xp, level int) error

	// Delete removes the record. Missing records are not an error.
	Delete(ctx context.Context, userID, planVersion string) error

	// Restart atomically deletes all of p.UserID's task progress and replaces
	// the record for p.PlanVersion with p. On error nothing changes.
	Restart(ctx context.Context, p *UserProgress) error

	// TopByXP lists the highest-XP records excluding one user, for peer comparison.
	TopByXP(ctx context.Context, planVersion, excludeUserID string, limit int) ([]Ranked, error)
}

// Ranked is a progress row joined with the owner's display name.
type Ranked struct {
	UserID      string
	DisplayName string
	CurrentXP   int
	Level       int
}

// TaskRepository stores TaskProgress records.
type TaskRepository interface {
	// Get returns (nil, nil) when the user never toggled the task.
	Get(ctx context.Context, userID, taskID string) (*TaskProgress, error)

	Upsert(ctx context.Context, t *TaskProgress) error

	ListByUser(ctx context.Context, userID string) ([]TaskProgress, error)

	// CountCompleted counts rows with Completed = true.
	CountCompleted(ctx context.Context, userID string) (int, error)

	DeleteByUser(ctx context.Context, userID string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCKING
// ══════════════════════════════════════════════════════════════════════════════

// Locker serializes read-modify-write sequences on one user's progress.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockKey returns the per-user progress lock key.
func LockKey(userID string) string {
	return "progress:" + userID
}

// NoopLocker never blocks.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
