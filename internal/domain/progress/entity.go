// Package progress holds the per-user learning plan state: current day,
// streak, XP and per-task completion, plus the pure rules that move them.
package progress

import (
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

const (
	// DefaultPlanVersion is the plan every user is enrolled in.
	DefaultPlanVersion = "v1"
	// DefaultTotalDays is the length of the learning sprint.
	DefaultTotalDays = 14
)

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the per-user, per-plan progress record.
// Unique on (UserID, PlanVersion).
type UserProgress struct {
	UserID      string
	PlanVersion string
	CareerTrack string

	CurrentDay      int
	TotalDays       int
	ProgressPercent int
	StreakDays      int
	CurrentXP       int
	Level           int

	// LastActiveDate is bumped by day advancement and by streak changes.
	LastActiveDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserProgress creates the day-1 record written at onboarding.
func NewUserProgress(userID, track, planVersion string, totalDays int, now time.Time) *UserProgress {
	if planVersion == "" {
		planVersion = DefaultPlanVersion
	}
	if totalDays <= 0 {
		totalDays = DefaultTotalDays
	}
	return &UserProgress{
		UserID:          userID,
		PlanVersion:     planVersion,
		CareerTrack:     track,
		CurrentDay:      1,
		TotalDays:       totalDays,
		ProgressPercent: shared.RoundPercent(1, totalDays),
		StreakDays:      0,
		CurrentXP:       0,
		Level:           1,
		LastActiveDate:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DaysCompleted is the number of fully elapsed plan days.
func (p *UserProgress) DaysCompleted() int {
	if p.CurrentDay <= 1 {
		return 0
	}
	return p.CurrentDay - 1
}

// IsFinalDay reports whether the plan has reached its last day.
func (p *UserProgress) IsFinalDay() bool {
	return p.CurrentDay >= p.TotalDays
}

// AwardXP adds amount and recomputes the level. Returns true on level-up.
func (p *UserProgress) AwardXP(amount int) bool {
	before := p.Level
	xp := shared.XP(p.CurrentXP).Add(amount)
	p.CurrentXP = xp.Int()
	p.Level = xp.Level()
	return p.Level > before
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// TaskProgress tracks completion of one plan task by one user.
// Unique on (UserID, TaskID).
type TaskProgress struct {
	UserID      string
	TaskID      string
	Completed   bool
	CompletedAt *time.Time
	// XPAwarded is set on the first completion and never cleared.
	XPAwarded bool
	UpdatedAt time.Time
}

// Toggle sets the completion flag. It returns the XP to pay, which is reward
// only on the first ever completion.
func (t *TaskProgress) Toggle(completed bool, reward int, now time.Time) int {
	t.Completed = completed
	t.UpdatedAt = now
	if !completed {
		t.CompletedAt = nil
		return 0
	}
	t.CompletedAt = &now
	if t.XPAwarded {
		return 0
	}
	t.XPAwarded = true
	return reward
}
