package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

func TestCompleteOnboarding(t *testing.T) {
	f := newFixture(t)
	h := NewCompleteOnboardingHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	ctx := context.Background()

	res, err := h.Handle(ctx, CompleteOnboardingCommand{UserID: testUser, TrackID: testTrack})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Progress.CurrentDay)
	assert.Equal(t, 14, res.Progress.TotalDays)
	assert.Equal(t, 0, res.Progress.StreakDays)
	assert.Equal(t, 1, res.Progress.Level)
	assert.Equal(t, progress.DefaultPlanVersion, res.Progress.PlanVersion)

	u, err := f.store.Users().GetByID(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, testTrack, u.CareerTrack)
	assert.True(t, u.IsOnboarded())

	_, err = h.Handle(ctx, CompleteOnboardingCommand{UserID: testUser, TrackID: testTrack})
	assert.ErrorIs(t, err, shared.ErrAlreadyOnboarded)
	assert.Contains(t, f.bus.types(), shared.EventUserOnboarded)
}

func TestCompleteOnboarding_UnknownTrack(t *testing.T) {
	f := newFixture(t)
	h := NewCompleteOnboardingHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)

	_, err := h.Handle(context.Background(), CompleteOnboardingCommand{UserID: testUser, TrackID: "astronaut"})
	assert.ErrorIs(t, err, shared.ErrTrackNotFound)

	_, err = h.Handle(context.Background(), CompleteOnboardingCommand{UserID: testUser})
	assert.True(t, shared.IsValidation(err))
}

func TestResetTrack_SwitchesTrackAndKeepsAchievements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	onboarding := NewCompleteOnboardingHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	_, err := onboarding.Handle(ctx, CompleteOnboardingCommand{UserID: testUser, TrackID: testTrack})
	require.NoError(t, err)

	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)
	_, err = newToggle(f).Handle(ctx, ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	h := NewResetTrackHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	p, err := h.Handle(ctx, ResetTrackCommand{UserID: testUser, TrackID: "data-analytics"})
	require.NoError(t, err)

	assert.Equal(t, "data-analytics", p.CareerTrack)
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 0, p.CurrentXP)
	assert.True(t, p.LastActiveDate.Equal(f.clock.Now()))

	n, err := f.store.Tasks().CountCompleted(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ua, ok := f.userAchievement(t, "first-steps")
	require.True(t, ok)
	assert.True(t, ua.Unlocked)

	u, _ := f.store.Users().GetByID(ctx, testUser)
	assert.Equal(t, "data-analytics", u.CareerTrack)
}

func TestResetTrack_KeepsCurrentTrackByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	onboarding := NewCompleteOnboardingHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	_, err := onboarding.Handle(ctx, CompleteOnboardingCommand{UserID: testUser, TrackID: testTrack})
	require.NoError(t, err)

	h := NewResetTrackHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	p, err := h.Handle(ctx, ResetTrackCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, testTrack, p.CareerTrack)
}

func TestResetTrack_NotOnboarded(t *testing.T) {
	f := newFixture(t)
	h := NewResetTrackHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)

	_, err := h.Handle(context.Background(), ResetTrackCommand{UserID: testUser})
	assert.ErrorIs(t, err, shared.ErrNotOnboarded)
}

type failingRestart struct {
	progress.Repository
}

func (failingRestart) Restart(context.Context, *progress.UserProgress) error {
	return errors.New("connection reset")
}

func TestResetTrack_FailedRestartKeepsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	onboarding := NewCompleteOnboardingHandler(f.store.Users(), f.store.Plans(), f.store.Progress(), nil, f.bus, f.cfg, nil)
	_, err := onboarding.Handle(ctx, CompleteOnboardingCommand{UserID: testUser, TrackID: testTrack})
	require.NoError(t, err)
	_, err = newToggle(f).Handle(ctx, ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	require.NoError(t, err)

	h := NewResetTrackHandler(f.store.Users(), f.store.Plans(), failingRestart{f.store.Progress()}, nil, f.bus, f.cfg, nil)
	_, err = h.Handle(ctx, ResetTrackCommand{UserID: testUser, TrackID: "data-analytics"})
	require.Error(t, err)

	p := f.progress(t)
	assert.Equal(t, testTrack, p.CareerTrack)
	assert.Equal(t, 100, p.CurrentXP)
	n, err := f.store.Tasks().CountCompleted(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u, _ := f.store.Users().GetByID(ctx, testUser)
	assert.Equal(t, testTrack, u.CareerTrack)
}
