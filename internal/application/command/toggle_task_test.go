package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/persistence/memory"
)

func newToggle(f *fixture) *ToggleTaskHandler {
	return NewToggleTaskHandler(f.store.Plans(), f.store.Progress(), f.store.Tasks(), f.evaluator(), memory.NewLocker(), f.bus, f.cfg, nil)
}

func TestToggleTask_PaysXPOnce(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)
	h := newToggle(f)
	ctx := context.Background()

	res, err := h.Handle(ctx, ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 100, res.XPAwarded)
	assert.Equal(t, 100, res.CurrentXP)
	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, "first-steps", res.NewlyUnlocked[0].ID)

	res, err = h.Handle(ctx, ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: false})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 100, res.CurrentXP, "un-completing keeps XP")

	res, err = h.Handle(ctx, ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 100, f.progress(t).CurrentXP)

	ua, _ := f.userAchievement(t, "first-steps")
	assert.True(t, ua.Unlocked)
}

func TestToggleTask_LevelUp(t *testing.T) {
	f := newFixture(t)
	p := f.onboard(t)
	require.NoError(t, f.store.Progress().UpdateXP(context.Background(), testUser, p.PlanVersion, 450, 1))
	h := newToggle(f)

	res, err := h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	require.NoError(t, err)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 550, res.CurrentXP)
	assert.Equal(t, 2, res.Level)
	assert.Contains(t, f.bus.types(), shared.EventXPGained)
}

func TestToggleTask_FutureDayIsLocked(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	h := newToggle(f)

	_, err := h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: "se-d03", Completed: true})
	assert.ErrorIs(t, err, shared.ErrTaskLocked)
	assert.True(t, shared.IsForbidden(err))

	row, err := f.store.Tasks().Get(context.Background(), testUser, "se-d03")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestToggleTask_OtherTrackOrUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	h := newToggle(f)

	_, err := h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: "da-d01", Completed: true})
	assert.ErrorIs(t, err, shared.ErrTaskNotFound)

	_, err = h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: "nope", Completed: true})
	assert.True(t, shared.IsNotFound(err))
}

func TestToggleTask_NotOnboarded(t *testing.T) {
	f := newFixture(t)
	h := newToggle(f)

	_, err := h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: "se-d01", Completed: true})
	assert.ErrorIs(t, err, shared.ErrNotOnboarded)
}

func TestToggleTask_ConcurrentTogglesCountEveryTask(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "ten", achievement.KindTasksCompleted, 10)
	h := newToggle(f)
	f.clock.Set(start.Add(time.Minute))

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			_, err := h.Handle(context.Background(), ToggleTaskCommand{UserID: testUser, TaskID: fmt.Sprintf("se-d01-x%d", i), Completed: true})
			errs <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}

	assert.Equal(t, 100, f.progress(t).CurrentXP)
	ua, ok := f.userAchievement(t, "ten")
	require.True(t, ok)
	assert.True(t, ua.Unlocked)
	assert.Equal(t, 100, ua.Progress)
}
