package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
)

func TestEvaluateAchievements_PartialThenUnlock(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "task-master", achievement.KindTasksCompleted, 10)
	h := f.evaluator()

	f.completeTasks(t, 7)
	res, err := h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	assert.Empty(t, res.NewlyUnlocked)

	ua, ok := f.userAchievement(t, "task-master")
	require.True(t, ok)
	assert.Equal(t, 70, ua.Progress)
	assert.False(t, ua.Unlocked)
	assert.Nil(t, ua.UnlockedAt)

	f.completeTasks(t, 10)
	res, err = h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	require.Len(t, res.NewlyUnlocked, 1)

	ua, _ = f.userAchievement(t, "task-master")
	assert.Equal(t, 100, ua.Progress)
	assert.True(t, ua.Unlocked)
	require.NotNil(t, ua.UnlockedAt)
	assert.True(t, ua.UnlockedAt.Equal(start))
}

func TestEvaluateAchievements_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)
	h := f.evaluator()
	f.completeTasks(t, 1)

	_, err := h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	first, _ := f.userAchievement(t, "first-steps")

	f.clock.Advance(5 * time.Hour)
	res, err := h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Empty(t, res.NewlyUnlocked)

	second, _ := f.userAchievement(t, "first-steps")
	assert.Equal(t, first.Progress, second.Progress)
	assert.True(t, second.Unlocked)
	assert.True(t, second.UnlockedAt.Equal(*first.UnlockedAt), "unlockedAt is never moved")
}

func TestEvaluateAchievements_UnlockNeverReverts(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)
	h := f.evaluator()
	f.completeTasks(t, 1)

	_, err := h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)

	require.NoError(t, f.store.Tasks().DeleteByUser(context.Background(), testUser))
	_, err = h.Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)

	ua, _ := f.userAchievement(t, "first-steps")
	assert.True(t, ua.Unlocked)
	assert.Equal(t, 0, ua.Progress)
}

func TestEvaluateAchievements_SkipsMalformedRules(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addRawAchievement(t, "broken-json", `{"type":`)
	f.addRawAchievement(t, "unknown-kind", `{"type":"lines_of_code","count":3}`)
	f.addRawAchievement(t, "zero-count", `{"type":"streak_days","count":0}`)
	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)
	f.completeTasks(t, 1)

	res, err := f.evaluator().Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 1, res.Evaluated)
	require.Len(t, res.NewlyUnlocked, 1)

	_, ok := f.userAchievement(t, "broken-json")
	assert.False(t, ok)
}

func TestEvaluateAchievements_Counters(t *testing.T) {
	f := newFixture(t)
	p := f.onboard(t)
	require.NoError(t, f.store.Progress().UpdateDay(context.Background(), testUser, p.PlanVersion, 8, 57, start))
	require.NoError(t, f.store.Progress().UpdateStreak(context.Background(), testUser, p.PlanVersion, 3, start))
	f.addAchievement(t, "halfway", achievement.KindDaysCompleted, 7)
	f.addAchievement(t, "week-warrior", achievement.KindStreakDays, 7)
	f.addAchievement(t, "builder", achievement.KindProjectsCompleted, 1)

	res, err := f.evaluator().Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, achievement.Counters{DaysCompleted: 7, StreakDays: 3}, res.Counters)

	halfway, _ := f.userAchievement(t, "halfway")
	assert.True(t, halfway.Unlocked)

	week, _ := f.userAchievement(t, "week-warrior")
	assert.Equal(t, 43, week.Progress)
	assert.False(t, week.Unlocked)

	builder, _ := f.userAchievement(t, "builder")
	assert.Equal(t, 0, builder.Progress)
	assert.False(t, builder.Unlocked)
}

func TestEvaluateAchievements_NoRecordIsSoft(t *testing.T) {
	f := newFixture(t)
	f.addAchievement(t, "first-steps", achievement.KindTasksCompleted, 1)

	res, err := f.evaluator().Handle(context.Background(), EvaluateAchievementsCommand{UserID: testUser})
	require.NoError(t, err)
	assert.True(t, res.NoRecord)
	_, ok := f.userAchievement(t, "first-steps")
	assert.False(t, ok)
}
