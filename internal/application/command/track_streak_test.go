package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

func TestTrackStreak_SameDayIsNoop(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	h := NewTrackStreakHandler(f.store.Progress(), f.evaluator(), f.bus, f.cfg, nil)

	f.clock.Advance(10 * time.Hour)
	res, err := h.Handle(context.Background(), TrackStreakCommand{UserID: testUser})
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Nil(t, res.Achievements)
	assert.True(t, f.progress(t).LastActiveDate.Equal(start))
}

func TestTrackStreak_ConsecutiveDays(t *testing.T) {
	f := newFixture(t)
	f.onboard(t)
	f.addAchievement(t, "on-fire", achievement.KindStreakDays, 2)
	h := NewTrackStreakHandler(f.store.Progress(), f.evaluator(), f.bus, f.cfg, nil)

	// 09:00 -> 08:00 next day is under 24h but a new calendar day.
	f.clock.Advance(23 * time.Hour)
	res, err := h.Handle(context.Background(), TrackStreakCommand{UserID: testUser})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.StreakDays)
	require.NotNil(t, res.Achievements, "a change triggers evaluation")
	assert.Empty(t, res.Achievements.NewlyUnlocked)

	f.clock.Advance(24 * time.Hour)
	res, err = h.Handle(context.Background(), TrackStreakCommand{UserID: testUser})
	require.NoError(t, err)
	assert.Equal(t, 2, res.StreakDays)
	require.NotNil(t, res.Achievements)
	require.Len(t, res.Achievements.NewlyUnlocked, 1)
	assert.Equal(t, "on-fire", res.Achievements.NewlyUnlocked[0].ID)

	p := f.progress(t)
	assert.Equal(t, 2, p.StreakDays)
	assert.True(t, p.LastActiveDate.Equal(f.clock.Now()))
	assert.Contains(t, f.bus.types(), shared.EventStreakUpdated)
	assert.Contains(t, f.bus.types(), shared.EventAchievementUnlocked)
}

func TestTrackStreak_GapResets(t *testing.T) {
	f := newFixture(t)
	p := f.onboard(t)
	require.NoError(t, f.store.Progress().UpdateStreak(context.Background(), testUser, p.PlanVersion, 5, start))
	h := NewTrackStreakHandler(f.store.Progress(), f.evaluator(), f.bus, f.cfg, nil)

	f.clock.Advance(3 * 24 * time.Hour)
	res, err := h.Handle(context.Background(), TrackStreakCommand{UserID: testUser})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.True(t, res.Broken)
	assert.Equal(t, 5, res.Previous)
	assert.Equal(t, 1, res.StreakDays)
	assert.Equal(t, 1, f.progress(t).StreakDays)
}

func TestTrackStreak_UsesConfiguredLocation(t *testing.T) {
	f := newFixture(t)
	loc := time.FixedZone("UTC+5", 5*60*60)
	f.cfg.Location = loc

	// 18:00 UTC is 23:00 local; 20:00 UTC is 01:00 local the next day.
	f.clock.Set(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC))
	f.onboard(t)
	f.clock.Advance(2 * time.Hour)

	h := NewTrackStreakHandler(f.store.Progress(), nil, f.bus, f.cfg, nil)
	res, err := h.Handle(context.Background(), TrackStreakCommand{UserID: testUser})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.StreakDays)
}

func TestTrackStreak_NoRecordIsSoft(t *testing.T) {
	f := newFixture(t)
	h := NewTrackStreakHandler(f.store.Progress(), f.evaluator(), f.bus, f.cfg, nil)

	res, err := h.Handle(context.Background(), TrackStreakCommand{UserID: "ghost"})
	require.NoError(t, err)
	assert.True(t, res.NoRecord)
	assert.False(t, res.Changed)

	_, err = f.store.Progress().Get(context.Background(), "ghost", progress.DefaultPlanVersion)
	assert.True(t, shared.IsNotFound(err), "no record is created")
}
