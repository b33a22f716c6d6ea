package achievement

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

func TestParseRequirement(t *testing.T) {
	r, err := ParseRequirement([]byte(`{"type":"tasks_completed","count":10}`))
	require.NoError(t, err)
	assert.Equal(t, Requirement{Kind: KindTasksCompleted, Threshold: 10}, r)

	bad := []string{
		``,
		`not json`,
		`{"type":"bogus","count":3}`,
		`{"type":"streak_days"}`,
		`{"type":"streak_days","count":0}`,
		`{"type":"streak_days","count":2.5}`,
		`{"type":"streak_days","count":3,"extra":true}`,
	}
	for _, raw := range bad {
		_, err := ParseRequirement([]byte(raw))
		assert.True(t, errors.Is(err, shared.ErrInvalidRequirement), "input %q", raw)
	}
}

func TestRequirement_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Requirement{Kind: KindStreakDays, Threshold: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"streak_days","count":7}`, string(b))
}

func TestAssess(t *testing.T) {
	tasks10 := Requirement{Kind: KindTasksCompleted, Threshold: 10}

	a := Assess(tasks10, Counters{TasksCompleted: 7})
	assert.Equal(t, Assessment{Progress: 70, Satisfied: false}, a)

	a = Assess(tasks10, Counters{TasksCompleted: 10})
	assert.Equal(t, Assessment{Progress: 100, Satisfied: true}, a)

	a = Assess(tasks10, Counters{TasksCompleted: 25})
	assert.Equal(t, 100, a.Progress)

	a = Assess(Requirement{Kind: KindDaysCompleted, Threshold: 3}, Counters{DaysCompleted: 1})
	assert.Equal(t, 33, a.Progress)

	a = Assess(Requirement{Kind: KindStreakDays, Threshold: 3}, Counters{StreakDays: 2})
	assert.Equal(t, 67, a.Progress)

	a = Assess(Requirement{Kind: KindProjectsCompleted, Threshold: 1}, Counters{ProjectsCompleted: 5})
	assert.Equal(t, Assessment{}, a)
}

func TestBuildCatalog_SkipsMalformed(t *testing.T) {
	defs, errs := BuildCatalog([]Record{
		{ID: "first-task", RequirementJSON: json.RawMessage(`{"type":"tasks_completed","count":1}`)},
		{ID: "broken", RequirementJSON: json.RawMessage(`{"type":"logins","count":1}`)},
		{ID: "week", RequirementJSON: json.RawMessage(`{"type":"streak_days","count":7}`)},
	})

	require.Len(t, defs, 2)
	assert.Equal(t, "first-task", defs[0].ID)
	assert.Equal(t, "week", defs[1].ID)
	require.Len(t, errs, 1)

	var recErr *RecordError
	require.True(t, errors.As(errs[0], &recErr))
	assert.Equal(t, "broken", recErr.ID)
}

func TestUserAchievement_ApplyIsMonotonic(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ua := &UserAchievement{UserID: "u", AchievementID: "a"}

	assert.False(t, ua.Apply(Assessment{Progress: 50}, t0))
	assert.True(t, ua.Apply(Assessment{Progress: 100, Satisfied: true}, t0))
	require.NotNil(t, ua.UnlockedAt)
	assert.Equal(t, t0, *ua.UnlockedAt)

	later := t0.Add(48 * time.Hour)
	assert.False(t, ua.Apply(Assessment{Progress: 100, Satisfied: true}, later))
	assert.Equal(t, t0, *ua.UnlockedAt)

	// counter dropped (streak reset) after unlock
	assert.False(t, ua.Apply(Assessment{Progress: 33}, later))
	assert.True(t, ua.Unlocked)
	assert.Equal(t, 33, ua.Progress)
}

func TestDefinition_ToRecord(t *testing.T) {
	d := Definition{ID: "x", Requirement: Requirement{Kind: KindDaysCompleted, Threshold: 13}}
	rec, err := d.ToRecord()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"days_completed","count":13}`, string(rec.RequirementJSON))
}
