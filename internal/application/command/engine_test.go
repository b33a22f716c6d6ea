package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/persistence/memory"
	"github.com/careerwise/careerwise-hub/pkg/timeutil"
)

const (
	testTrack = "software-engineering"
	testUser  = "user-1"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store *memory.Store
	clock *timeutil.FixedClock
	bus   *recorder
	cfg   EngineConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := timeutil.NewFixedClock(start)
	f := &fixture{
		store: memory.NewStore(),
		clock: clock,
		bus:   &recorder{},
		cfg:   EngineConfig{Clock: clock},
	}

	// 14 days with one 100 XP task per day, plus ten extra day-1 tasks.
	tasks := make([]plan.Task, 0, 24)
	for d := 1; d <= 14; d++ {
		tasks = append(tasks, plan.Task{ID: fmt.Sprintf("se-d%02d", d), Day: d, Title: "Task", XPReward: 100, Kind: plan.KindExercise})
	}
	for i := 0; i < 10; i++ {
		tasks = append(tasks, plan.Task{ID: fmt.Sprintf("se-d01-x%d", i), Day: 1, Title: "Extra", XPReward: 10, Kind: plan.KindReading})
	}
	require.NoError(t, f.store.Plans().UpsertTrack(context.Background(),
		plan.Track{ID: testTrack, Title: "Software Engineering", TotalDays: 14}, tasks))
	require.NoError(t, f.store.Plans().UpsertTrack(context.Background(),
		plan.Track{ID: "data-analytics", Title: "Data Analytics", TotalDays: 14},
		[]plan.Task{{ID: "da-d01", Day: 1, Title: "Intro", XPReward: 50, Kind: plan.KindReading}}))

	u := &user.User{ID: testUser, Email: "learner@example.com", DisplayName: "Learner", CreatedAt: start}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return f
}

// onboard creates the day-1 record directly.
func (f *fixture) onboard(t *testing.T) *progress.UserProgress {
	t.Helper()
	p := progress.NewUserProgress(testUser, testTrack, "", 14, f.clock.Now())
	require.NoError(t, f.store.Progress().Create(context.Background(), p))
	return p
}

func (f *fixture) addAchievement(t *testing.T, id string, kind achievement.Kind, count int) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": kind, "count": count})
	require.NoError(t, err)
	require.NoError(t, f.store.Achievements().UpsertDefinition(context.Background(),
		achievement.Record{ID: id, Type: string(kind), Title: id, RequirementJSON: raw}))
}

func (f *fixture) addRawAchievement(t *testing.T, id, raw string) {
	t.Helper()
	require.NoError(t, f.store.Achievements().UpsertDefinition(context.Background(),
		achievement.Record{ID: id, Title: id, RequirementJSON: json.RawMessage(raw)}))
}

func (f *fixture) completeTasks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		at := f.clock.Now()
		require.NoError(t, f.store.Tasks().Upsert(context.Background(), &progress.TaskProgress{
			UserID: testUser, TaskID: fmt.Sprintf("done-%d", i), Completed: true, CompletedAt: &at, XPAwarded: true,
		}))
	}
}

func (f *fixture) progress(t *testing.T) *progress.UserProgress {
	t.Helper()
	p, err := f.store.Progress().Get(context.Background(), testUser, progress.DefaultPlanVersion)
	require.NoError(t, err)
	return p
}

func (f *fixture) userAchievement(t *testing.T, id string) (achievement.UserAchievement, bool) {
	t.Helper()
	rows, err := f.store.Achievements().ListForUser(context.Background(), testUser)
	require.NoError(t, err)
	for _, r := range rows {
		if r.AchievementID == id {
			return r, true
		}
	}
	return achievement.UserAchievement{}, false
}

func (f *fixture) evaluator() *EvaluateAchievementsHandler {
	return NewEvaluateAchievementsHandler(f.store.Progress(), f.store.Tasks(), f.store.Achievements(), f.bus, f.cfg, nil)
}
