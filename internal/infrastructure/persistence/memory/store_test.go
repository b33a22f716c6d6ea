package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Users()

	u, err := user.NewUser(user.NewUserParams{Email: "Ann@Example.com", PasswordHash: "h", Now: t0})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))

	err = repo.Create(ctx, &user.User{ID: "other", Email: u.Email})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestProgressRepository_Updates(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Progress()

	_, err := repo.Get(ctx, "u1", "v1")
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)

	p := progress.NewUserProgress("u1", "software-engineering", "v1", 14, t0)
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, p), shared.ErrAlreadyOnboarded)

	later := t0.Add(26 * time.Hour)
	require.NoError(t, repo.UpdateDay(ctx, "u1", "v1", 2, 14, later))
	require.NoError(t, repo.UpdateStreak(ctx, "u1", "v1", 3, later))
	require.NoError(t, repo.UpdateXP(ctx, "u1", "v1", 550, 2))

	got, err := repo.Get(ctx, "u1", "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentDay)
	assert.Equal(t, 14, got.ProgressPercent)
	assert.Equal(t, 3, got.StreakDays)
	assert.Equal(t, 550, got.CurrentXP)
	assert.Equal(t, 2, got.Level)
	assert.True(t, got.LastActiveDate.Equal(later))

	got.CurrentDay = 9
	again, _ := repo.Get(ctx, "u1", "v1")
	assert.Equal(t, 2, again.CurrentDay, "returned records are copies")

	assert.ErrorIs(t, repo.UpdateXP(ctx, "nobody", "v1", 1, 1), shared.ErrProgressNotFound)
	require.NoError(t, repo.Delete(ctx, "u1", "v1"))
	require.NoError(t, repo.Delete(ctx, "u1", "v1"))
}

func TestProgressRepository_Restart(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Progress()

	old := progress.NewUserProgress("u1", "software-engineering", "v1", 14, t0)
	old.CurrentXP = 700
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, s.Tasks().Upsert(ctx, &progress.TaskProgress{UserID: "u1", TaskID: "t1", Completed: true}))
	require.NoError(t, s.Tasks().Upsert(ctx, &progress.TaskProgress{UserID: "u2", TaskID: "t1", Completed: true}))

	fresh := progress.NewUserProgress("u1", "data-analytics", "v1", 14, t0.Add(time.Hour))
	require.NoError(t, repo.Restart(ctx, fresh))

	got, err := repo.Get(ctx, "u1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "data-analytics", got.CareerTrack)
	assert.Equal(t, 0, got.CurrentXP)

	mine, _ := s.Tasks().ListByUser(ctx, "u1")
	assert.Empty(t, mine)
	theirs, _ := s.Tasks().ListByUser(ctx, "u2")
	assert.Len(t, theirs, 1)

	require.NoError(t, repo.Restart(ctx, progress.NewUserProgress("u3", "data-analytics", "v1", 14, t0)), "no prior record")
}

func TestProgressRepository_TopByXP(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i, xp := range []int{100, 900, 400} {
		p := progress.NewUserProgress(string(rune('a'+i)), "t", "v1", 14, t0)
		p.CurrentXP = xp
		require.NoError(t, s.Progress().Create(ctx, p))
	}

	top, err := s.Progress().TopByXP(ctx, "v1", "b", 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].UserID)
	assert.Equal(t, "a", top[1].UserID)
}

func TestTaskProgressRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Tasks()

	got, err := repo.Get(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Upsert(ctx, &progress.TaskProgress{UserID: "u1", TaskID: "t1", Completed: true}))
	require.NoError(t, repo.Upsert(ctx, &progress.TaskProgress{UserID: "u1", TaskID: "t2"}))
	require.NoError(t, repo.Upsert(ctx, &progress.TaskProgress{UserID: "u2", TaskID: "t1", Completed: true}))

	n, err := repo.CountCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteByUser(ctx, "u1"))
	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, _ = repo.CountCompleted(ctx, "u2")
	assert.Equal(t, 1, n)
}

func TestAchievementRepository_KeepsUnlock(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Achievements()

	require.NoError(t, repo.UpsertDefinition(ctx, achievement.Record{ID: "b"}))
	require.NoError(t, repo.UpsertDefinition(ctx, achievement.Record{ID: "a"}))
	require.NoError(t, repo.UpsertDefinition(ctx, achievement.Record{ID: "b", Title: "B"}))
	defs, err := repo.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].ID)
	assert.Equal(t, "B", defs[0].Title)

	at := t0
	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{UserID: "u1", AchievementID: "a", Unlocked: true, UnlockedAt: &at, Progress: 100}))
	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{UserID: "u1", AchievementID: "a", Progress: 40}))

	rows, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Unlocked)
	require.NotNil(t, rows[0].UnlockedAt)
	assert.True(t, rows[0].UnlockedAt.Equal(t0))
	assert.Equal(t, 40, rows[0].Progress)
}

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Plans()

	track := plan.Track{ID: "se", Title: "SE", TotalDays: 14}
	tasks := []plan.Task{
		{ID: "se-2a", Day: 2, Title: "x", Kind: plan.KindReading},
		{ID: "se-1b", Day: 1, Title: "y", Kind: plan.KindExercise},
		{ID: "se-1a", Day: 1, Title: "z", Kind: plan.KindReading},
	}
	require.NoError(t, repo.UpsertTrack(ctx, track, tasks))

	day1, err := repo.ListTasks(ctx, "se", 1)
	require.NoError(t, err)
	require.Len(t, day1, 2)
	assert.Equal(t, "se-1a", day1[0].ID)
	assert.Equal(t, "se", day1[0].TrackID)

	all, _ := repo.ListTasks(ctx, "se", 0)
	assert.Len(t, all, 3)

	require.NoError(t, repo.UpsertTrack(ctx, track, tasks[:1]))
	all, _ = repo.ListTasks(ctx, "se", 0)
	assert.Len(t, all, 1)

	_, err = repo.GetTrack(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrTrackNotFound)
	_, err = repo.GetTask(ctx, "se-1a")
	assert.ErrorIs(t, err, shared.ErrTaskNotFound)
}

func TestChatRepository_Recent(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Chat()
	for i, text := range []string{"one", "two", "three"} {
		m, err := mentor.NewMessage("u1", mentor.RoleUser, text, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, m))
	}

	got, err := repo.Recent(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
}

func TestLocker_Serializes(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "progress:u1")
			if err != nil {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.slots)
}

func TestLocker_ContextCancel(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}
