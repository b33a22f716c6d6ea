package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

func TestMigrations_Ordered(t *testing.T) {
	migs := Migrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL, m.Name)
		assert.NotEmpty(t, m.DownSQL, m.Name)
	}
}

func TestConfig_PoolConfig(t *testing.T) {
	_, err := DefaultConfig().PoolConfig()
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.URL = "postgres://u:p@localhost:5432/careerwise?sslmode=disable"
	cfg.MaxConns = 7
	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
}

// newTestConn connects to DATABASE_URL and migrates. Tests use fresh UUIDs so
// they do not collide with existing rows.
func newTestConn(t *testing.T) *Connection {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfg := DefaultConfig()
	cfg.URL = url
	conn, err := NewConnection(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	_, err = NewMigrator(conn).Migrate(context.Background())
	require.NoError(t, err)
	return conn
}

func createUser(t *testing.T, repo *UserRepository, name string) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		DisplayName:  name,
		Now:          time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	conn := newTestConn(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()

	u := createUser(t, repo, "Ada")

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.IsOnboarded())

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.Create(ctx, &dup), shared.ErrEmailTaken)

	got.Enroll("software-engineering", time.Now().UTC())
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnboarded())

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.True(t, shared.IsNotFound(err))
}

func TestProgressRepository(t *testing.T) {
	conn := newTestConn(t)
	users := NewUserRepository(conn)
	repo := NewProgressRepository(conn)
	ctx := context.Background()
	version := "test-" + uuid.NewString()[:8]

	u := createUser(t, users, "Grace")
	peer := createUser(t, users, "Linus")
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, progress.NewUserProgress(u.ID, "software-engineering", version, 14, now)))
	assert.ErrorIs(t, repo.Create(ctx, progress.NewUserProgress(u.ID, "software-engineering", version, 14, now)), shared.ErrAlreadyOnboarded)
	require.NoError(t, repo.Create(ctx, progress.NewUserProgress(peer.ID, "software-engineering", version, 14, now)))

	later := now.Add(48 * time.Hour)
	require.NoError(t, repo.UpdateDay(ctx, u.ID, version, 3, 21, later))
	require.NoError(t, repo.UpdateStreak(ctx, u.ID, version, 2, later))
	require.NoError(t, repo.UpdateXP(ctx, peer.ID, version, 700, 2))

	p, err := repo.Get(ctx, u.ID, version)
	require.NoError(t, err)
	assert.Equal(t, 3, p.CurrentDay)
	assert.Equal(t, 21, p.ProgressPercent)
	assert.Equal(t, 2, p.StreakDays)
	assert.True(t, later.Equal(p.LastActiveDate))

	top, err := repo.TopByXP(ctx, version, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Linus", top[0].DisplayName)
	assert.Equal(t, 700, top[0].CurrentXP)

	require.NoError(t, repo.Delete(ctx, u.ID, version))
	_, err = repo.Get(ctx, u.ID, version)
	assert.ErrorIs(t, err, shared.ErrProgressNotFound)
	assert.ErrorIs(t, repo.UpdateXP(ctx, u.ID, version, 1, 1), shared.ErrProgressNotFound)
}

func TestProgressRepository_Restart(t *testing.T) {
	conn := newTestConn(t)
	u := createUser(t, NewUserRepository(conn), "Margaret")
	repo := NewProgressRepository(conn)
	tasks := NewTaskProgressRepository(conn)
	ctx := context.Background()
	version := "test-" + uuid.NewString()[:8]
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, progress.NewUserProgress(u.ID, "software-engineering", version, 14, now)))
	require.NoError(t, repo.UpdateXP(ctx, u.ID, version, 700, 2))
	require.NoError(t, tasks.Upsert(ctx, &progress.TaskProgress{UserID: u.ID, TaskID: "se-d01", Completed: true, UpdatedAt: now}))

	require.NoError(t, repo.Restart(ctx, progress.NewUserProgress(u.ID, "data-analytics", version, 14, now.Add(time.Hour))))

	p, err := repo.Get(ctx, u.ID, version)
	require.NoError(t, err)
	assert.Equal(t, "data-analytics", p.CareerTrack)
	assert.Equal(t, 0, p.CurrentXP)
	all, err := tasks.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	invalid := progress.NewUserProgress(u.ID, "software-engineering", version, 14, now)
	invalid.CurrentDay = -1
	assert.Error(t, repo.Restart(ctx, invalid), "rejected by the check constraint")
	p, err = repo.Get(ctx, u.ID, version)
	require.NoError(t, err)
	assert.Equal(t, "data-analytics", p.CareerTrack, "failed restart leaves the record")
}

func TestTaskProgressRepository(t *testing.T) {
	conn := newTestConn(t)
	u := createUser(t, NewUserRepository(conn), "Ken")
	repo := NewTaskProgressRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	got, err := repo.Get(ctx, u.ID, "se-d01")
	require.NoError(t, err)
	assert.Nil(t, got)

	tp := &progress.TaskProgress{UserID: u.ID, TaskID: "se-d01"}
	assert.Equal(t, 50, tp.Toggle(true, 50, now))
	require.NoError(t, repo.Upsert(ctx, tp))

	tp.Toggle(false, 50, now)
	tp.XPAwarded = false
	require.NoError(t, repo.Upsert(ctx, tp))

	got, err = repo.Get(ctx, u.ID, "se-d01")
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.True(t, got.XPAwarded)

	require.NoError(t, repo.Upsert(ctx, &progress.TaskProgress{UserID: u.ID, TaskID: "se-d02", Completed: true, UpdatedAt: now}))
	n, err := repo.CountCompleted(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteByUser(ctx, u.ID))
	all, err = repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAchievementRepository(t *testing.T) {
	conn := newTestConn(t)
	u := createUser(t, NewUserRepository(conn), "Barbara")
	repo := NewAchievementRepository(conn)
	ctx := context.Background()
	id := "test-" + uuid.NewString()[:8]

	require.NoError(t, repo.UpsertDefinition(ctx, achievement.Record{
		ID: id, Type: "milestone", Title: "First", RequirementJSON: json.RawMessage(`{"type":"tasks_completed","count":1}`),
	}))
	defs, err := repo.ListDefinitions(ctx)
	require.NoError(t, err)
	var found bool
	for _, d := range defs {
		if d.ID == id {
			found = true
			assert.JSONEq(t, `{"type":"tasks_completed","count":1}`, string(d.RequirementJSON))
		}
	}
	assert.True(t, found)

	first := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{
		UserID: u.ID, AchievementID: id, Unlocked: true, UnlockedAt: &first, Progress: 100, UpdatedAt: first,
	}))
	later := first.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{
		UserID: u.ID, AchievementID: id, Unlocked: false, UnlockedAt: &later, Progress: 40, UpdatedAt: later,
	}))

	rows, err := repo.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Unlocked)
	assert.True(t, first.Equal(*rows[0].UnlockedAt))
	assert.Equal(t, 40, rows[0].Progress)
}

func TestPlanRepository(t *testing.T) {
	conn := newTestConn(t)
	repo := NewPlanRepository(conn)
	ctx := context.Background()
	trackID := "test-" + uuid.NewString()[:8]

	track := plan.Track{ID: trackID, Title: "Test", TotalDays: 2}
	tasks := []plan.Task{
		{ID: trackID + "-d01", Day: 1, Title: "A", Kind: plan.KindReading, XPReward: 50},
		{ID: trackID + "-d02", Day: 2, Title: "B", Kind: plan.KindExercise, XPReward: 75},
	}
	require.NoError(t, repo.UpsertTrack(ctx, track, tasks))
	require.NoError(t, repo.UpsertTrack(ctx, track, tasks[:1]))

	got, err := repo.GetTrack(ctx, trackID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalDays)

	all, err := repo.ListTasks(ctx, trackID, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, trackID, all[0].TrackID)
	assert.Equal(t, plan.KindReading, all[0].Kind)

	_, err = repo.GetTask(ctx, trackID+"-d02")
	assert.ErrorIs(t, err, shared.ErrTaskNotFound)
	_, err = repo.GetTrack(ctx, "missing-"+trackID)
	assert.ErrorIs(t, err, shared.ErrTrackNotFound)
}

func TestChatRepository(t *testing.T) {
	conn := newTestConn(t)
	u := createUser(t, NewUserRepository(conn), "Edsger")
	repo := NewChatRepository(conn)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i, text := range []string{"one", "two", "three"} {
		m, err := mentor.NewMessage(u.ID, mentor.RoleUser, text, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, m))
	}

	got, err := repo.Recent(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
}
