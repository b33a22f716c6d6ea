// Package memory provides in-process implementations of every repository.
// It backs STORE_DRIVER=memory and the application tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
)

// Store holds all tables behind one mutex.
type Store struct {
	mu sync.RWMutex

	users     map[string]user.User
	emails    map[string]string
	progress  map[string]progress.UserProgress
	tasks     map[string]progress.TaskProgress
	defs      []achievement.Record
	userAch   map[string]achievement.UserAchievement
	tracks    []plan.Track
	planTasks map[string]plan.Task
	messages  map[string][]mentor.Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]user.User),
		emails:    make(map[string]string),
		progress:  make(map[string]progress.UserProgress),
		tasks:     make(map[string]progress.TaskProgress),
		userAch:   make(map[string]achievement.UserAchievement),
		planTasks: make(map[string]plan.Task),
		messages:  make(map[string][]mentor.Message),
	}
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Progress returns the progress repository.
func (s *Store) Progress() *ProgressRepository { return &ProgressRepository{s: s} }

// Tasks returns the task progress repository.
func (s *Store) Tasks() *TaskProgressRepository { return &TaskProgressRepository{s: s} }

// Achievements returns the achievement repository.
func (s *Store) Achievements() *AchievementRepository { return &AchievementRepository{s: s} }

// Plans returns the curriculum repository.
func (s *Store) Plans() *PlanRepository { return &PlanRepository{s: s} }

// Chat returns the chat history repository.
func (s *Store) Chat() *ChatRepository { return &ChatRepository{s: s} }

func pair(a, b string) string { return a + "\x00" + b }

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository.
type UserRepository struct{ s *Store }

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.emails[u.Email]; ok {
		return shared.ErrEmailTaken
	}
	if _, ok := r.s.users[u.ID]; ok {
		return shared.ErrEmailTaken
	}
	r.s.users[u.ID] = *u
	r.s.emails[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *UserRepository) Update(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository.
type ProgressRepository struct{ s *Store }

var _ progress.Repository = (*ProgressRepository)(nil)

func (r *ProgressRepository) Get(_ context.Context, userID, planVersion string) (*progress.UserProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.progress[pair(userID, planVersion)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return &p, nil
}

func (r *ProgressRepository) Create(_ context.Context, p *progress.UserProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair(p.UserID, p.PlanVersion)
	if _, ok := r.s.progress[k]; ok {
		return shared.ErrAlreadyOnboarded
	}
	r.s.progress[k] = *p
	return nil
}

func (r *ProgressRepository) Restart(_ context.Context, p *progress.UserProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.tasks {
		if t.UserID == p.UserID {
			delete(r.s.tasks, k)
		}
	}
	r.s.progress[pair(p.UserID, p.PlanVersion)] = *p
	return nil
}

func (r *ProgressRepository) update(userID, planVersion string, fn func(*progress.UserProgress)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair(userID, planVersion)
	p, ok := r.s.progress[k]
	if !ok {
		return shared.ErrProgressNotFound
	}
	fn(&p)
	r.s.progress[k] = p
	return nil
}

func (r *ProgressRepository) UpdateDay(_ context.Context, userID, planVersion string, day, percent int, lastActive time.Time) error {
	return r.update(userID, planVersion, func(p *progress.UserProgress) {
		p.CurrentDay = day
		p.ProgressPercent = percent
		p.LastActiveDate = lastActive
		p.UpdatedAt = lastActive
	})
}

func (r *ProgressRepository) UpdateStreak(_ context.Context, userID, planVersion string, streak int, lastActive time.Time) error {
	return r.update(userID, planVersion, func(p *progress.UserProgress) {
		p.StreakDays = streak
		p.LastActiveDate = lastActive
		p.UpdatedAt = lastActive
	})
}

func (r *ProgressRepository) UpdateXP(_ context.Context, userID, planVersion string, xp, level int) error {
	return r.update(userID, planVersion, func(p *progress.UserProgress) {
		p.CurrentXP = xp
		p.Level = level
	})
}

func (r *ProgressRepository) Delete(_ context.Context, userID, planVersion string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.progress, pair(userID, planVersion))
	return nil
}

func (r *ProgressRepository) TopByXP(_ context.Context, planVersion, excludeUserID string, limit int) ([]progress.Ranked, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]progress.Ranked, 0)
	for _, p := range r.s.progress {
		if p.PlanVersion != planVersion || p.UserID == excludeUserID {
			continue
		}
		out = append(out, progress.Ranked{
			UserID:      p.UserID,
			DisplayName: r.s.users[p.UserID].DisplayName,
			CurrentXP:   p.CurrentXP,
			Level:       p.Level,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrentXP != out[j].CurrentXP {
			return out[i].CurrentXP > out[j].CurrentXP
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// TaskProgressRepository implements progress.TaskRepository.
type TaskProgressRepository struct{ s *Store }

var _ progress.TaskRepository = (*TaskProgressRepository)(nil)

func (r *TaskProgressRepository) Get(_ context.Context, userID, taskID string) (*progress.TaskProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[pair(userID, taskID)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TaskProgressRepository) Upsert(_ context.Context, t *progress.TaskProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tasks[pair(t.UserID, t.TaskID)] = *t
	return nil
}

func (r *TaskProgressRepository) ListByUser(_ context.Context, userID string) ([]progress.TaskProgress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]progress.TaskProgress, 0)
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (r *TaskProgressRepository) CountCompleted(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, t := range r.s.tasks {
		if t.UserID == userID && t.Completed {
			n++
		}
	}
	return n, nil
}

func (r *TaskProgressRepository) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.tasks {
		if t.UserID == userID {
			delete(r.s.tasks, k)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository.
type AchievementRepository struct{ s *Store }

var _ achievement.Repository = (*AchievementRepository)(nil)

// ListDefinitions returns catalog rows in insertion order.
func (r *AchievementRepository) ListDefinitions(_ context.Context) ([]achievement.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]achievement.Record, len(r.s.defs))
	copy(out, r.s.defs)
	return out, nil
}

func (r *AchievementRepository) UpsertDefinition(_ context.Context, rec achievement.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.defs {
		if r.s.defs[i].ID == rec.ID {
			r.s.defs[i] = rec
			return nil
		}
	}
	r.s.defs = append(r.s.defs, rec)
	return nil
}

func (r *AchievementRepository) ListForUser(_ context.Context, userID string) ([]achievement.UserAchievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]achievement.UserAchievement, 0)
	for _, ua := range r.s.userAch {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

// Upsert keeps the stored UnlockedAt when one is already set.
func (r *AchievementRepository) Upsert(_ context.Context, ua *achievement.UserAchievement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair(ua.UserID, ua.AchievementID)
	row := *ua
	if prev, ok := r.s.userAch[k]; ok {
		if prev.Unlocked {
			row.Unlocked = true
		}
		if prev.UnlockedAt != nil {
			row.UnlockedAt = prev.UnlockedAt
		}
	}
	r.s.userAch[k] = row
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

// PlanRepository implements plan.Repository.
type PlanRepository struct{ s *Store }

var _ plan.Repository = (*PlanRepository)(nil)

func (r *PlanRepository) ListTracks(_ context.Context) ([]plan.Track, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]plan.Track, len(r.s.tracks))
	copy(out, r.s.tracks)
	return out, nil
}

func (r *PlanRepository) GetTrack(_ context.Context, id string) (*plan.Track, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tracks {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, shared.ErrTrackNotFound
}

func (r *PlanRepository) ListTasks(_ context.Context, trackID string, day int) ([]plan.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]plan.Task, 0)
	for _, t := range r.s.planTasks {
		if t.TrackID == trackID && (day == 0 || t.Day == day) {
			out = append(out, t)
		}
	}
	plan.SortTasks(out)
	return out, nil
}

func (r *PlanRepository) GetTask(_ context.Context, id string) (*plan.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.planTasks[id]
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	return &t, nil
}

func (r *PlanRepository) UpsertTrack(_ context.Context, t plan.Track, tasks []plan.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	replaced := false
	for i := range r.s.tracks {
		if r.s.tracks[i].ID == t.ID {
			r.s.tracks[i] = t
			replaced = true
		}
	}
	if !replaced {
		r.s.tracks = append(r.s.tracks, t)
	}
	for id, task := range r.s.planTasks {
		if task.TrackID == t.ID {
			delete(r.s.planTasks, id)
		}
	}
	for _, task := range tasks {
		task.TrackID = t.ID
		r.s.planTasks[task.ID] = task
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT
// ══════════════════════════════════════════════════════════════════════════════

// ChatRepository implements mentor.Repository.
type ChatRepository struct{ s *Store }

var _ mentor.Repository = (*ChatRepository)(nil)

func (r *ChatRepository) Append(_ context.Context, m *mentor.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages[m.UserID] = append(r.s.messages[m.UserID], *m)
	return nil
}

func (r *ChatRepository) Recent(_ context.Context, userID string, limit int) ([]mentor.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.s.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]mentor.Message, len(all))
	copy(out, all)
	return out, nil
}
