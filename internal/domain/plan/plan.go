// Package plan describes the curriculum: career tracks and their day-by-day tasks.
package plan

import (
	"context"
	"fmt"
	"sort"
)

// TaskKind categorizes a plan task.
type TaskKind string

const (
	KindReading    TaskKind = "reading"
	KindExercise   TaskKind = "exercise"
	KindProject    TaskKind = "project"
	KindReflection TaskKind = "reflection"
)

// Valid reports whether k is known.
func (k TaskKind) Valid() bool {
	switch k {
	case KindReading, KindExercise, KindProject, KindReflection:
		return true
	}
	return false
}

// Track is a career track.
type Track struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	TotalDays   int    `json:"total_days" yaml:"total_days"`
}

// Task is one item of a track's daily list.
type Task struct {
	ID               string   `json:"id" yaml:"id"`
	TrackID          string   `json:"track_id" yaml:"-"`
	Day              int      `json:"day" yaml:"day"`
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description" yaml:"description"`
	XPReward         int      `json:"xp_reward" yaml:"xp_reward"`
	EstimatedMinutes int      `json:"estimated_minutes" yaml:"estimated_minutes"`
	Kind             TaskKind `json:"kind" yaml:"kind"`
}

// Validate checks a track and its tasks for consistency.
func Validate(t Track, tasks []Task) error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.TotalDays <= 0 {
		return fmt.Errorf("track %s: total_days must be positive", t.ID)
	}
	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("track %s: task without id", t.ID)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("track %s: duplicate task %s", t.ID, task.ID)
		}
		seen[task.ID] = struct{}{}
		if task.Day < 1 || task.Day > t.TotalDays {
			return fmt.Errorf("track %s: task %s day %d outside 1..%d", t.ID, task.ID, task.Day, t.TotalDays)
		}
		if task.XPReward < 0 {
			return fmt.Errorf("track %s: task %s has negative xp", t.ID, task.ID)
		}
		if !task.Kind.Valid() {
			return fmt.Errorf("track %s: task %s has unknown kind %q", t.ID, task.ID, task.Kind)
		}
	}
	return nil
}

// SortTasks orders tasks by day, then id.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Day != tasks[j].Day {
			return tasks[i].Day < tasks[j].Day
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// Repository stores the curriculum.
type Repository interface {
	ListTracks(ctx context.Context) ([]Track, error)
	// GetTrack returns shared.ErrTrackNotFound when absent.
	GetTrack(ctx context.Context, id string) (*Track, error)
	// ListTasks returns a track's tasks for day, or all days when day is 0.
	ListTasks(ctx context.Context, trackID string, day int) ([]Task, error)
	// GetTask returns shared.ErrTaskNotFound when absent.
	GetTask(ctx context.Context, id string) (*Task, error)
	// UpsertTrack replaces a track and its tasks.
	UpsertTrack(ctx context.Context, t Track, tasks []Task) error
}
