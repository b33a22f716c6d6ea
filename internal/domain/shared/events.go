package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the progress engine and its callers.
const (
	EventUserRegistered EventType = "user.registered"
	EventUserOnboarded  EventType = "user.onboarded"
	EventTrackReset     EventType = "progress.track_reset"

	EventDayAdvanced         EventType = "progress.day_advanced"
	EventStreakUpdated       EventType = "progress.streak_updated"
	EventTaskToggled         EventType = "progress.task_toggled"
	EventXPGained            EventType = "progress.xp_gained"
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	// AggregateID is the user the event belongs to.
	AggregateID() string
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event stamped at the given instant.
func NewBaseEvent(eventType EventType, userID string, at time.Time) BaseEvent {
	return BaseEvent{Type: eventType, Timestamp: at, AggregateId: userID}
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted when an account is created.
type UserRegisteredEvent struct {
	BaseEvent
	Email string `json:"email"`
}

func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"email": e.Email}
}

// UserOnboardedEvent is emitted when a user enrolls in a career track.
type UserOnboardedEvent struct {
	BaseEvent
	TrackID     string `json:"track_id"`
	PlanVersion string `json:"plan_version"`
}

func (e UserOnboardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"track_id": e.TrackID, "plan_version": e.PlanVersion}
}

// TrackResetEvent is emitted when a user restarts the plan.
type TrackResetEvent struct {
	BaseEvent
	TrackID string `json:"track_id"`
}

func (e TrackResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"track_id": e.TrackID}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// DayAdvancedEvent is emitted when elapsed time moved the current day.
type DayAdvancedEvent struct {
	BaseEvent
	FromDay int `json:"from_day"`
	ToDay   int `json:"to_day"`
	Percent int `json:"percent"`
}

func (e DayAdvancedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"from_day": e.FromDay, "to_day": e.ToDay, "percent": e.Percent}
}

// StreakUpdatedEvent is emitted when the streak counter changed.
type StreakUpdatedEvent struct {
	BaseEvent
	Previous int  `json:"previous"`
	Current  int  `json:"current"`
	Broken   bool `json:"broken"`
}

func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"previous": e.Previous, "current": e.Current, "broken": e.Broken}
}

// TaskToggledEvent is emitted when a task completion flag changes.
type TaskToggledEvent struct {
	BaseEvent
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
}

func (e TaskToggledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"task_id": e.TaskID, "completed": e.Completed}
}

// XPGainedEvent is emitted when a task reward is paid.
type XPGainedEvent struct {
	BaseEvent
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	NewLevel int    `json:"new_level"`
	LevelUp  bool   `json:"level_up"`
	TaskID   string `json:"task_id"`
}

func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"new_level": e.NewLevel,
		"level_up":  e.LevelUp,
		"task_id":   e.TaskID,
	}
}

// AchievementUnlockedEvent is emitted the first time an achievement unlocks.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
}

func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"achievement_id": e.AchievementID, "title": e.Title}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
