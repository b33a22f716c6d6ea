// Package command contains write operations (CQRS - Commands).
package command

import (
	"fmt"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
	"github.com/careerwise/careerwise-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE CONFIG
// Settings shared by every progress routine.
// ══════════════════════════════════════════════════════════════════════════════

// EngineConfig holds the plan and time settings of the progress engine.
type EngineConfig struct {
	// PlanVersion selects the UserProgress row. Default "v1".
	PlanVersion string
	// Location defines calendar-day boundaries for streaks. Default UTC.
	Location *time.Location
	// Clock supplies "now". Default system clock.
	Clock timeutil.Clock
}

// WithDefaults fills unset fields.
func (c EngineConfig) WithDefaults() EngineConfig {
	if c.PlanVersion == "" {
		c.PlanVersion = progress.DefaultPlanVersion
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Clock == nil {
		c.Clock = timeutil.SystemClock{}
	}
	return c
}

func (c EngineConfig) now() time.Time {
	return c.Clock.Now()
}

func orNop(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.Nop()
	}
	return l
}

func orNopPublisher(p shared.EventPublisher) shared.EventPublisher {
	if p == nil {
		return shared.NopPublisher{}
	}
	return p
}

func orNoopLocker(l progress.Locker) progress.Locker {
	if l == nil {
		return progress.NoopLocker{}
	}
	return l
}

// publish logs publisher failures; events never fail a command.
func publish(log *logger.Logger, pub shared.EventPublisher, events ...shared.Event) {
	for _, e := range events {
		if err := pub.Publish(e); err != nil {
			log.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.UserID(e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

func requireUserID(op, userID string) error {
	if userID == "" {
		return shared.NewDomainError("command", op, shared.ErrValidation, "user_id is required")
	}
	return nil
}

func wrapStore(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
