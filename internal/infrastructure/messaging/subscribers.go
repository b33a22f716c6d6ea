package messaging

import (
	"context"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// ══════════════════════════════════════════════════════════════════════════════

// AuditLogger writes every event to the structured log.
type AuditLogger struct {
	log *logger.Logger
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(log *logger.Logger) *AuditLogger {
	return &AuditLogger{log: log.With(logger.Component("audit"))}
}

// Register subscribes the logger to all events.
func (a *AuditLogger) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(a.Handle)
}

// Handle logs one event.
func (a *AuditLogger) Handle(event shared.Event) error {
	a.log.Info("domain event",
		logger.String("event_type", string(event.EventType())),
		logger.UserID(event.AggregateID()),
		logger.Time("occurred_at", event.OccurredAt()),
		logger.Any("payload", event.Payload()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PROJECTION
// ══════════════════════════════════════════════════════════════════════════════

// PeerWriter stores leaderboard peers.
type PeerWriter interface {
	Upsert(ctx context.Context, peers ...leaderboard.Peer) error
}

// PeerProjector keeps a peer set in step with learners' XP.
type PeerProjector struct {
	peers   PeerWriter
	users   user.Repository
	timeout time.Duration
	log     *logger.Logger
}

// NewPeerProjector creates a PeerProjector.
func NewPeerProjector(peers PeerWriter, users user.Repository, log *logger.Logger) *PeerProjector {
	return &PeerProjector{
		peers:   peers,
		users:   users,
		timeout: 5 * time.Second,
		log:     log.With(logger.Component("peer_projector")),
	}
}

// Register subscribes the projector to XP and enrollment events.
func (p *PeerProjector) Register(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{shared.EventXPGained, shared.EventUserOnboarded, shared.EventTrackReset} {
		if err := bus.Subscribe(t, p.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle upserts the learner's peer row.
func (p *PeerProjector) Handle(event shared.Event) error {
	var xp, level int
	switch e := event.(type) {
	case shared.XPGainedEvent:
		xp, level = e.NewTotal, e.NewLevel
	case shared.UserOnboardedEvent, shared.TrackResetEvent:
		xp, level = 0, 1
	default:
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	name := event.AggregateID()
	if u, err := p.users.GetByID(ctx, event.AggregateID()); err == nil && u.DisplayName != "" {
		name = u.DisplayName
	}

	return p.peers.Upsert(ctx, leaderboard.Peer{
		ID:    event.AggregateID(),
		Name:  name,
		XP:    xp,
		Level: level,
	})
}
