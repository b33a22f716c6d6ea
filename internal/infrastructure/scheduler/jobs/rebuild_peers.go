// Package jobs contains the scheduled jobs of CareerWise Hub.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// PeerWriter stores leaderboard peers.
type PeerWriter interface {
	Upsert(ctx context.Context, peers ...leaderboard.Peer) error
}

// RebuildPeersJob copies the top learners from the progress store into the
// cached peer set. The event projector keeps the cache current between runs;
// the job seeds it at startup and repairs drift from dropped events.
type RebuildPeersJob struct {
	source leaderboard.PeerSource
	target PeerWriter
	limit  int
	log    *logger.Logger

	lastCount atomic.Int64
}

// NewRebuildPeersJob creates the job. limit bounds how many learners are copied.
func NewRebuildPeersJob(source leaderboard.PeerSource, target PeerWriter, limit int, log *logger.Logger) *RebuildPeersJob {
	if limit <= 0 {
		limit = 500
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RebuildPeersJob{
		source: source,
		target: target,
		limit:  limit,
		log:    log.With(logger.Component("rebuild_peers")),
	}
}

func (j *RebuildPeersJob) Name() string { return "rebuild_peers" }

func (j *RebuildPeersJob) Description() string {
	return "Copies the top learners by XP into the leaderboard peer cache"
}

// Run performs one rebuild.
func (j *RebuildPeersJob) Run(ctx context.Context) error {
	start := time.Now()

	peers, err := j.source.Peers(ctx, "", j.limit)
	if err != nil {
		return fmt.Errorf("load learners: %w", err)
	}
	if err := j.target.Upsert(ctx, peers...); err != nil {
		return fmt.Errorf("write peers: %w", err)
	}

	j.lastCount.Store(int64(len(peers)))
	j.log.Info("peer set rebuilt", logger.Int("peers", len(peers)), logger.Latency(time.Since(start)))
	return nil
}

// LastCount returns the number of peers written by the last successful run.
func (j *RebuildPeersJob) LastCount() int {
	return int(j.lastCount.Load())
}
