package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
)

type recordingWriter struct {
	peers []leaderboard.Peer
	err   error
}

func (w *recordingWriter) Upsert(_ context.Context, peers ...leaderboard.Peer) error {
	if w.err != nil {
		return w.err
	}
	w.peers = append(w.peers, peers...)
	return nil
}

type failingSource struct{}

func (failingSource) Peers(context.Context, string, int) ([]leaderboard.Peer, error) {
	return nil, errors.New("db down")
}

func TestRebuildPeersJob(t *testing.T) {
	source := leaderboard.NewStaticPeerSource(leaderboard.DefaultPeers())
	target := &recordingWriter{}
	job := NewRebuildPeersJob(source, target, 3, nil)

	assert.Equal(t, "rebuild_peers", job.Name())
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, target.peers, 3)
	assert.Equal(t, "peer-alex-chen", target.peers[0].ID)
	assert.Equal(t, 3, job.LastCount())
}

func TestRebuildPeersJob_Errors(t *testing.T) {
	job := NewRebuildPeersJob(failingSource{}, &recordingWriter{}, 0, nil)
	assert.ErrorContains(t, job.Run(context.Background()), "load learners")

	job = NewRebuildPeersJob(leaderboard.NewStaticPeerSource(leaderboard.DefaultPeers()), &recordingWriter{err: errors.New("redis down")}, 0, nil)
	assert.ErrorContains(t, job.Run(context.Background()), "write peers")
	assert.Equal(t, 0, job.LastCount())
}
