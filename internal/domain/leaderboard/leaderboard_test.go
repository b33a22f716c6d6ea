package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_CallerInMiddle(t *testing.T) {
	caller := Peer{ID: "me", Name: "You", XP: 1500, Level: 4}

	entries := Rank(caller, DefaultPeers())

	require.Len(t, entries, 6)
	assert.Equal(t, 3, CallerRank(entries))
	assert.Equal(t, "Alex Chen", entries[0].Name)
	assert.Equal(t, "Sarah Johnson", entries[1].Name)
	assert.True(t, entries[2].IsCurrentUser)
	assert.Equal(t, "Mike Rodriguez", entries[3].Name)

	current := 0
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, entries[i-1].XP, e.XP)
		}
		if e.IsCurrentUser {
			current++
		}
	}
	assert.Equal(t, 1, current)
}

func TestRank_TiesGoToEarlierListed(t *testing.T) {
	caller := Peer{ID: "me", XP: 100}
	peers := []Peer{{ID: "a", XP: 100}, {ID: "b", XP: 100}}

	entries := Rank(caller, peers)

	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, "b", entries[1].UserID)
	assert.Equal(t, "me", entries[2].UserID)
	assert.Equal(t, 3, CallerRank(entries))
}

func TestRank_NoPeers(t *testing.T) {
	entries := Rank(Peer{ID: "me", XP: 0}, nil)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1, entries[0].Level)
}

func TestRank_DropsCallerFromPeers(t *testing.T) {
	entries := Rank(Peer{ID: "me", XP: 10}, []Peer{{ID: "me", XP: 999}, {ID: "x", XP: 5}})
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].XP)
	assert.True(t, entries[0].IsCurrentUser)
}

func TestStaticPeerSource(t *testing.T) {
	src := NewStaticPeerSource(nil)

	peers, err := src.Peers(context.Background(), "peer-alex-chen", 0)
	require.NoError(t, err)
	assert.Len(t, peers, 4)

	peers, err = src.Peers(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, peers, 2)
	assert.Equal(t, 5, peers[0].Level)
}
