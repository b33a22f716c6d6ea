// Package leaderboard ranks a user against a comparison set of peers by XP.
package leaderboard

import (
	"context"
	"sort"

	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// Peer is one participant in the comparison set.
type Peer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`
}

// Entry is a ranked leaderboard row.
type Entry struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	XP            int    `json:"xp"`
	Level         int    `json:"level"`
	Rank          int    `json:"rank"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// PeerSource supplies the comparison set for a caller.
type PeerSource interface {
	// Peers returns up to limit peers, never including excludeUserID.
	Peers(ctx context.Context, excludeUserID string, limit int) ([]Peer, error)
}

// Rank merges the caller into peers, sorts by XP descending and assigns
// 1-based ranks by position. The sort is stable with peers placed before the
// caller, so on equal XP the earlier-listed participant ranks higher.
func Rank(caller Peer, peers []Peer) []Entry {
	entries := make([]Entry, 0, len(peers)+1)
	for _, p := range peers {
		if p.ID == caller.ID {
			continue
		}
		entries = append(entries, toEntry(p, false))
	}
	entries = append(entries, toEntry(caller, true))

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].XP > entries[j].XP
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func toEntry(p Peer, current bool) Entry {
	level := p.Level
	if level <= 0 {
		level = shared.XP(p.XP).Level()
	}
	return Entry{
		UserID:        p.ID,
		Name:          p.Name,
		XP:            p.XP,
		Level:         level,
		IsCurrentUser: current,
	}
}

// CallerRank returns the caller's rank, or 0 when absent.
func CallerRank(entries []Entry) int {
	for _, e := range entries {
		if e.IsCurrentUser {
			return e.Rank
		}
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// STATIC PEERS
// ══════════════════════════════════════════════════════════════════════════════

// StaticPeerSource serves a fixed comparison set.
type StaticPeerSource struct {
	peers []Peer
}

// NewStaticPeerSource creates a source over peers. Nil uses DefaultPeers.
func NewStaticPeerSource(peers []Peer) *StaticPeerSource {
	if peers == nil {
		peers = DefaultPeers()
	}
	return &StaticPeerSource{peers: peers}
}

// Peers returns a copy of the fixed set.
func (s *StaticPeerSource) Peers(_ context.Context, excludeUserID string, limit int) ([]Peer, error) {
	out := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		if p.ID == excludeUserID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// DefaultPeers is the seeded comparison set shown to every learner.
func DefaultPeers() []Peer {
	return []Peer{
		{ID: "peer-alex-chen", Name: "Alex Chen", XP: 2400, Level: shared.XP(2400).Level()},
		{ID: "peer-sarah-johnson", Name: "Sarah Johnson", XP: 1850, Level: shared.XP(1850).Level()},
		{ID: "peer-mike-rodriguez", Name: "Mike Rodriguez", XP: 1200, Level: shared.XP(1200).Level()},
		{ID: "peer-emily-davis", Name: "Emily Davis", XP: 950, Level: shared.XP(950).Level()},
		{ID: "peer-james-wilson", Name: "James Wilson", XP: 600, Level: shared.XP(600).Level()},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER PEERS
// ══════════════════════════════════════════════════════════════════════════════

// LearnerPeerSource compares against other learners of the same plan.
type LearnerPeerSource struct {
	repo        progress.Repository
	planVersion string
}

// NewLearnerPeerSource creates a source over the progress store.
func NewLearnerPeerSource(repo progress.Repository, planVersion string) *LearnerPeerSource {
	if planVersion == "" {
		planVersion = progress.DefaultPlanVersion
	}
	return &LearnerPeerSource{repo: repo, planVersion: planVersion}
}

// Peers returns the top learners by XP.
func (s *LearnerPeerSource) Peers(ctx context.Context, excludeUserID string, limit int) ([]Peer, error) {
	rows, err := s.repo.TopByXP(ctx, s.planVersion, excludeUserID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Peer, 0, len(rows))
	for _, r := range rows {
		name := r.DisplayName
		if name == "" {
			name = "Learner"
		}
		out = append(out, Peer{ID: r.UserID, Name: name, XP: r.CurrentXP, Level: r.Level})
	}
	return out, nil
}
