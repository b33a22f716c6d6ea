package query

import (
	"context"
	"fmt"

	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ranks the learner among their peers by XP. A learner without a progress
// record gets an empty board.
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultPeerLimit = 10
	maxPeerLimit     = 50
)

// GetLeaderboardQuery identifies the learner.
type GetLeaderboardQuery struct {
	UserID string
	// Limit caps the number of peers (default 10, max 50).
	Limit int
}

// GetLeaderboardResult is the ranked board.
type GetLeaderboardResult struct {
	Entries    []leaderboard.Entry `json:"entries"`
	CallerRank int                 `json:"caller_rank"`
}

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	peers        leaderboard.PeerSource
	progressRepo progress.Repository
	userRepo     user.Repository
	planVersion  string
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(peers leaderboard.PeerSource, progressRepo progress.Repository, userRepo user.Repository, planVersion string) *GetLeaderboardHandler {
	if planVersion == "" {
		planVersion = progress.DefaultPlanVersion
	}
	return &GetLeaderboardHandler{peers: peers, progressRepo: progressRepo, userRepo: userRepo, planVersion: planVersion}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetLeaderboard", shared.ErrValidation, "user_id is required")
	}

	p, err := h.progressRepo.Get(ctx, q.UserID, h.planVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return &GetLeaderboardResult{Entries: []leaderboard.Entry{}}, nil
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	caller := leaderboard.Peer{ID: q.UserID, Name: "You", XP: p.CurrentXP, Level: p.Level}
	if u, err := h.userRepo.GetByID(ctx, q.UserID); err == nil && u.DisplayName != "" {
		caller.Name = u.DisplayName
	}

	peers, err := h.peers.Peers(ctx, q.UserID, shared.Limit(q.Limit, defaultPeerLimit, maxPeerLimit))
	if err != nil {
		return nil, fmt.Errorf("load peers: %w", err)
	}

	entries := leaderboard.Rank(caller, peers)
	return &GetLeaderboardResult{Entries: entries, CallerRank: leaderboard.CallerRank(entries)}, nil
}
