package query

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/plan"
)

// ListTracksResult lists the available career tracks.
type ListTracksResult struct {
	Tracks []plan.Track `json:"tracks"`
}

// ListTracksHandler returns every track of the curriculum.
type ListTracksHandler struct {
	planRepo plan.Repository
}

// NewListTracksHandler creates a new ListTracksHandler.
func NewListTracksHandler(planRepo plan.Repository) *ListTracksHandler {
	return &ListTracksHandler{planRepo: planRepo}
}

// Handle executes the query.
func (h *ListTracksHandler) Handle(ctx context.Context) (*ListTracksResult, error) {
	tracks, err := h.planRepo.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []plan.Track{}
	}
	return &ListTracksResult{Tracks: tracks}, nil
}
