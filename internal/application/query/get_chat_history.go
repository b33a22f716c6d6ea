package query

import (
	"context"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// GetChatHistoryQuery selects the latest messages of a learner.
type GetChatHistoryQuery struct {
	UserID string
	// Limit defaults to 50, max 200.
	Limit int
}

// GetChatHistoryResult holds messages oldest first.
type GetChatHistoryResult struct {
	Messages []mentor.Message `json:"messages"`
}

// GetChatHistoryHandler handles GetChatHistoryQuery.
type GetChatHistoryHandler struct {
	chatRepo mentor.Repository
}

// NewGetChatHistoryHandler creates a new GetChatHistoryHandler.
func NewGetChatHistoryHandler(chatRepo mentor.Repository) *GetChatHistoryHandler {
	return &GetChatHistoryHandler{chatRepo: chatRepo}
}

// Handle executes the query.
func (h *GetChatHistoryHandler) Handle(ctx context.Context, q GetChatHistoryQuery) (*GetChatHistoryResult, error) {
	if q.UserID == "" {
		return nil, shared.NewDomainError("query", "GetChatHistory", shared.ErrValidation, "user_id is required")
	}
	msgs, err := h.chatRepo.Recent(ctx, q.UserID, shared.Limit(q.Limit, 50, 200))
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []mentor.Message{}
	}
	return &GetChatHistoryResult{Messages: msgs}, nil
}
