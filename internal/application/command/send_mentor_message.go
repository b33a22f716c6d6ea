package command

import (
	"context"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND MENTOR MESSAGE COMMAND
// Stores the learner's message, asks the model for a reply grounded in the
// learner's plan state, and stores the reply.
// ══════════════════════════════════════════════════════════════════════════════

// SendMentorMessageCommand is one chat turn.
type SendMentorMessageCommand struct {
	UserID  string
	Message string
}

// Validate validates the command.
func (c SendMentorMessageCommand) Validate() error {
	return requireUserID("SendMentorMessage", c.UserID)
}

// SendMentorMessageResult holds both stored messages.
type SendMentorMessageResult struct {
	UserMessage *mentor.Message `json:"user_message"`
	Reply       *mentor.Message `json:"reply"`
}

// MentorConfig tunes the chat command.
type MentorConfig struct {
	// HistoryLimit is the number of past messages sent to the model.
	HistoryLimit int
	// Timeout bounds one model call.
	Timeout time.Duration
}

// SendMentorMessageHandler handles SendMentorMessageCommand.
type SendMentorMessageHandler struct {
	userRepo     user.Repository
	planRepo     plan.Repository
	progressRepo progress.Repository
	taskRepo     progress.TaskRepository
	chatRepo     mentor.Repository
	completer    mentor.Completer
	mcfg         MentorConfig
	cfg          EngineConfig
	log          *logger.Logger
}

// NewSendMentorMessageHandler creates a new SendMentorMessageHandler.
func NewSendMentorMessageHandler(
	userRepo user.Repository,
	planRepo plan.Repository,
	progressRepo progress.Repository,
	taskRepo progress.TaskRepository,
	chatRepo mentor.Repository,
	completer mentor.Completer,
	mcfg MentorConfig,
	cfg EngineConfig,
	log *logger.Logger,
) *SendMentorMessageHandler {
	if mcfg.HistoryLimit <= 0 {
		mcfg.HistoryLimit = 20
	}
	if mcfg.Timeout <= 0 {
		mcfg.Timeout = 60 * time.Second
	}
	return &SendMentorMessageHandler{
		userRepo:     userRepo,
		planRepo:     planRepo,
		progressRepo: progressRepo,
		taskRepo:     taskRepo,
		chatRepo:     chatRepo,
		completer:    completer,
		mcfg:         mcfg,
		cfg:          cfg.WithDefaults(),
		log:          orNop(log).With(logger.Component("mentor_chat")),
	}
}

// Handle executes the command. A model failure returns
// shared.ErrMentorUnavailable; the learner's message stays stored.
func (h *SendMentorMessageHandler) Handle(ctx context.Context, cmd SendMentorMessageCommand) (*SendMentorMessageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userMsg, err := mentor.NewMessage(cmd.UserID, mentor.RoleUser, cmd.Message, h.cfg.now())
	if err != nil {
		return nil, err
	}

	pc, err := h.promptContext(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	system, err := mentor.RenderSystemPrompt(pc)
	if err != nil {
		return nil, wrapStore("mentor: render prompt", err)
	}

	if err := h.chatRepo.Append(ctx, userMsg); err != nil {
		return nil, wrapStore("mentor: store message", err)
	}
	history, err := h.chatRepo.Recent(ctx, cmd.UserID, h.mcfg.HistoryLimit)
	if err != nil {
		return nil, wrapStore("mentor: load history", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.mcfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := h.completer.Chat(callCtx, system, history)
	if err != nil {
		h.log.Error("mentor reply failed", logger.UserID(cmd.UserID), logger.Latency(time.Since(start)), logger.Err(err))
		return nil, shared.ErrMentorUnavailable.Wrap(err)
	}

	reply, err := mentor.NewMessage(cmd.UserID, mentor.RoleMentor, text, h.cfg.now())
	if err != nil {
		return nil, shared.ErrMentorUnavailable.Wrap(err)
	}
	if err := h.chatRepo.Append(ctx, reply); err != nil {
		return nil, wrapStore("mentor: store reply", err)
	}

	h.log.Info("mentor replied", logger.UserID(cmd.UserID), logger.Latency(time.Since(start)))
	return &SendMentorMessageResult{UserMessage: userMsg, Reply: reply}, nil
}

func (h *SendMentorMessageHandler) promptContext(ctx context.Context, userID string) (mentor.PromptContext, error) {
	u, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mentor.PromptContext{}, err
	}
	pc := mentor.PromptContext{DisplayName: u.DisplayName, CurrentDay: 1, TotalDays: progress.DefaultTotalDays, Level: 1, TrackTitle: "general career growth"}

	p, err := h.progressRepo.Get(ctx, userID, h.cfg.PlanVersion)
	if err != nil {
		if shared.IsNotFound(err) {
			return pc, nil
		}
		return pc, wrapStore("mentor: load progress", err)
	}
	pc.CurrentDay = p.CurrentDay
	pc.TotalDays = p.TotalDays
	pc.StreakDays = p.StreakDays
	pc.Level = p.Level

	if track, err := h.planRepo.GetTrack(ctx, p.CareerTrack); err == nil {
		pc.TrackTitle = track.Title
	}

	tasks, err := h.planRepo.ListTasks(ctx, p.CareerTrack, p.CurrentDay)
	if err != nil {
		return pc, wrapStore("mentor: load tasks", err)
	}
	done, err := completedSet(ctx, h.taskRepo, userID)
	if err != nil {
		return pc, err
	}
	for _, t := range tasks {
		_, ok := done[t.ID]
		pc.Tasks = append(pc.Tasks, mentor.PromptTask{Title: t.Title, Kind: string(t.Kind), Completed: ok})
	}
	return pc, nil
}

// completedSet returns the ids of the learner's completed tasks.
func completedSet(ctx context.Context, repo progress.TaskRepository, userID string) (map[string]struct{}, error) {
	rows, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapStore("load task progress", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.Completed {
			out[r.TaskID] = struct{}{}
		}
	}
	return out, nil
}
