package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LESSON QUERY
// Returns a model-generated lesson for one task. Lessons are shared by every
// learner of a track and cached per task.
// ══════════════════════════════════════════════════════════════════════════════

// LessonTTL is how long a generated lesson is cached.
const LessonTTL = 24 * time.Hour

// LessonCache stores generated lesson documents.
type LessonCache interface {
	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SchemaValidator checks a JSON document against a JSON schema.
type SchemaValidator interface {
	Validate(ctx context.Context, schema json.RawMessage, doc []byte) error
}

// LessonCacheKey is the cache key of a task's lesson.
func LessonCacheKey(trackID, taskID string) string {
	return "lesson:" + trackID + ":" + taskID
}

// GetLessonQuery selects a task.
type GetLessonQuery struct {
	UserID string
	TaskID string
}

// GetLessonResult is the lesson and whether it came from the cache.
type GetLessonResult struct {
	TaskID string         `json:"task_id"`
	Lesson *mentor.Lesson `json:"lesson"`
	Cached bool           `json:"cached"`
}

// GetLessonHandler handles GetLessonQuery.
type GetLessonHandler struct {
	planRepo     plan.Repository
	progressRepo progress.Repository
	completer    mentor.Completer
	cache        LessonCache
	validator    SchemaValidator
	planVersion  string
	timeout      time.Duration
	log          *logger.Logger
}

// NewGetLessonHandler creates a new GetLessonHandler. cache may be nil.
func NewGetLessonHandler(
	planRepo plan.Repository,
	progressRepo progress.Repository,
	completer mentor.Completer,
	cache LessonCache,
	validator SchemaValidator,
	planVersion string,
	timeout time.Duration,
	log *logger.Logger,
) *GetLessonHandler {
	if planVersion == "" {
		planVersion = progress.DefaultPlanVersion
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetLessonHandler{
		planRepo:     planRepo,
		progressRepo: progressRepo,
		completer:    completer,
		cache:        cache,
		validator:    validator,
		planVersion:  planVersion,
		timeout:      timeout,
		log:          log.With(logger.Component("lessons")),
	}
}

// Handle executes the query.
func (h *GetLessonHandler) Handle(ctx context.Context, q GetLessonQuery) (*GetLessonResult, error) {
	if q.UserID == "" || q.TaskID == "" {
		return nil, shared.NewDomainError("query", "GetLesson", shared.ErrValidation, "user_id and task_id are required")
	}

	p, err := loadProgress(ctx, h.progressRepo, q.UserID, h.planVersion)
	if err != nil {
		return nil, err
	}
	task, err := h.planRepo.GetTask(ctx, q.TaskID)
	if err != nil {
		return nil, err
	}
	if task.TrackID != p.CareerTrack {
		return nil, shared.ErrTaskNotFound
	}
	if task.Day > p.CurrentDay {
		return nil, shared.ErrTaskLocked
	}

	key := LessonCacheKey(task.TrackID, task.ID)
	if h.cache != nil {
		data, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			h.log.Warn("lesson cache read failed", logger.TaskID(task.ID), logger.Err(err))
		} else if ok {
			if lesson, err := mentor.DecodeLesson(data); err == nil {
				return &GetLessonResult{TaskID: task.ID, Lesson: lesson, Cached: true}, nil
			}
		}
	}

	trackTitle := task.TrackID
	if track, err := h.planRepo.GetTrack(ctx, task.TrackID); err == nil {
		trackTitle = track.Title
	}
	prompt, err := mentor.RenderLessonPrompt(mentor.LessonRequest{
		TrackTitle:      trackTitle,
		Day:             task.Day,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	data, err := h.completer.GenerateJSON(callCtx, prompt, mentor.LessonSchema)
	if err != nil {
		h.log.Error("lesson generation failed", logger.TaskID(task.ID), logger.Latency(time.Since(start)), logger.Err(err))
		return nil, shared.ErrMentorUnavailable.Wrap(err)
	}
	if h.validator != nil {
		if err := h.validator.Validate(ctx, mentor.LessonSchema, data); err != nil {
			h.log.Warn("lesson failed schema validation", logger.TaskID(task.ID), logger.Err(err))
			return nil, shared.ErrLessonInvalid.Wrap(err)
		}
	}
	lesson, err := mentor.DecodeLesson(data)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, data, LessonTTL); err != nil {
			h.log.Warn("lesson cache write failed", logger.TaskID(task.ID), logger.Err(err))
		}
	}

	h.log.Info("lesson generated", logger.TaskID(task.ID), logger.Latency(time.Since(start)))
	return &GetLessonResult{TaskID: task.ID, Lesson: lesson}, nil
}
