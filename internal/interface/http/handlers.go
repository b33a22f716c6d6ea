package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/careerwise/careerwise-hub/internal/application/command"
	"github.com/careerwise/careerwise-hub/internal/application/query"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/internal/interface/http/handlers"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics returns server and event bus counters as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]any{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}
	if s.rateLimiter != nil {
		metrics["rate_limited_clients"] = s.rateLimiter.size()
	}
	if s.deps.Metrics != nil {
		metrics["events"] = s.deps.Metrics()
	}

	writeJSON(w, r, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	CareerTrack string     `json:"career_track,omitempty"`
	OnboardedAt *time.Time `json:"onboarded_at,omitempty"`
}

type authResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func newUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CareerTrack: u.CareerTrack,
		OnboardedAt: u.OnboardedAt,
	}
}

func newAuthResponse(res *command.AuthResult) authResponse {
	return authResponse{User: newUserResponse(res.User), Token: res.Token, ExpiresAt: res.ExpiresAt}
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterUser == nil {
		s.notConfigured(w, r)
		return
	}
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newAuthResponse(res))
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.AuthenticateUser == nil {
		s.notConfigured(w, r)
		return
	}
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.AuthenticateUser.Handle(r.Context(), command.AuthenticateUserCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newAuthResponse(res))
}

// ══════════════════════════════════════════════════════════════════════════════
// ONBOARDING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type trackRequest struct {
	TrackID string `json:"track_id"`
}

type enrollmentResponse struct {
	Progress query.ProgressDTO `json:"progress"`
	Track    *plan.Track       `json:"track,omitempty"`
}

// handleListTracks handles GET /api/v1/tracks
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListTracks == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.ListTracks.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCompleteOnboarding handles POST /api/v1/onboarding
func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	if s.deps.CompleteOnboarding == nil {
		s.notConfigured(w, r)
		return
	}
	var req trackRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.CompleteOnboarding.Handle(r.Context(), command.CompleteOnboardingCommand{
		UserID:  currentUser(r),
		TrackID: req.TrackID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, enrollmentResponse{
		Progress: query.NewProgressDTO(res.Progress),
		Track:    res.Track,
	})
}

// handleResetTrack handles POST /api/v1/progress/reset
func (s *Server) handleResetTrack(w http.ResponseWriter, r *http.Request) {
	if s.deps.ResetTrack == nil {
		s.notConfigured(w, r)
		return
	}
	var req trackRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.deps.ResetTrack.Handle(r.Context(), command.ResetTrackCommand{
		UserID:  currentUser(r),
		TrackID: req.TrackID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, enrollmentResponse{Progress: query.NewProgressDTO(p)})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDashboard handles GET /api/v1/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetDashboard == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{UserID: currentUser(r)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetProgress handles GET /api/v1/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetProgress == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{UserID: currentUser(r)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetTasks handles GET /api/v1/tasks?day=N
func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetTasks == nil {
		s.notConfigured(w, r)
		return
	}
	day, err := getQueryParamInt(r, "day", 0)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.deps.GetTasks.Handle(r.Context(), query.GetTasksQuery{UserID: currentUser(r), Day: day})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type toggleRequest struct {
	Completed *bool `json:"completed"`
}

// handleToggleTask handles POST /api/v1/tasks/{id}/toggle
func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	if s.deps.ToggleTask == nil {
		s.notConfigured(w, r)
		return
	}
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Completed == nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "completed is required")
		return
	}

	res, err := s.deps.ToggleTask.Handle(r.Context(), command.ToggleTaskCommand{
		UserID:    currentUser(r),
		TaskID:    r.PathValue("id"),
		Completed: *req.Completed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetLesson handles GET /api/v1/tasks/{id}/lesson
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLesson == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.GetLesson.Handle(r.Context(), query.GetLessonQuery{
		UserID: currentUser(r),
		TaskID: r.PathValue("id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetAchievements handles GET /api/v1/achievements
func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAchievement == nil {
		s.notConfigured(w, r)
		return
	}
	res, err := s.deps.GetAchievement.Handle(r.Context(), query.GetAchievementsQuery{UserID: currentUser(r)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetLeaderboard handles GET /api/v1/leaderboard?limit=N
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboard == nil {
		s.notConfigured(w, r)
		return
	}
	limit, err := getQueryParamInt(r, "limit", s.config.DefaultPeerLimit)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{UserID: currentUser(r), Limit: limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// MENTOR HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type chatRequest struct {
	Message string `json:"message"`
}

// handleMentorChat handles POST /api/v1/mentor/chat
func (s *Server) handleMentorChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.SendMentorMessage == nil {
		s.notConfigured(w, r)
		return
	}
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.SendMentorMessage.Handle(r.Context(), command.SendMentorMessageCommand{
		UserID:  currentUser(r),
		Message: req.Message,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleChatHistory handles GET /api/v1/mentor/history?limit=N
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetChatHistory == nil {
		s.notConfigured(w, r)
		return
	}
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.deps.GetChatHistory.Handle(r.Context(), query.GetChatHistoryQuery{UserID: currentUser(r), Limit: limit})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func currentUser(r *http.Request) string {
	id, _ := handlers.UserIDFromContext(r.Context())
	return id
}

// decode reads a JSON body into v. It writes the error response and returns
// false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Request body is required")
		default:
			writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		}
		return false
	}
	return true
}

func (s *Server) notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Endpoint is not configured")
}

func (s *Server) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, handlers.ErrMissingToken) {
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Bearer token is required")
		return
	}
	writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
}

// writeError maps a domain error kind to an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := "An unexpected error occurred"
	var de *shared.DomainError
	if errors.As(err, &de) && status != http.StatusInternalServerError {
		message = de.Message
	}

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Err(err),
		)
	} else {
		log.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Err(err),
		)
	}

	writeJSONError(w, r, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "conflict"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case shared.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case shared.IsInvalidState(err):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, shared.ErrExternalService):
		return http.StatusBadGateway, "bad_gateway"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}
