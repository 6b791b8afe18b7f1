package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/habitverse/habitverse-api/internal/application/command"
	"github.com/habitverse/habitverse-api/internal/application/query"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		s.writeJSON(w, r, http.StatusServiceUnavailable, HealthResponse{
			Status:  "unhealthy",
			Message: status.Message,
			Details: status,
		})
		return
	}
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "HabitVerse API is running",
		Details: status,
	})
}

// handleReady handles the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateUser handles POST /api/users.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	res, err := s.deps.CreateUser.Handle(r.Context(), command.CreateUserCommand{
		Username:      req.Username,
		Email:         req.Email,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, query.NewUserView(res.User))
}

// handleGetUser handles GET /api/users/{user_id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetUser.Handle(r.Context(), query.GetUserQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateHabit handles POST /api/habits.
func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	res, err := s.deps.CreateHabit.Handle(r.Context(), command.CreateHabitCommand{
		UserID:          req.UserID,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Difficulty:      req.Difficulty,
		TargetFrequency: req.TargetFrequency,
		CorrelationID:   getRequestID(r.Context()),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, query.NewHabitView(res.Habit))
}

// handleListHabits handles GET /api/habits/{user_id}.
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.ListHabits.Handle(r.Context(), query.ListHabitsQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, views)
}

// handleDeactivateHabit handles DELETE /api/habits/{habit_id}.
func (s *Server) handleDeactivateHabit(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.DeactivateHabit.Handle(r.Context(), command.DeactivateHabitCommand{
		HabitID:       mux.Vars(r)["habit_id"],
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, query.NewHabitView(res.Habit))
}

// CompletionResponse is returned when a completion was recorded for a known user.
type CompletionResponse struct {
	Message         string                     `json:"message"`
	XPEarned        int                        `json:"xp_earned"`
	TotalXP         int                        `json:"total_xp"`
	CurrentLevel    int                        `json:"current_level"`
	LevelUp         bool                       `json:"level_up"`
	CurrentStreak   int                        `json:"current_streak"`
	NewAchievements []query.AchievementSummary `json:"new_achievements"`
}

// CompletionAck is returned for duplicates and for unknown users.
type CompletionAck struct {
	Message  string `json:"message"`
	XPEarned int    `json:"xp_earned"`
}

// handleCompleteHabit handles POST /api/habits/{habit_id}/complete.
func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	var req CompleteHabitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	res, err := s.deps.CompleteHabit.Handle(r.Context(), command.CompleteHabitCommand{
		HabitID:       mux.Vars(r)["habit_id"],
		UserID:        req.UserID,
		MoodRating:    req.MoodRating,
		EnergyLevel:   req.EnergyLevel,
		Notes:         req.Notes,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if res.Outcome != command.OutcomeCompleted {
		s.writeJSON(w, r, http.StatusOK, CompletionAck{Message: res.Message, XPEarned: res.XPEarned})
		return
	}
	s.writeJSON(w, r, http.StatusOK, CompletionResponse{
		Message:         res.Message,
		XPEarned:        res.XPEarned,
		TotalXP:         res.TotalXP,
		CurrentLevel:    res.CurrentLevel,
		LevelUp:         res.LevelUp,
		CurrentStreak:   res.CurrentStreak,
		NewAchievements: query.NewAchievementSummaries(res.NewAchievements),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MOOD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// MoodResponse is the stored entry plus any achievements it unlocked.
type MoodResponse struct {
	query.MoodView
	NewAchievements []query.AchievementSummary `json:"new_achievements"`
}

// handleLogMood handles POST /api/mood.
func (s *Server) handleLogMood(w http.ResponseWriter, r *http.Request) {
	var req LogMoodRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	res, err := s.deps.LogMood.Handle(r.Context(), command.LogMoodCommand{
		UserID:        req.UserID,
		MoodRating:    req.MoodRating,
		EnergyLevel:   req.EnergyLevel,
		Notes:         req.Notes,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, MoodResponse{
		MoodView:        query.NewMoodView(res.Entry),
		NewAchievements: query.NewAchievementSummaries(res.NewAchievements),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ MODEL HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetDashboard handles GET /api/dashboard/{user_id}.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

// handleGetSuggestions handles GET /api/suggestions/{user_id}.
func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetSuggestions.Handle(r.Context(), query.GetSuggestionsQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

// handleGetStats handles GET /api/stats/{user_id}.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetStats.Handle(r.Context(), query.GetStatsQuery{UserID: mux.Vars(r)["user_id"]})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

// handleGetAnalytics handles GET /api/analytics/{user_id}. ?fresh=true bypasses the cache.
func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.GetAnalytics.Handle(r.Context(), query.GetAnalyticsQuery{
		UserID:    mux.Vars(r)["user_id"],
		SkipCache: getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, report)
}

// handleAchievementCatalog handles GET /api/achievements.
func (s *Server) handleAchievementCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"achievements": s.deps.GetAchievements.Catalog(),
	})
}

// handleUserAchievements handles GET /api/achievements/{user_id}.
func (s *Server) handleUserAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.GetAchievements.ForUser(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"achievements": list})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// handleError maps domain errors to HTTP status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := publicMessage(err, status)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.String("path", r.URL.Path), logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("path", r.URL.Path), logger.Int("status", status), logger.Err(err))
	}

	s.writeError(w, r, status, code, message)
}

func classify(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsConflict(err), shared.IsAlreadyExists(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return "An unexpected error occurred"
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return http.StatusText(status)
}
