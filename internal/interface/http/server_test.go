package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/application/command"
	"github.com/habitverse/habitverse-api/internal/application/query"
	"github.com/habitverse/habitverse-api/internal/application/saga"
	"github.com/habitverse/habitverse-api/internal/infrastructure/metrics"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/memory"
	"github.com/habitverse/habitverse-api/internal/interface/http/handlers"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Meta      *ResponseMeta   `json:"meta"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	srv     *Server
	store   *memory.Store
	metrics *metrics.Metrics
	health  *handlers.CompositeHealthChecker
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	store := memory.NewStore()
	clock := timeutil.NewFixedClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	m := metrics.New()
	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("store", handlers.NewPingCheck(store))

	flow := saga.NewAchievementFlowSaga(saga.AchievementFlowDeps{
		Users:       store.Users,
		Habits:      store.Habits,
		Completions: store.Completions,
		Moods:       store.Moods,
	})

	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.RateLimitPerSecond = 0
	cfg.EnableCORS = true
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(cfg, Dependencies{
		CreateUser:      command.NewCreateUserHandler(store.Users, nil, clock, nil),
		CreateHabit:     command.NewCreateHabitHandler(store.Habits, nil, clock, nil),
		DeactivateHabit: command.NewDeactivateHabitHandler(store.Habits, nil, nil),
		CompleteHabit: command.NewCompleteHabitHandler(command.CompleteHabitDeps{
			Users:        store.Users,
			Habits:       store.Habits,
			Completions:  store.Completions,
			Achievements: flow,
			Clock:        clock,
		}),
		LogMood: command.NewLogMoodHandler(command.LogMoodDeps{
			Moods:        store.Moods,
			Achievements: flow,
			Clock:        clock,
		}),
		GetUser:    query.NewGetUserHandler(store.Users),
		ListHabits: query.NewListHabitsHandler(store.Habits, store.Completions, clock),
		GetDashboard: query.NewGetDashboardHandler(query.GetDashboardDeps{
			Users:       store.Users,
			Habits:      store.Habits,
			Completions: store.Completions,
			Moods:       store.Moods,
			Clock:       clock,
		}),
		GetSuggestions: query.NewGetSuggestionsHandler(store.Habits, nil),
		GetStats:       query.NewGetStatsHandler(store.Users, store.Completions, store.Moods, clock),
		GetAnalytics: query.NewGetAnalyticsHandler(query.GetAnalyticsDeps{
			Completions: store.Completions,
			Moods:       store.Moods,
			Clock:       clock,
		}),
		GetAchievements: query.NewGetAchievementsHandler(store.Users),
		HealthChecker:   health,
		Metrics:         m,
		MetricsHandler:  m.Handler(),
	})

	return &testServer{srv: srv, store: store, metrics: m, health: health}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func (ts *testServer) createUser(t *testing.T) string {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/users", map[string]string{
		"username": "aru",
		"email":    "aru@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var u query.UserView
	decode(t, env, &u)
	return u.ID
}

func (ts *testServer) createHabit(t *testing.T, userID string) string {
	t.Helper()
	rec, env := ts.do(t, http.MethodPost, "/api/habits", map[string]interface{}{
		"user_id":    userID,
		"name":       "Morning run",
		"category":   "fitness",
		"difficulty": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var h query.HabitView
	decode(t, env, &h)
	return h.ID
}

// ══════════════════════════════════════════════════════════════════════════════
// ENVELOPE & PROBES
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), env.RequestID)
	require.NotNil(t, env.Meta)
	assert.Equal(t, "test", env.Meta.Version)

	var body HealthResponse
	decode(t, env, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "HabitVerse API is running", body.Message)
}

func TestServer_HealthUnhealthy(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.health.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	rec, env := ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)

	var body HealthResponse
	decode(t, env, &body)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Message, "redis")

	rec, _ = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-123"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS & HABITS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_UserLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createUser(t)

	rec, env := ts.do(t, http.MethodGet, "/api/users/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]interface{}
	decode(t, env, &profile)
	assert.Equal(t, "aru", profile["username"])
	assert.EqualValues(t, 1, profile["current_level"])
	assert.EqualValues(t, 100, profile["xp_to_next_level"])
	assert.Contains(t, profile, "avatar_evolution")
}

func TestServer_GetUnknownUser(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
	assert.Equal(t, "user not found", env.Error.Message)
}

func TestServer_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		body interface{}
		want string
	}{
		{"bad email", "/api/users", map[string]string{"username": "a", "email": "nope"}, "email"},
		{"missing username", "/api/users", map[string]string{"email": "a@b.co"}, "username"},
		{"difficulty too high", "/api/habits", map[string]interface{}{
			"user_id": "u", "name": "x", "category": "fitness", "difficulty": 9,
		}, "difficulty"},
		{"unknown category", "/api/habits", map[string]interface{}{
			"user_id": "u", "name": "x", "category": "astrology", "difficulty": 2,
		}, "category"},
		{"mood out of range", "/api/mood", map[string]interface{}{
			"user_id": "u", "mood_rating": 6, "energy_level": 3,
		}, "mood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := ts.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, "invalid_request", env.Error.Code)
			assert.Contains(t, env.Error.Message, tt.want)
		})
	}
}

func TestServer_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HabitListAndDeactivate(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)
	habitID := ts.createHabit(t, userID)

	rec, env := ts.do(t, http.MethodGet, "/api/habits/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []query.HabitView
	decode(t, env, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 30, list[0].XPReward)
	assert.Equal(t, "daily", list[0].TargetFrequency)
	require.NotNil(t, list[0].CompletedToday)
	assert.False(t, *list[0].CompletedToday)

	rec, env = ts.do(t, http.MethodDelete, "/api/habits/"+habitID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deactivated query.HabitView
	decode(t, env, &deactivated)
	assert.False(t, deactivated.IsActive)

	_, env = ts.do(t, http.MethodGet, "/api/habits/"+userID, nil)
	decode(t, env, &list)
	assert.Empty(t, list)

	rec, _ = ts.do(t, http.MethodDelete, "/api/habits/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION & MOOD
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_CompleteHabitTwice(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)
	habitID := ts.createHabit(t, userID)

	rec, env := ts.do(t, http.MethodPost, "/api/habits/"+habitID+"/complete", map[string]interface{}{
		"user_id":     userID,
		"mood_rating": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var done CompletionResponse
	decode(t, env, &done)
	assert.Equal(t, "Habit completed successfully!", done.Message)
	assert.Equal(t, 30, done.XPEarned)
	assert.Equal(t, 30, done.TotalXP, "first_habit bonus is stored but not reported here")
	assert.Equal(t, 1, done.CurrentLevel)
	assert.False(t, done.LevelUp)
	assert.Equal(t, 1, done.CurrentStreak)
	require.Len(t, done.NewAchievements, 1)
	assert.Equal(t, "Baby Steps", done.NewAchievements[0].Name)

	rec, env = ts.do(t, http.MethodPost, "/api/habits/"+habitID+"/complete", map[string]interface{}{
		"user_id": userID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var dup map[string]interface{}
	decode(t, env, &dup)
	assert.Equal(t, "Habit already completed today", dup["message"])
	assert.EqualValues(t, 0, dup["xp_earned"])
	assert.NotContains(t, dup, "total_xp")

	_, env = ts.do(t, http.MethodGet, "/api/users/"+userID, nil)
	var profile query.ProfileView
	decode(t, env, &profile)
	assert.Equal(t, 80, profile.TotalXP)
	assert.Equal(t, []string{"first_habit"}, profile.Achievements)
}

func TestServer_CompleteUnknownHabit(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodPost, "/api/habits/missing/complete", map[string]interface{}{"user_id": "u1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestServer_LogMood(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)

	rec, env := ts.do(t, http.MethodPost, "/api/mood", map[string]interface{}{
		"user_id":      userID,
		"mood_rating":  4,
		"energy_level": 2,
		"notes":        "slept badly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	decode(t, env, &body)
	assert.Equal(t, userID, body["user_id"])
	assert.EqualValues(t, 4, body["mood_rating"])
	assert.EqualValues(t, 2, body["energy_level"])
	assert.Equal(t, "slept badly", body["notes"])
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, []interface{}{}, body["new_achievements"])
}

// ══════════════════════════════════════════════════════════════════════════════
// READ MODELS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_Dashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)
	habitID := ts.createHabit(t, userID)

	rec, env := ts.do(t, http.MethodGet, "/api/dashboard/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dash query.DashboardView
	decode(t, env, &dash)
	assert.Equal(t, 1, dash.TotalHabits)
	assert.Equal(t, 0, dash.TodayCompletions)
	assert.NotEmpty(t, dash.AIMessage)
	require.NotNil(t, dash.DailyQuest)
	assert.Equal(t, habitID, dash.DailyQuest.HabitID)
	assert.Equal(t, "Complete Morning run", dash.DailyQuest.Title)
	assert.Nil(t, dash.RecentMood)

	rec, _ = ts.do(t, http.MethodGet, "/api/dashboard/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SuggestionsStatsAnalytics(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)

	rec, env := ts.do(t, http.MethodGet, "/api/suggestions/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sugg query.SuggestionsView
	decode(t, env, &sugg)
	assert.Len(t, sugg.Suggestions, 3)

	rec, _ = ts.do(t, http.MethodGet, "/api/stats/"+userID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/analytics/"+userID+"?fresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report map[string]interface{}
	decode(t, env, &report)
	assert.NotEmpty(t, report)
}

func TestServer_Achievements(t *testing.T) {
	ts := newTestServer(t, nil)
	userID := ts.createUser(t)

	rec, env := ts.do(t, http.MethodGet, "/api/achievements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog struct {
		Achievements []query.AchievementView `json:"achievements"`
	}
	decode(t, env, &catalog)
	require.Len(t, catalog.Achievements, 7)
	assert.Equal(t, "first_habit", catalog.Achievements[0].ID)

	rec, env = ts.do(t, http.MethodGet, "/api/achievements/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Achievements []query.AchievementStatus `json:"achievements"`
	}
	decode(t, env, &mine)
	require.Len(t, mine.Achievements, 7)
	for _, a := range mine.Achievements {
		assert.False(t, a.Unlocked)
	}

	rec, _ = ts.do(t, http.MethodGet, "/api/achievements/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_RateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.RateLimitPerSecond = 1
		c.RateLimitBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec, _ := ts.do(t, http.MethodGet, "/live", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := ts.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "rate_limit_exceeded", env.Error.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RecoversFromPanic(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec, env := ts.do(t, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal_error", env.Error.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createUser(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `habitverse_http_requests_total{method="POST",route="/api/users",status="200"} 1`)
}
