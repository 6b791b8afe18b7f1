package query

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/domain/coaching"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Главный экран: профиль, активные привычки, прогресс за сегодня,
// сообщение коуча, ежедневный квест и последнее настроение.
// ══════════════════════════════════════════════════════════════════════════════

// recentMoodLimit - сколько последних записей настроения читать.
const recentMoodLimit = 7

// GetDashboardQuery - параметры запроса дашборда.
type GetDashboardQuery struct {
	UserID string
}

// Validate проверяет корректность параметров.
func (q GetDashboardQuery) Validate() error {
	return shared.ValidateID("GetDashboard", q.UserID)
}

// DailyQuest - первая активная привычка, ещё не выполненная сегодня.
type DailyQuest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	XPReward    int    `json:"xp_reward"`
	HabitID     string `json:"habit_id"`
}

// DashboardView - ответ дашборда.
type DashboardView struct {
	User             ProfileView        `json:"user"`
	Habits           []HabitView        `json:"habits"`
	TodayCompletions int                `json:"today_completions"`
	TotalHabits      int                `json:"total_habits"`
	CompletionRate   float64            `json:"completion_rate"`
	AIMessage        string             `json:"ai_message"`
	AIMessageSource  coaching.Source    `json:"ai_message_source"`
	DailyQuest       *DailyQuest        `json:"daily_quest"`
	RecentMood       *MoodView          `json:"recent_mood"`
	Achievements     []AchievementBadge `json:"achievements"`
}

// GetDashboardHandler собирает дашборд.
type GetDashboardHandler struct {
	users       user.Repository
	habits      habit.Repository
	completions habit.CompletionRepository
	moods       habit.MoodRepository
	advisor     *coaching.Advisor
	clock       timeutil.Clock
}

// GetDashboardDeps - зависимости обработчика.
type GetDashboardDeps struct {
	Users       user.Repository
	Habits      habit.Repository
	Completions habit.CompletionRepository
	Moods       habit.MoodRepository
	Advisor     *coaching.Advisor
	Clock       timeutil.Clock
}

// NewGetDashboardHandler создаёт обработчик.
func NewGetDashboardHandler(deps GetDashboardDeps) *GetDashboardHandler {
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	advisor := deps.Advisor
	if advisor == nil {
		advisor = coaching.NewAdvisor(nil, coaching.DefaultAdvisorConfig(), nil)
	}
	return &GetDashboardHandler{
		users:       deps.Users,
		habits:      deps.Habits,
		completions: deps.Completions,
		moods:       deps.Moods,
		advisor:     advisor,
		clock:       clock,
	}
}

// Handle возвращает дашборд или shared.ErrUserNotFound.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	habits, err := h.habits.ListActive(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: habits: %w", err)
	}
	moods, err := h.moods.ListRecent(ctx, u.ID, recentMoodLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard: moods: %w", err)
	}
	today, err := h.completions.ListSince(ctx, u.ID, timeutil.StartOfDay(h.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("dashboard: today's completions: %w", err)
	}

	view := &DashboardView{
		User:             NewProfileView(u),
		Habits:           make([]HabitView, 0, len(habits)),
		TodayCompletions: len(today),
		TotalHabits:      len(habits),
		Achievements:     unlockedBadges(u),
	}
	for _, hb := range habits {
		view.Habits = append(view.Habits, NewHabitView(hb))
	}
	if len(habits) > 0 {
		view.CompletionRate = float64(len(today)) / float64(len(habits)) * 100
	}

	var latest *habit.MoodEntry
	if len(moods) > 0 {
		latest = moods[0]
		mv := NewMoodView(latest)
		view.RecentMood = &mv
	}

	view.DailyQuest = dailyQuest(habits, today)

	msg := h.advisor.Coach(ctx, coaching.NewContext(u, habits, latest))
	view.AIMessage = msg.Text
	view.AIMessageSource = msg.Source

	return view, nil
}

func dailyQuest(habits []*habit.Habit, today []*habit.Completion) *DailyQuest {
	done := make(map[string]bool, len(today))
	for _, c := range today {
		done[c.HabitID] = true
	}
	for _, hb := range habits {
		if done[hb.ID] {
			continue
		}
		return &DailyQuest{
			Title:       fmt.Sprintf("Complete %s", hb.Name),
			Description: fmt.Sprintf("Earn %d XP by completing this habit", hb.XPReward),
			XPReward:    hb.XPReward,
			HabitID:     hb.ID,
		}
	}
	return nil
}

func unlockedBadges(u *user.User) []AchievementBadge {
	out := []AchievementBadge{}
	for _, a := range progress.Catalog() {
		if u.HasAchievement(a.ID) {
			out = append(out, AchievementBadge{ID: a.ID, Name: a.Name, Description: a.Description, Icon: a.Icon})
		}
	}
	return out
}
