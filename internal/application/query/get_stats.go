package query

import (
	"context"
	"fmt"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATS QUERY
// Краткая статистика: последние 30 выполнений, сколько из них за неделю,
// уровень и тренды настроения/энергии (до 7 значений, новые первыми).
// ══════════════════════════════════════════════════════════════════════════════

const (
	statsCompletionLimit = 30
	statsMoodLimit       = 14
	statsTrendLength     = 7
	statsWeek            = 7 * 24 * time.Hour
)

// GetStatsQuery - параметры запроса статистики.
type GetStatsQuery struct {
	UserID string
}

// Validate проверяет корректность параметров.
func (q GetStatsQuery) Validate() error {
	return shared.ValidateID("GetStats", q.UserID)
}

// StatsView - ответ статистики.
type StatsView struct {
	TotalHabitsCompleted int                `json:"total_habits_completed"`
	WeekCompletions      int                `json:"week_completions"`
	CurrentLevel         int                `json:"current_level"`
	AvatarEvolution      progress.Evolution `json:"avatar_evolution"`
	MoodTrend            []int              `json:"mood_trend"`
	EnergyTrend          []int              `json:"energy_trend"`
}

// GetStatsHandler обрабатывает запрос статистики.
type GetStatsHandler struct {
	users       user.Repository
	completions habit.CompletionRepository
	moods       habit.MoodRepository
	clock       timeutil.Clock
}

// NewGetStatsHandler создаёт обработчик.
func NewGetStatsHandler(users user.Repository, completions habit.CompletionRepository, moods habit.MoodRepository, clock timeutil.Clock) *GetStatsHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &GetStatsHandler{users: users, completions: completions, moods: moods, clock: clock}
}

// Handle возвращает статистику или shared.ErrUserNotFound.
func (h *GetStatsHandler) Handle(ctx context.Context, q GetStatsQuery) (*StatsView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	recent, err := h.completions.ListRecent(ctx, u.ID, statsCompletionLimit)
	if err != nil {
		return nil, fmt.Errorf("stats: completions: %w", err)
	}
	moods, err := h.moods.ListRecent(ctx, u.ID, statsMoodLimit)
	if err != nil {
		return nil, fmt.Errorf("stats: moods: %w", err)
	}

	weekAgo := h.clock.Now().Add(-statsWeek)
	week := 0
	for _, c := range recent {
		if !c.CompletedAt.Before(weekAgo) {
			week++
		}
	}

	info := progress.Describe(u.TotalXP)
	view := &StatsView{
		TotalHabitsCompleted: len(recent),
		WeekCompletions:      week,
		CurrentLevel:         info.Level,
		AvatarEvolution:      info.Evolution,
		MoodTrend:            []int{},
		EnergyTrend:          []int{},
	}
	for i, m := range moods {
		if i == statsTrendLength {
			break
		}
		view.MoodTrend = append(view.MoodTrend, m.MoodRating)
		view.EnergyTrend = append(view.EnergyTrend, m.EnergyLevel)
	}
	return view, nil
}
