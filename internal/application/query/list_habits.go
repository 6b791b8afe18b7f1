package query

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST HABITS QUERY
// Активные привычки пользователя с отметкой "выполнено сегодня" (с начала
// текущих суток UTC). Существование пользователя не проверяется.
// ══════════════════════════════════════════════════════════════════════════════

// ListHabitsQuery - параметры запроса.
type ListHabitsQuery struct {
	UserID string
}

// Validate проверяет корректность параметров.
func (q ListHabitsQuery) Validate() error {
	return shared.ValidateID("ListHabits", q.UserID)
}

// ListHabitsHandler обрабатывает запрос списка привычек.
type ListHabitsHandler struct {
	habits      habit.Repository
	completions habit.CompletionRepository
	clock       timeutil.Clock
}

// NewListHabitsHandler создаёт обработчик.
func NewListHabitsHandler(habits habit.Repository, completions habit.CompletionRepository, clock timeutil.Clock) *ListHabitsHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ListHabitsHandler{habits: habits, completions: completions, clock: clock}
}

// Handle возвращает привычки в порядке создания. Пустой список - не ошибка.
func (h *ListHabitsHandler) Handle(ctx context.Context, q ListHabitsQuery) ([]HabitView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	habits, err := h.habits.ListActive(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_habits: %w", err)
	}
	done, err := h.completions.HabitIDsSince(ctx, q.UserID, timeutil.StartOfDay(h.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("list_habits: today's completions: %w", err)
	}

	views := make([]HabitView, 0, len(habits))
	for _, hb := range habits {
		v := NewHabitView(hb)
		completed := done[hb.ID]
		v.CompletedToday = &completed
		views = append(views, v)
	}
	return views, nil
}
