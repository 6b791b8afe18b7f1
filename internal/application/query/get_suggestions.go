package query

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/domain/coaching"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SUGGESTIONS QUERY
// Три новые привычки от коуча. Интересы - категории активных привычек;
// при сбое поставщика возвращается фиксированный набор, ошибка не всплывает.
// ══════════════════════════════════════════════════════════════════════════════

// GetSuggestionsQuery - параметры запроса.
type GetSuggestionsQuery struct {
	UserID string
}

// Validate проверяет корректность параметров.
func (q GetSuggestionsQuery) Validate() error {
	return shared.ValidateID("GetSuggestions", q.UserID)
}

// SuggestionsView - ответ с предложениями.
type SuggestionsView struct {
	Suggestions []coaching.Suggestion `json:"suggestions"`
	Source      coaching.Source       `json:"source"`
}

// GetSuggestionsHandler обрабатывает запрос предложений.
type GetSuggestionsHandler struct {
	habits  habit.Repository
	advisor *coaching.Advisor
}

// NewGetSuggestionsHandler создаёт обработчик.
func NewGetSuggestionsHandler(habits habit.Repository, advisor *coaching.Advisor) *GetSuggestionsHandler {
	if advisor == nil {
		advisor = coaching.NewAdvisor(nil, coaching.DefaultAdvisorConfig(), nil)
	}
	return &GetSuggestionsHandler{habits: habits, advisor: advisor}
}

// Handle возвращает ровно три предложения.
func (h *GetSuggestionsHandler) Handle(ctx context.Context, q GetSuggestionsQuery) (*SuggestionsView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	habits, err := h.habits.ListActive(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("suggestions: habits: %w", err)
	}

	set := h.advisor.Suggest(ctx, coaching.Interests(habits), coaching.HabitNames(habits))
	return &SuggestionsView{Suggestions: set.Suggestions, Source: set.Source}, nil
}
