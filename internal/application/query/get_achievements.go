package query

import (
	"context"

	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Каталог достижений и статус конкретного пользователя.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsHandler обрабатывает запросы каталога.
type GetAchievementsHandler struct {
	users user.Repository
}

// NewGetAchievementsHandler создаёт обработчик.
func NewGetAchievementsHandler(users user.Repository) *GetAchievementsHandler {
	return &GetAchievementsHandler{users: users}
}

// Catalog возвращает весь каталог в порядке объявления.
func (h *GetAchievementsHandler) Catalog() []AchievementView {
	catalog := progress.Catalog()
	out := make([]AchievementView, len(catalog))
	for i, a := range catalog {
		out[i] = newAchievementView(a)
	}
	return out
}

// ForUser возвращает каталог с флагом unlocked и условием открытия.
func (h *GetAchievementsHandler) ForUser(ctx context.Context, userID string) ([]AchievementStatus, error) {
	if err := shared.ValidateID("GetAchievements", userID); err != nil {
		return nil, err
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	catalog := progress.Catalog()
	out := make([]AchievementStatus, len(catalog))
	for i, a := range catalog {
		out[i] = AchievementStatus{
			AchievementView: newAchievementView(a),
			Unlocked:        u.HasAchievement(a.ID),
			Requirement:     a.Requirement,
		}
	}
	return out, nil
}
