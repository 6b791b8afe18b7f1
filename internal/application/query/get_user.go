package query

import (
	"context"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER QUERY
// Профиль пользователя с уровнем, стадией аватара и XP до следующего уровня.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserQuery - параметры запроса профиля.
type GetUserQuery struct {
	UserID string
}

// Validate проверяет корректность параметров.
func (q GetUserQuery) Validate() error {
	return shared.ValidateID("GetUser", q.UserID)
}

// GetUserHandler обрабатывает запрос профиля.
type GetUserHandler struct {
	users user.Repository
}

// NewGetUserHandler создаёт обработчик.
func NewGetUserHandler(users user.Repository) *GetUserHandler {
	return &GetUserHandler{users: users}
}

// Handle возвращает профиль или shared.ErrUserNotFound.
func (h *GetUserHandler) Handle(ctx context.Context, q GetUserQuery) (*ProfileView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	u, err := h.users.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	view := NewProfileView(u)
	return &view, nil
}
