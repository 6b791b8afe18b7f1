package user

import "context"

// Repository определяет операции хранилища для пользователей.
type Repository interface {
	// Create сохраняет нового пользователя.
	Create(ctx context.Context, u *User) error

	// GetByID возвращает пользователя или shared.ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// List возвращает пользователей постранично, упорядоченных по created_at.
	List(ctx context.Context, offset, limit int) ([]*User, error)

	// ApplyCompletion атомарно прибавляет xpDelta к total_xp, выставляет
	// current_streak и поднимает longest_streak до max(longest, current).
	// Возвращает состояние после обновления.
	ApplyCompletion(ctx context.Context, id string, xpDelta, currentStreak int) (*User, error)

	// AwardAchievements атомарно добавляет ids и bonusXP, только если ни одного
	// из ids ещё нет в наборе. Иначе возвращает shared.ErrAchievementConflict.
	AwardAchievements(ctx context.Context, id string, ids []string, bonusXP int) (*User, error)
}
