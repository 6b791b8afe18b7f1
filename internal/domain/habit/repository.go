package habit

import (
	"context"
	"time"
)

// Repository определяет операции хранилища для привычек.
type Repository interface {
	// Create сохраняет привычку.
	Create(ctx context.Context, h *Habit) error

	// GetByID возвращает привычку или shared.ErrHabitNotFound.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListActive возвращает активные привычки пользователя в порядке создания.
	ListActive(ctx context.Context, userID string) ([]*Habit, error)

	// CountActive возвращает число активных привычек.
	CountActive(ctx context.Context, userID string) (int, error)

	// Deactivate выставляет is_active=false. Повторный вызов не ошибка.
	Deactivate(ctx context.Context, id string) (*Habit, error)
}

// CompletionRepository - журнал выполнений.
type CompletionRepository interface {
	// Create сохраняет выполнение. Если для (user, habit, day) запись уже есть,
	// возвращает shared.ErrAlreadyCompleted.
	Create(ctx context.Context, c *Completion) error

	// ExistsForHabitSince проверяет выполнение привычки начиная с since.
	ExistsForHabitSince(ctx context.Context, userID, habitID string, since time.Time) (bool, error)

	// ExistsBetween проверяет, было ли любое выполнение в [from, to).
	ExistsBetween(ctx context.Context, userID string, from, to time.Time) (bool, error)

	// HabitIDsSince возвращает множество привычек, выполненных начиная с since.
	HabitIDsSince(ctx context.Context, userID string, since time.Time) (map[string]bool, error)

	// CountByUser возвращает число выполнений за всё время.
	CountByUser(ctx context.Context, userID string) (int, error)

	// ListSince возвращает выполнения с completed_at >= since по возрастанию времени.
	ListSince(ctx context.Context, userID string, since time.Time) ([]*Completion, error)

	// ListRecent возвращает последние limit выполнений, новые первыми.
	ListRecent(ctx context.Context, userID string, limit int) ([]*Completion, error)
}

// MoodRepository - журнал настроения.
type MoodRepository interface {
	Create(ctx context.Context, m *MoodEntry) error
	CountByUser(ctx context.Context, userID string) (int, error)

	// ListSince возвращает записи с created_at >= since по возрастанию времени.
	ListSince(ctx context.Context, userID string, since time.Time) ([]*MoodEntry, error)

	// ListRecent возвращает последние limit записей, новые первыми.
	ListRecent(ctx context.Context, userID string, limit int) ([]*MoodEntry, error)
}
