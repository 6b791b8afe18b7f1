// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// PROGRESS RECORDER
// Порт для счётчиков прогресса. Реализуется metrics.Metrics.
// ═══════════════════════════════════════════════════════════════════════════

// ProgressRecorder принимает факты о прогрессе пользователей.
type ProgressRecorder interface {
	HabitCompleted(xp int)
	AchievementUnlocked(id string, rewardXP int)
	LevelUp()
	MoodLogged()
}

// Handlers - набор обработчиков, подписываемых на шину.
type Handlers struct {
	HabitCompleted      *OnHabitCompletedHandler
	AchievementUnlocked *OnAchievementUnlockedHandler
	MoodLogged          *OnMoodLoggedHandler
}

// NewHandlers создаёт все обработчики с общим recorder и логгером.
func NewHandlers(recorder ProgressRecorder, log *logger.Logger, config HabitCompletedConfig) Handlers {
	return Handlers{
		HabitCompleted:      NewOnHabitCompletedHandler(recorder, log, config),
		AchievementUnlocked: NewOnAchievementUnlockedHandler(recorder, log),
		MoodLogged:          NewOnMoodLoggedHandler(recorder, log),
	}
}

// Register подписывает обработчики на соответствующие типы событий.
func (h Handlers) Register(sub shared.EventSubscriber) error {
	subs := []struct {
		t  shared.EventType
		fn shared.EventHandler
	}{
		{shared.EventHabitCompleted, h.HabitCompleted.Handle},
		{shared.EventLevelUp, h.HabitCompleted.HandleLevelUp},
		{shared.EventAchievementUnlocked, h.AchievementUnlocked.Handle},
		{shared.EventMoodLogged, h.MoodLogged.Handle},
	}
	for _, s := range subs {
		if err := sub.Subscribe(s.t, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// nopRecorder используется, когда метрики выключены.
type nopRecorder struct{}

func (nopRecorder) HabitCompleted(int) {}
func (nopRecorder) AchievementUnlocked(string, int) {}
func (nopRecorder) LevelUp() {}
func (nopRecorder) MoodLogged() {}

func orNop(r ProgressRecorder) ProgressRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
