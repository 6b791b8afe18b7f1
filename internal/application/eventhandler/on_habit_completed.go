package eventhandler

import (
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON HABIT COMPLETED HANDLER
// Учитывает выполнения и повышения уровня, отмечает круглые серии.
// ═══════════════════════════════════════════════════════════════════════════

// HabitCompletedConfig содержит конфигурацию обработчика.
type HabitCompletedConfig struct {
	// StreakMilestones - длины серий, о которых пишем отдельную запись в лог.
	StreakMilestones []int
}

// DefaultHabitCompletedConfig возвращает конфигурацию по умолчанию.
func DefaultHabitCompletedConfig() HabitCompletedConfig {
	return HabitCompletedConfig{StreakMilestones: []int{7, 30, 100}}
}

// OnHabitCompletedHandler обрабатывает habit.completed и level_up.
type OnHabitCompletedHandler struct {
	recorder ProgressRecorder
	logger   *logger.Logger
	config   HabitCompletedConfig
}

// NewOnHabitCompletedHandler создаёт обработчик.
func NewOnHabitCompletedHandler(recorder ProgressRecorder, log *logger.Logger, config HabitCompletedConfig) *OnHabitCompletedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnHabitCompletedHandler{
		recorder: orNop(recorder),
		logger:   log.With(logger.Component("on_habit_completed")),
		config:   config,
	}
}

// Handle обрабатывает shared.HabitCompletedEvent.
func (h *OnHabitCompletedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.HabitCompletedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	h.recorder.HabitCompleted(e.XPEarned)

	if h.isMilestone(e.CurrentStreak) {
		h.logger.Info("streak milestone reached",
			logger.UserID(e.AggregateID()),
			logger.HabitID(e.HabitID),
			logger.Int("streak", e.CurrentStreak),
		)
	}
	return nil
}

// HandleLevelUp обрабатывает shared.LevelUpEvent.
func (h *OnHabitCompletedHandler) HandleLevelUp(event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.logger.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	h.recorder.LevelUp()
	h.logger.Info("user levelled up",
		logger.UserID(e.AggregateID()),
		logger.Int("old_level", e.OldLevel),
		logger.Int("new_level", e.NewLevel),
	)
	return nil
}

func (h *OnHabitCompletedHandler) isMilestone(streak int) bool {
	for _, m := range h.config.StreakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}
