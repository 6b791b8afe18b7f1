package eventhandler

import (
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// OnAchievementUnlockedHandler учитывает разблокированные достижения.
type OnAchievementUnlockedHandler struct {
	recorder ProgressRecorder
	logger   *logger.Logger
}

// NewOnAchievementUnlockedHandler создаёт обработчик.
func NewOnAchievementUnlockedHandler(recorder ProgressRecorder, log *logger.Logger) *OnAchievementUnlockedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnAchievementUnlockedHandler{
		recorder: orNop(recorder),
		logger:   log.With(logger.Component("on_achievement_unlocked")),
	}
}

// Handle обрабатывает shared.AchievementUnlockedEvent.
func (h *OnAchievementUnlockedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	h.recorder.AchievementUnlocked(e.AchievementID, e.RewardXP)
	h.logger.Info("achievement unlocked",
		logger.UserID(e.AggregateID()),
		logger.AchievementID(e.AchievementID),
		logger.XPAmount(e.RewardXP),
	)
	return nil
}

// OnMoodLoggedHandler учитывает записи настроения.
type OnMoodLoggedHandler struct {
	recorder ProgressRecorder
	logger   *logger.Logger
}

// NewOnMoodLoggedHandler создаёт обработчик.
func NewOnMoodLoggedHandler(recorder ProgressRecorder, log *logger.Logger) *OnMoodLoggedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnMoodLoggedHandler{
		recorder: orNop(recorder),
		logger:   log.With(logger.Component("on_mood_logged")),
	}
}

// Handle обрабатывает shared.MoodLoggedEvent.
func (h *OnMoodLoggedHandler) Handle(event shared.Event) error {
	if _, ok := event.(shared.MoodLoggedEvent); !ok {
		return nil
	}
	h.recorder.MoodLogged()
	return nil
}
