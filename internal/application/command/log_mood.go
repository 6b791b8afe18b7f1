package command

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/application/saga"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG MOOD COMMAND
// Stores a mood/energy entry and runs the achievement check. The user is not
// required to exist; for unknown users the entry is stored and no
// achievements are evaluated.
// ══════════════════════════════════════════════════════════════════════════════

// LogMoodCommand contains one mood entry.
type LogMoodCommand struct {
	UserID      string
	MoodRating  int
	EnergyLevel int
	Notes       string

	CorrelationID string
}

// Validate validates the command.
func (c LogMoodCommand) Validate() error {
	if err := shared.ValidateID("LogMood", c.UserID); err != nil {
		return err
	}
	if !shared.ValidateRating(c.MoodRating) {
		return shared.ErrInvalidMood
	}
	if !shared.ValidateRating(c.EnergyLevel) {
		return shared.ErrInvalidEnergy
	}
	return nil
}

// LogMoodResult contains the stored entry and any unlocks.
type LogMoodResult struct {
	Entry           *habit.MoodEntry
	NewAchievements []progress.Achievement
}

// LogMoodHandler handles the LogMoodCommand.
type LogMoodHandler struct {
	moods        habit.MoodRepository
	achievements *saga.AchievementFlowSaga
	locker       Locker
	analytics    AnalyticsInvalidator
	eventBus     shared.EventPublisher
	clock        timeutil.Clock
	logger       *logger.Logger
}

// LogMoodDeps groups the handler dependencies.
type LogMoodDeps struct {
	Moods        habit.MoodRepository
	Achievements *saga.AchievementFlowSaga
	Locker       Locker
	Analytics    AnalyticsInvalidator
	EventBus     shared.EventPublisher
	Clock        timeutil.Clock
	Logger       *logger.Logger
}

// NewLogMoodHandler creates a new LogMoodHandler.
func NewLogMoodHandler(deps LogMoodDeps) *LogMoodHandler {
	h := &LogMoodHandler{
		moods:        deps.Moods,
		achievements: deps.Achievements,
		locker:       deps.Locker,
		analytics:    deps.Analytics,
		eventBus:     deps.EventBus,
		clock:        deps.Clock,
		logger:       deps.Logger,
	}
	if h.locker == nil {
		h.locker = NewLocalLocker()
	}
	if h.analytics == nil {
		h.analytics = NopInvalidator{}
	}
	if h.clock == nil {
		h.clock = timeutil.SystemClock{}
	}
	if h.logger == nil {
		h.logger = logger.Nop()
	}
	h.logger = h.logger.With(logger.Component("log_mood"))
	return h
}

// Handle executes the command.
func (h *LogMoodHandler) Handle(ctx context.Context, cmd LogMoodCommand) (*LogMoodResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	release, err := h.locker.Lock(ctx, UserLockKey(cmd.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := habit.NewMoodEntry(cmd.UserID, cmd.MoodRating, cmd.EnergyLevel, cmd.Notes, h.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := h.moods.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("log_mood: save: %w", err)
	}
	if err := h.analytics.Invalidate(ctx, cmd.UserID); err != nil {
		h.logger.Warn("failed to invalidate analytics cache", logger.UserID(cmd.UserID), logger.Err(err))
	}

	event := shared.NewMoodLoggedEvent(cmd.UserID, entry.MoodRating, entry.EnergyLevel)
	event.CorrelationID = cmd.CorrelationID
	publish(h.eventBus, h.logger, event)

	result := &LogMoodResult{Entry: entry, NewAchievements: []progress.Achievement{}}

	flow, err := h.achievements.Execute(ctx, saga.AchievementCheckInput{
		UserID:        cmd.UserID,
		Trigger:       "mood_logged",
		CorrelationID: cmd.CorrelationID,
	})
	switch {
	case err == nil:
		if flow.HasNewAchievements() {
			result.NewAchievements = flow.NewAchievements
		}
	case shared.IsNotFound(err):
		h.logger.Debug("mood logged for unknown user", logger.UserID(cmd.UserID))
	default:
		return nil, err
	}

	h.logger.Info("mood logged",
		logger.UserID(cmd.UserID),
		logger.Int("mood", entry.MoodRating),
		logger.Int("energy", entry.EnergyLevel),
		logger.Int("new_achievements", len(result.NewAchievements)),
	)
	return result, nil
}
