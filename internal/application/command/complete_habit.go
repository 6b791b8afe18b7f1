package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/application/saga"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE HABIT COMMAND
// Records today's completion of a habit and applies progression:
//
//	Habit Lookup → Duplicate Check → Insert Completion → Streak →
//	XP/Streak Update → Level Up → Achievement Flow → Events
//
// Everything after the habit lookup runs under the per-user lock. The
// one-per-day unique index in the store backs up the duplicate check.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultCompletionRating is stored when a completion omits mood or energy.
const DefaultCompletionRating = 4

// Response messages.
const (
	MessageCompleted        = "Habit completed successfully!"
	MessageCompletedNoUser  = "Habit completed!"
	MessageAlreadyCompleted = "Habit already completed today"
)

// CompletionOutcome tells the caller which response shape applies.
type CompletionOutcome string

const (
	// OutcomeCompleted - completion stored and progression applied.
	OutcomeCompleted CompletionOutcome = "completed"

	// OutcomeDuplicate - the habit was already completed today; nothing changed.
	OutcomeDuplicate CompletionOutcome = "duplicate"

	// OutcomeNoUser - completion stored, but the user does not exist.
	OutcomeNoUser CompletionOutcome = "no_user"
)

// CompleteHabitCommand contains the data to complete a habit.
type CompleteHabitCommand struct {
	HabitID string
	UserID  string

	// MoodRating and EnergyLevel default to 4 when nil.
	MoodRating  *int
	EnergyLevel *int
	Notes       string

	CorrelationID string
}

// Validate validates the command.
func (c CompleteHabitCommand) Validate() error {
	if err := shared.ValidateID("CompleteHabit", c.HabitID); err != nil {
		return err
	}
	if err := shared.ValidateID("CompleteHabit", c.UserID); err != nil {
		return err
	}
	if c.MoodRating != nil && !shared.ValidateRating(*c.MoodRating) {
		return shared.ErrInvalidMood
	}
	if c.EnergyLevel != nil && !shared.ValidateRating(*c.EnergyLevel) {
		return shared.ErrInvalidEnergy
	}
	return nil
}

// CompleteHabitResult contains the outcome of a completion.
type CompleteHabitResult struct {
	Outcome CompletionOutcome
	Message string

	// XPEarned is 0 for duplicates.
	XPEarned int

	// Progression fields are set only for OutcomeCompleted.
	// TotalXP, CurrentLevel and LevelUp reflect the completion XP only;
	// achievement rewards are stored but reported via NewAchievements.
	TotalXP         int
	CurrentLevel    int
	LevelUp         bool
	CurrentStreak   int
	NewAchievements []progress.Achievement

	Completion *habit.Completion
}

// CompleteHabitHandler handles the CompleteHabitCommand.
type CompleteHabitHandler struct {
	users        user.Repository
	habits       habit.Repository
	completions  habit.CompletionRepository
	achievements *saga.AchievementFlowSaga
	locker       Locker
	analytics    AnalyticsInvalidator
	eventBus     shared.EventPublisher
	clock        timeutil.Clock
	logger       *logger.Logger
}

// CompleteHabitDeps groups the handler dependencies.
type CompleteHabitDeps struct {
	Users        user.Repository
	Habits       habit.Repository
	Completions  habit.CompletionRepository
	Achievements *saga.AchievementFlowSaga
	Locker       Locker
	Analytics    AnalyticsInvalidator
	EventBus     shared.EventPublisher
	Clock        timeutil.Clock
	Logger       *logger.Logger
}

// NewCompleteHabitHandler creates a new CompleteHabitHandler.
func NewCompleteHabitHandler(deps CompleteHabitDeps) *CompleteHabitHandler {
	h := &CompleteHabitHandler{
		users:        deps.Users,
		habits:       deps.Habits,
		completions:  deps.Completions,
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
	h.logger = h.logger.With(logger.Component("complete_habit"))
	return h
}

// Handle executes the command.
func (h *CompleteHabitHandler) Handle(ctx context.Context, cmd CompleteHabitCommand) (*CompleteHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return nil, err
	}

	release, err := h.locker.Lock(ctx, UserLockKey(cmd.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := h.clock.Now()
	log := h.logger.With(logger.UserID(cmd.UserID), logger.HabitID(hb.ID))

	// Step 1: Duplicate check
	done, err := h.completions.ExistsForHabitSince(ctx, cmd.UserID, hb.ID, timeutil.StartOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("complete_habit: duplicate check: %w", err)
	}
	if done {
		return duplicateResult(), nil
	}

	// Step 2: Insert completion
	completion, err := habit.NewCompletion(hb, cmd.UserID, now,
		ratingOrDefault(cmd.MoodRating), ratingOrDefault(cmd.EnergyLevel), cmd.Notes)
	if err != nil {
		return nil, err
	}
	if err := h.completions.Create(ctx, completion); err != nil {
		if errors.Is(err, shared.ErrAlreadyCompleted) {
			log.Warn("duplicate completion rejected by store")
			return duplicateResult(), nil
		}
		return nil, fmt.Errorf("complete_habit: save completion: %w", err)
	}
	h.invalidateAnalytics(ctx, cmd.UserID)

	// Step 3: Load user
	u, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			log.Warn("completion recorded for unknown user")
			return &CompleteHabitResult{
				Outcome:    OutcomeNoUser,
				Message:    MessageCompletedNoUser,
				XPEarned:   completion.XPEarned,
				Completion: completion,
			}, nil
		}
		return nil, fmt.Errorf("complete_habit: load user: %w", err)
	}

	// Step 4: Streak
	from, to := timeutil.YesterdayWindow(now)
	completedYesterday, err := h.completions.ExistsBetween(ctx, cmd.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("complete_habit: yesterday lookup: %w", err)
	}
	streak, _ := progress.NextStreak(u.CurrentStreak, u.LongestStreak, completedYesterday)

	// Step 5: Atomic XP/streak update
	oldLevel := progress.Level(u.TotalXP)
	updated, err := h.users.ApplyCompletion(ctx, u.ID, completion.XPEarned, streak)
	if err != nil {
		return nil, fmt.Errorf("complete_habit: apply progress: %w", err)
	}

	// Step 6: Achievements
	flow, err := h.achievements.Execute(ctx, saga.AchievementCheckInput{
		UserID:        u.ID,
		Trigger:       "habit_completed",
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, err
	}

	newLevel := progress.Level(updated.TotalXP)
	result := &CompleteHabitResult{
		Outcome:         OutcomeCompleted,
		Message:         MessageCompleted,
		XPEarned:        completion.XPEarned,
		TotalXP:         updated.TotalXP,
		CurrentLevel:    newLevel,
		LevelUp:         newLevel > oldLevel,
		CurrentStreak:   updated.CurrentStreak,
		NewAchievements: flow.NewAchievements,
		Completion:      completion,
	}

	// Step 7: Events
	h.publishEvents(cmd, result, oldLevel)

	log.Info("habit completed",
		logger.XPAmount(result.XPEarned),
		logger.Int("total_xp", result.TotalXP),
		logger.Int("streak", result.CurrentStreak),
		logger.Bool("level_up", result.LevelUp),
		logger.Int("new_achievements", len(result.NewAchievements)),
	)
	return result, nil
}

func (h *CompleteHabitHandler) publishEvents(cmd CompleteHabitCommand, r *CompleteHabitResult, oldLevel int) {
	completed := shared.NewHabitCompletedEvent(cmd.UserID, cmd.HabitID,
		r.XPEarned, r.TotalXP, r.CurrentLevel, r.LevelUp, r.CurrentStreak)
	completed.CorrelationID = cmd.CorrelationID
	publish(h.eventBus, h.logger, completed)

	if r.LevelUp {
		levelUp := shared.NewLevelUpEvent(cmd.UserID, oldLevel, r.CurrentLevel)
		levelUp.CorrelationID = cmd.CorrelationID
		publish(h.eventBus, h.logger, levelUp)
	}
}

func (h *CompleteHabitHandler) invalidateAnalytics(ctx context.Context, userID string) {
	if err := h.analytics.Invalidate(ctx, userID); err != nil {
		h.logger.Warn("failed to invalidate analytics cache", logger.UserID(userID), logger.Err(err))
	}
}

func duplicateResult() *CompleteHabitResult {
	return &CompleteHabitResult{Outcome: OutcomeDuplicate, Message: MessageAlreadyCompleted}
}

func ratingOrDefault(v *int) *int {
	if v == nil {
		return habit.IntPtr(DefaultCompletionRating)
	}
	return habit.IntPtr(*v)
}

