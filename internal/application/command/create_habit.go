package command

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE HABIT COMMAND
// Adds an active habit. The reward is fixed at creation: difficulty * 10 XP.
// The owner is not looked up; habits may reference a user created later.
// ══════════════════════════════════════════════════════════════════════════════

// CreateHabitCommand contains the data for a new habit.
type CreateHabitCommand struct {
	UserID          string
	Name            string
	Description     string
	Category        string
	Difficulty      int
	TargetFrequency string

	CorrelationID string
}

// Validate validates the command.
func (c CreateHabitCommand) Validate() error {
	if err := shared.ValidateID("CreateHabit", c.UserID); err != nil {
		return err
	}
	if c.Difficulty < habit.MinDifficulty || c.Difficulty > habit.MaxDifficulty {
		return shared.ErrInvalidDifficulty
	}
	return nil
}

// CreateHabitResult contains the stored habit.
type CreateHabitResult struct {
	Habit *habit.Habit
}

// CreateHabitHandler handles the CreateHabitCommand.
type CreateHabitHandler struct {
	habits   habit.Repository
	eventBus shared.EventPublisher
	clock    timeutil.Clock
	logger   *logger.Logger
}

// NewCreateHabitHandler creates a new CreateHabitHandler.
func NewCreateHabitHandler(habits habit.Repository, eventBus shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *CreateHabitHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CreateHabitHandler{habits: habits, eventBus: eventBus, clock: clock, logger: log}
}

// Handle executes the command.
func (h *CreateHabitHandler) Handle(ctx context.Context, cmd CreateHabitCommand) (*CreateHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := habit.NewHabit(habit.NewHabitParams{
		UserID:          cmd.UserID,
		Name:            cmd.Name,
		Description:     cmd.Description,
		Category:        habit.Category(cmd.Category),
		Difficulty:      cmd.Difficulty,
		TargetFrequency: habit.Frequency(cmd.TargetFrequency),
		Now:             h.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.habits.Create(ctx, hb); err != nil {
		return nil, fmt.Errorf("create_habit: save: %w", err)
	}

	event := shared.NewHabitCreatedEvent(hb.UserID, hb.ID, hb.Name, hb.Category.String())
	event.CorrelationID = cmd.CorrelationID
	publish(h.eventBus, h.logger, event)
	h.logger.Info("habit created",
		logger.UserID(hb.UserID), logger.HabitID(hb.ID), logger.Int("xp_reward", hb.XPReward))

	return &CreateHabitResult{Habit: hb}, nil
}
