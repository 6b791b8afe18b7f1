package command

import (
	"context"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEACTIVATE HABIT COMMAND
// Soft delete: the habit stays in storage with is_active=false so its
// completion history keeps counting toward analytics.
// ══════════════════════════════════════════════════════════════════════════════

// DeactivateHabitCommand identifies the habit to deactivate.
type DeactivateHabitCommand struct {
	HabitID       string
	CorrelationID string
}

// Validate validates the command.
func (c DeactivateHabitCommand) Validate() error {
	return shared.ValidateID("DeactivateHabit", c.HabitID)
}

// DeactivateHabitResult contains the updated habit.
type DeactivateHabitResult struct {
	Habit *habit.Habit
}

// DeactivateHabitHandler handles the DeactivateHabitCommand.
type DeactivateHabitHandler struct {
	habits   habit.Repository
	eventBus shared.EventPublisher
	logger   *logger.Logger
}

// NewDeactivateHabitHandler creates a new DeactivateHabitHandler.
func NewDeactivateHabitHandler(habits habit.Repository, eventBus shared.EventPublisher, log *logger.Logger) *DeactivateHabitHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &DeactivateHabitHandler{habits: habits, eventBus: eventBus, logger: log}
}

// Handle executes the command. Deactivating an inactive habit is a no-op.
func (h *DeactivateHabitHandler) Handle(ctx context.Context, cmd DeactivateHabitCommand) (*DeactivateHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hb, err := h.habits.Deactivate(ctx, cmd.HabitID)
	if err != nil {
		return nil, err
	}

	event := shared.NewHabitDeactivatedEvent(hb.UserID, hb.ID)
	event.CorrelationID = cmd.CorrelationID
	publish(h.eventBus, h.logger, event)
	h.logger.Info("habit deactivated", logger.UserID(hb.UserID), logger.HabitID(hb.ID))

	return &DeactivateHabitResult{Habit: hb}, nil
}
