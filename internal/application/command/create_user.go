package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE USER COMMAND
// Registers a profile with default progression values.
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserCommand contains the data for a new user.
type CreateUserCommand struct {
	Username string
	Email    string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateUserCommand) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return shared.ErrInvalidUsername
	}
	if !strings.Contains(c.Email, "@") {
		return shared.ErrInvalidEmail
	}
	return nil
}

// CreateUserResult contains the stored user.
type CreateUserResult struct {
	User *user.User
}

// CreateUserHandler handles the CreateUserCommand.
type CreateUserHandler struct {
	users    user.Repository
	eventBus shared.EventPublisher
	clock    timeutil.Clock
	logger   *logger.Logger
}

// NewCreateUserHandler creates a new CreateUserHandler.
func NewCreateUserHandler(users user.Repository, eventBus shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *CreateUserHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CreateUserHandler{users: users, eventBus: eventBus, clock: clock, logger: log}
}

// Handle executes the command.
func (h *CreateUserHandler) Handle(ctx context.Context, cmd CreateUserCommand) (*CreateUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	u, err := user.NewUser(user.NewUserParams{Username: cmd.Username, Email: cmd.Email, Now: h.clock.Now()})
	if err != nil {
		return nil, err
	}
	if err := h.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create_user: save: %w", err)
	}

	event := shared.NewUserRegisteredEvent(u.ID, u.Username)
	event.CorrelationID = cmd.CorrelationID
	publish(h.eventBus, h.logger, event)
	h.logger.Info("user created", logger.UserID(u.ID), logger.String("username", u.Username))

	return &CreateUserResult{User: u}, nil
}
