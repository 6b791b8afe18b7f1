// Package saga contains business processes that orchestrate
// several domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT FLOW SAGA
// Flow: Load User → Count Habits/Completions/Moods → Evaluate Catalog →
//
//	Award (conditional update) → Publish Events
//
// The award is a compare-and-set on the unlocked set. When a concurrent
// request wins the race the whole flow re-reads the user and re-evaluates.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementCheckInput contains data needed to check for new achievements.
type AchievementCheckInput struct {
	// UserID - the user to check achievements for.
	UserID string

	// Trigger - what caused the check ("habit_completed", "mood_logged").
	Trigger string

	// CorrelationID is copied onto published events.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i AchievementCheckInput) Validate() error {
	return shared.ValidateID("AchievementFlow", i.UserID)
}

// AchievementFlowResult contains the result of achievement processing.
type AchievementFlowResult struct {
	// User is the state after the award (or the state that was evaluated
	// when nothing new was unlocked).
	User *user.User

	// NewAchievements - newly unlocked catalog entries, in catalog order.
	NewAchievements []progress.Achievement

	// BonusXP - total reward XP added by this run.
	BonusXP int

	// Attempts - how many evaluate/award rounds were needed.
	Attempts int

	ProcessedAt time.Time
}

// HasNewAchievements returns true if any achievements were unlocked.
func (r *AchievementFlowResult) HasNewAchievements() bool {
	return len(r.NewAchievements) > 0
}

// AchievementFlowStep represents a step in the achievement flow.
type AchievementFlowStep string

const (
	StepLoadUser     AchievementFlowStep = "load_user"
	StepLoadCounters AchievementFlowStep = "load_counters"
	StepAward        AchievementFlowStep = "award"
	StepPublish      AchievementFlowStep = "publish_events"
)

// AchievementFlowError wraps a failure with the step it happened in.
type AchievementFlowError struct {
	Step   AchievementFlowStep
	UserID string
	Err    error
}

func (e *AchievementFlowError) Error() string {
	return fmt.Sprintf("achievement flow failed at %s for user %s: %v", e.Step, e.UserID, e.Err)
}

func (e *AchievementFlowError) Unwrap() error { return e.Err }

// ══════════════════════════════════════════════════════════════════════════════
// IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementFlowSaga checks the catalog and grants newly met achievements.
type AchievementFlowSaga struct {
	users       user.Repository
	habits      habit.Repository
	completions habit.CompletionRepository
	moods       habit.MoodRepository
	eventBus    shared.EventPublisher
	retrier     *retry.Retrier
	logger      *logger.Logger
}

// AchievementFlowDeps groups the saga dependencies.
type AchievementFlowDeps struct {
	Users       user.Repository
	Habits      habit.Repository
	Completions habit.CompletionRepository
	Moods       habit.MoodRepository
	EventBus    shared.EventPublisher

	// Retrier re-runs the flow after a lost award race.
	// Defaults to retry.ConflictRetrier(shared.IsConflict).
	Retrier *retry.Retrier
	Logger  *logger.Logger
}

// NewAchievementFlowSaga creates a new achievement flow saga.
func NewAchievementFlowSaga(deps AchievementFlowDeps) *AchievementFlowSaga {
	r := deps.Retrier
	if r == nil {
		r = retry.ConflictRetrier(shared.IsConflict)
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &AchievementFlowSaga{
		users:       deps.Users,
		habits:      deps.Habits,
		completions: deps.Completions,
		moods:       deps.Moods,
		eventBus:    deps.EventBus,
		retrier:     r,
		logger:      log.With(logger.Component("achievement_flow")),
	}
}

// Execute runs the check. A missing user is reported as shared.ErrUserNotFound.
func (s *AchievementFlowSaga) Execute(ctx context.Context, input AchievementCheckInput) (*AchievementFlowResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	result := &AchievementFlowResult{}
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		result.Attempts++
		return s.attempt(ctx, input, result)
	})
	if err != nil {
		var flowErr *AchievementFlowError
		if errors.As(err, &flowErr) {
			return nil, err
		}
		return nil, &AchievementFlowError{Step: StepAward, UserID: input.UserID, Err: err}
	}
	result.ProcessedAt = time.Now().UTC()

	if result.HasNewAchievements() {
		s.publish(input, result)
		s.logger.Info("achievements unlocked",
			logger.UserID(input.UserID),
			logger.Strings("achievements", achievementIDs(result.NewAchievements)),
			logger.XPAmount(result.BonusXP),
			logger.String("trigger", input.Trigger),
			logger.Int("attempts", result.Attempts),
		)
	}
	return result, nil
}

// attempt is one evaluate/award round.
func (s *AchievementFlowSaga) attempt(ctx context.Context, input AchievementCheckInput, result *AchievementFlowResult) error {
	u, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return &AchievementFlowError{Step: StepLoadUser, UserID: input.UserID, Err: err}
	}

	snapshot, err := s.snapshot(ctx, u)
	if err != nil {
		return &AchievementFlowError{Step: StepLoadCounters, UserID: input.UserID, Err: err}
	}

	eval := progress.Evaluate(snapshot)
	if eval.Empty() {
		result.User = u
		result.NewAchievements = nil
		result.BonusXP = 0
		return nil
	}

	updated, err := s.users.AwardAchievements(ctx, u.ID, eval.IDs(), eval.BonusXP)
	if err != nil {
		if shared.IsConflict(err) {
			s.logger.Debug("achievement award lost a race, re-evaluating",
				logger.UserID(u.ID), logger.Int("attempt", result.Attempts))
			return err
		}
		return &AchievementFlowError{Step: StepAward, UserID: input.UserID, Err: err}
	}

	result.User = updated
	result.NewAchievements = eval.Unlocked
	result.BonusXP = eval.BonusXP
	return nil
}

func (s *AchievementFlowSaga) snapshot(ctx context.Context, u *user.User) (progress.Snapshot, error) {
	habitCount, err := s.habits.CountActive(ctx, u.ID)
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("count habits: %w", err)
	}
	completions, err := s.completions.CountByUser(ctx, u.ID)
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("count completions: %w", err)
	}
	moods, err := s.moods.CountByUser(ctx, u.ID)
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("count mood entries: %w", err)
	}
	return progress.Snapshot{
		TotalXP:       u.TotalXP,
		CurrentStreak: u.CurrentStreak,
		Unlocked:      u.Achievements,
		HabitCount:    habitCount,
		Completions:   completions,
		MoodEntries:   moods,
	}, nil
}

// publish emits one event per unlock. Failures are logged; the award stands.
func (s *AchievementFlowSaga) publish(input AchievementCheckInput, result *AchievementFlowResult) {
	if s.eventBus == nil {
		return
	}
	for _, a := range result.NewAchievements {
		event := shared.NewAchievementUnlockedEvent(input.UserID, a.ID, a.RewardXP)
		event.CorrelationID = input.CorrelationID
		if err := s.eventBus.Publish(event); err != nil {
			s.logger.Warn("failed to publish achievement event",
				logger.UserID(input.UserID), logger.AchievementID(a.ID), logger.Err(err))
		}
	}
}

func achievementIDs(list []progress.Achievement) []string {
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}
