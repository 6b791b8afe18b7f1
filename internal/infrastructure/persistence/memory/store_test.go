package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

func TestUserAtomicUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u, err := user.NewUser(user.NewUserParams{Username: "ann", Email: "ann@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Users.Create(ctx, u))
	assert.ErrorIs(t, s.Users.Create(ctx, u), shared.ErrAlreadyExists)

	after, err := s.Users.ApplyCompletion(ctx, u.ID, 30, 2)
	require.NoError(t, err)
	assert.Equal(t, 30, after.TotalXP)
	assert.Equal(t, 2, after.LongestStreak)

	after, err = s.Users.AwardAchievements(ctx, u.ID, []string{"first_habit"}, 50)
	require.NoError(t, err)
	assert.Equal(t, 80, after.TotalXP)

	_, err = s.Users.AwardAchievements(ctx, u.ID, []string{"xp_master", "first_habit"}, 150)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	stored, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.TotalXP)
	assert.Equal(t, []string{"first_habit"}, stored.Achievements)

	_, err = s.Users.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestCompletionQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h := &habit.Habit{ID: "h1", UserID: "u1", XPReward: 20, IsActive: true}
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	c1, err := habit.NewCompletion(h, "u1", day.Add(-2*time.Hour), nil, nil, "")
	require.NoError(t, err)
	c2, err := habit.NewCompletion(h, "u1", day.Add(9*time.Hour), nil, nil, "")
	require.NoError(t, err)
	require.NoError(t, s.Completions.Create(ctx, c2))
	require.NoError(t, s.Completions.Create(ctx, c1))

	dup, err := habit.NewCompletion(h, "u1", day.Add(10*time.Hour), nil, nil, "")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Completions.Create(ctx, dup), shared.ErrAlreadyCompleted)

	ok, err := s.Completions.ExistsBetween(ctx, "u1", day.Add(-24*time.Hour), day)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Completions.ExistsForHabitSince(ctx, "u1", "h1", day.Add(12*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.Completions.ListSince(ctx, "u1", day.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CompletedAt.Before(list[1].CompletedAt))

	recent, err := s.Completions.ListRecent(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, c2.ID, recent[0].ID)

	n, err := s.Completions.CountByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHabitDeactivate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	h, err := habit.NewHabit(habit.NewHabitParams{UserID: "u1", Name: "Run", Category: habit.CategoryFitness, Difficulty: 2})
	require.NoError(t, err)
	require.NoError(t, s.Habits.Create(ctx, h))

	n, err := s.Habits.CountActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Habits.Deactivate(ctx, h.ID)
	require.NoError(t, err)
	active, err := s.Habits.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = s.Habits.Deactivate(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrHabitNotFound)
}
