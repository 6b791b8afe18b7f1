package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/memory"
	"github.com/habitverse/habitverse-api/pkg/retry"
)

// racingUsers simulates a concurrent request that awards the same
// achievements just before this one does.
type racingUsers struct {
	*memory.UserRepository
	races int
	calls int
}

func (r *racingUsers) AwardAchievements(ctx context.Context, id string, ids []string, bonusXP int) (*user.User, error) {
	r.calls++
	if r.calls <= r.races {
		if _, err := r.UserRepository.AwardAchievements(ctx, id, ids, bonusXP); err != nil {
			return nil, err
		}
	}
	return r.UserRepository.AwardAchievements(ctx, id, ids, bonusXP)
}

// alwaysConflicting never lets an award through.
type alwaysConflicting struct {
	*memory.UserRepository
}

func (alwaysConflicting) AwardAchievements(context.Context, string, []string, int) (*user.User, error) {
	return nil, shared.ErrAchievementConflict
}

func fastRetrier() *retry.Retrier {
	return retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(2*time.Millisecond),
		retry.WithRetryIf(shared.IsConflict),
	)
}

func seed(t *testing.T, store *memory.Store, totalXP, completions int) *user.User {
	t.Helper()
	ctx := context.Background()
	u, err := user.NewUser(user.NewUserParams{Username: "kim", Email: "kim@example.com"})
	require.NoError(t, err)
	u.TotalXP = totalXP
	require.NoError(t, store.Users.Create(ctx, u))

	h, err := habit.NewHabit(habit.NewHabitParams{UserID: u.ID, Name: "Run", Category: habit.CategoryFitness, Difficulty: 2})
	require.NoError(t, err)
	require.NoError(t, store.Habits.Create(ctx, h))

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < completions; i++ {
		c, err := habit.NewCompletion(h, u.ID, base.Add(time.Duration(i)*24*time.Hour), nil, nil, "")
		require.NoError(t, err)
		store.Completions.Insert(c)
	}
	return u
}

func newSaga(store *memory.Store, users user.Repository) *AchievementFlowSaga {
	return NewAchievementFlowSaga(AchievementFlowDeps{
		Users:       users,
		Habits:      store.Habits,
		Completions: store.Completions,
		Moods:       store.Moods,
		Retrier:     fastRetrier(),
	})
}

func TestAchievementFlow_BonusesCountTowardLaterEntries(t *testing.T) {
	store := memory.NewStore()
	u := seed(t, store, 460, 1)

	res, err := newSaga(store, store.Users).Execute(context.Background(), AchievementCheckInput{UserID: u.ID})
	require.NoError(t, err)

	// first_habit (+50) lifts 460 to 510, which then satisfies xp_master (+100).
	require.Len(t, res.NewAchievements, 2)
	assert.Equal(t, "first_habit", res.NewAchievements[0].ID)
	assert.Equal(t, "xp_master", res.NewAchievements[1].ID)
	assert.Equal(t, 150, res.BonusXP)
	assert.Equal(t, 610, res.User.TotalXP)
	assert.Equal(t, 1, res.Attempts)
}

func TestAchievementFlow_NothingNew(t *testing.T) {
	store := memory.NewStore()
	u := seed(t, store, 0, 0)

	res, err := newSaga(store, store.Users).Execute(context.Background(), AchievementCheckInput{UserID: u.ID})
	require.NoError(t, err)
	assert.False(t, res.HasNewAchievements())
	assert.Equal(t, u.ID, res.User.ID)
}

func TestAchievementFlow_ReevaluatesAfterLostRace(t *testing.T) {
	store := memory.NewStore()
	u := seed(t, store, 0, 1)
	users := &racingUsers{UserRepository: store.Users, races: 1}

	res, err := newSaga(store, users).Execute(context.Background(), AchievementCheckInput{UserID: u.ID})
	require.NoError(t, err)

	// The concurrent request already took first_habit; this one grants nothing.
	assert.False(t, res.HasNewAchievements())
	assert.Equal(t, 2, res.Attempts)

	stored, err := store.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.TotalXP, "bonus must be applied exactly once")
	assert.Equal(t, []string{"first_habit"}, stored.Achievements)
}

func TestAchievementFlow_GivesUpAfterRetries(t *testing.T) {
	store := memory.NewStore()
	u := seed(t, store, 0, 1)

	_, err := newSaga(store, alwaysConflicting{store.Users}).Execute(context.Background(), AchievementCheckInput{UserID: u.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	var flowErr *AchievementFlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, StepAward, flowErr.Step)
}

func TestAchievementFlow_UnknownUser(t *testing.T) {
	store := memory.NewStore()

	_, err := newSaga(store, store.Users).Execute(context.Background(), AchievementCheckInput{UserID: "missing"})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))

	_, err = newSaga(store, store.Users).Execute(context.Background(), AchievementCheckInput{})
	assert.True(t, shared.IsValidation(err))
}
