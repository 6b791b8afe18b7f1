package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/application/saga"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/memory"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(e shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventType()
	}
	return out
}

type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}

type fixture struct {
	store     *memory.Store
	clock     *timeutil.FixedClock
	bus       *recordingBus
	analytics *recordingInvalidator
	complete  *CompleteHabitHandler
	logMood   *LogMoodHandler
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		clock:     timeutil.NewFixedClock(testNow),
		bus:       &recordingBus{},
		analytics: &recordingInvalidator{},
	}
	flow := saga.NewAchievementFlowSaga(saga.AchievementFlowDeps{
		Users:       f.store.Users,
		Habits:      f.store.Habits,
		Completions: f.store.Completions,
		Moods:       f.store.Moods,
		EventBus:    f.bus,
	})
	locker := NewLocalLocker()
	f.complete = NewCompleteHabitHandler(CompleteHabitDeps{
		Users:        f.store.Users,
		Habits:       f.store.Habits,
		Completions:  f.store.Completions,
		Achievements: flow,
		Locker:       locker,
		Analytics:    f.analytics,
		EventBus:     f.bus,
		Clock:        f.clock,
	})
	f.logMood = NewLogMoodHandler(LogMoodDeps{
		Moods:        f.store.Moods,
		Achievements: flow,
		Locker:       locker,
		Analytics:    f.analytics,
		EventBus:     f.bus,
		Clock:        f.clock,
	})
	return f
}

func (f *fixture) addUser(t *testing.T, mutate func(u *user.User)) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{Username: "alex", Email: "alex@example.com", Now: testNow})
	require.NoError(t, err)
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) addHabit(t *testing.T, userID string, difficulty int) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(habit.NewHabitParams{
		UserID:     userID,
		Name:       "Read",
		Category:   habit.CategoryFocus,
		Difficulty: difficulty,
		Now:        testNow.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Habits.Create(context.Background(), h))
	return h
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE HABIT
// ══════════════════════════════════════════════════════════════════════════════

func TestCompleteHabit_FirstCompletionAwardsBabySteps(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 3)

	res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, MessageCompleted, res.Message)
	assert.Equal(t, 30, res.XPEarned)
	assert.Equal(t, 30, res.TotalXP, "the first_habit reward is not part of the completion total")
	assert.Equal(t, 1, res.CurrentLevel)
	assert.False(t, res.LevelUp)
	assert.Equal(t, 1, res.CurrentStreak)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "first_habit", res.NewAchievements[0].ID)

	stored, err := f.store.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.TotalXP)
	assert.Equal(t, []string{"first_habit"}, stored.Achievements)

	assert.Contains(t, f.bus.types(), shared.EventHabitCompleted)
	assert.Contains(t, f.bus.types(), shared.EventAchievementUnlocked)
	assert.Equal(t, []string{u.ID}, f.analytics.users)
}

func TestCompleteHabit_DefaultsRatingsToFour(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 1)

	res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{
		HabitID:    h.ID,
		UserID:     u.ID,
		MoodRating: habit.IntPtr(2),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Completion.MoodRating)
	require.NotNil(t, res.Completion.EnergyLevel)
	assert.Equal(t, 2, *res.Completion.MoodRating)
	assert.Equal(t, DefaultCompletionRating, *res.Completion.EnergyLevel)
}

func TestCompleteHabit_SecondCompletionSameDayIsNoOp(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 3)
	ctx := context.Background()

	_, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)

	f.clock.Advance(6 * time.Hour)
	res, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, MessageAlreadyCompleted, res.Message)
	assert.Zero(t, res.XPEarned)

	count, err := f.store.Completions.CountByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := f.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.TotalXP)
}

func TestCompleteHabit_NextDayIsAllowedAndExtendsStreak(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 2)
	ctx := context.Background()

	_, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	res, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, res.CurrentStreak)
}

func TestCompleteHabit_StreakRules(t *testing.T) {
	tests := []struct {
		name          string
		completedPrev bool
		wantCurrent   int
		wantLongest   int
	}{
		{name: "completed yesterday", completedPrev: true, wantCurrent: 4, wantLongest: 5},
		{name: "missed yesterday", completedPrev: false, wantCurrent: 1, wantLongest: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.addUser(t, func(u *user.User) {
				u.CurrentStreak = 3
				u.LongestStreak = 5
				u.Achievements = []string{"first_habit"}
			})
			h := f.addHabit(t, u.ID, 1)
			if tt.completedPrev {
				prev, err := habit.NewCompletion(h, u.ID, testNow.Add(-20*time.Hour), nil, nil, "")
				require.NoError(t, err)
				f.store.Completions.Insert(prev)
			}

			res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, res.CurrentStreak)

			stored, err := f.store.Users.GetByID(context.Background(), u.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLongest, stored.LongestStreak)
		})
	}
}

func TestCompleteHabit_AchievementBonusDoesNotLevelUp(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, func(u *user.User) { u.TotalXP = 60 })
	h := f.addHabit(t, u.ID, 1)

	res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)

	// 60 + 10 = 70 is still level 1; the first_habit bonus is stored on top.
	assert.Equal(t, 70, res.TotalXP)
	assert.Equal(t, 1, res.CurrentLevel)
	assert.False(t, res.LevelUp)
	assert.NotContains(t, f.bus.types(), shared.EventLevelUp)

	stored, err := f.store.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.TotalXP)
}

func TestCompleteHabit_LevelUpFromCompletionXP(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, func(u *user.User) {
		u.TotalXP = 95
		u.Achievements = []string{"first_habit"}
	})
	h := f.addHabit(t, u.ID, 1)

	res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)

	assert.Equal(t, 105, res.TotalXP)
	assert.Equal(t, 2, res.CurrentLevel)
	assert.True(t, res.LevelUp)
	assert.Contains(t, f.bus.types(), shared.EventLevelUp)
}

func TestCompleteHabit_SeventhDayUnlocksWeekWarriorOnce(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, func(u *user.User) {
		u.CurrentStreak = 6
		u.LongestStreak = 6
		u.Achievements = []string{"first_habit"}
	})
	h := f.addHabit(t, u.ID, 2)
	prev, err := habit.NewCompletion(h, u.ID, testNow.Add(-20*time.Hour), nil, nil, "")
	require.NoError(t, err)
	f.store.Completions.Insert(prev)
	ctx := context.Background()

	res, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, res.CurrentStreak)
	assert.Equal(t, 20, res.TotalXP)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "week_warrior", res.NewAchievements[0].ID)

	stored, err := f.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.TotalXP, "20 XP plus the 100 XP week_warrior reward")

	other := f.addHabit(t, u.ID, 1)
	f.clock.Advance(time.Hour)
	again, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: other.ID, UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, again.Outcome)
	assert.Empty(t, again.NewAchievements)

	stored, err = f.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_habit", "week_warrior"}, stored.Achievements)
	assert.Equal(t, 130, stored.TotalXP)
}

func TestCompleteHabit_UnknownUserStillRecords(t *testing.T) {
	f := newFixture(t)
	h := f.addHabit(t, "ghost", 4)

	res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoUser, res.Outcome)
	assert.Equal(t, MessageCompletedNoUser, res.Message)
	assert.Equal(t, 40, res.XPEarned)

	count, err := f.store.Completions.CountByUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCompleteHabit_Errors(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 1)
	ctx := context.Background()

	_, err := f.complete.Handle(ctx, CompleteHabitCommand{HabitID: "missing", UserID: u.ID})
	assert.True(t, shared.IsNotFound(err))

	_, err = f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: ""})
	assert.True(t, shared.IsValidation(err))

	_, err = f.complete.Handle(ctx, CompleteHabitCommand{HabitID: h.ID, UserID: u.ID, EnergyLevel: habit.IntPtr(9)})
	assert.True(t, shared.IsValidation(err))
}

func TestCompleteHabit_ConcurrentRequestsCompleteOnce(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	h := f.addHabit(t, u.ID, 3)

	const workers = 12
	results := make([]*CompleteHabitResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.complete.Handle(context.Background(), CompleteHabitCommand{HabitID: h.ID, UserID: u.ID})
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, r := range results {
		if r != nil && r.Outcome == OutcomeCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)

	stored, err := f.store.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.TotalXP)
	assert.Equal(t, []string{"first_habit"}, stored.Achievements)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG MOOD
// ══════════════════════════════════════════════════════════════════════════════

func TestLogMood_TenthEntryUnlocksMoodTracker(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, nil)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		res, err := f.logMood.Handle(ctx, LogMoodCommand{UserID: u.ID, MoodRating: 4, EnergyLevel: 3})
		require.NoError(t, err)
		assert.Empty(t, res.NewAchievements)
		f.clock.Advance(time.Hour)
	}

	res, err := f.logMood.Handle(ctx, LogMoodCommand{UserID: u.ID, MoodRating: 5, EnergyLevel: 5, Notes: "great"})
	require.NoError(t, err)
	require.Len(t, res.NewAchievements, 1)
	assert.Equal(t, "mood_tracker", res.NewAchievements[0].ID)
	assert.Equal(t, "great", res.Entry.Notes)

	stored, err := f.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.TotalXP)
}

func TestLogMood_UnknownUserStoresEntry(t *testing.T) {
	f := newFixture(t)

	res, err := f.logMood.Handle(context.Background(), LogMoodCommand{UserID: "nobody", MoodRating: 2, EnergyLevel: 1})
	require.NoError(t, err)
	assert.NotNil(t, res.NewAchievements)
	assert.Empty(t, res.NewAchievements)

	count, err := f.store.Moods.CountByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, f.bus.types(), shared.EventMoodLogged)
}

func TestLogMood_RejectsOutOfRangeRatings(t *testing.T) {
	f := newFixture(t)

	_, err := f.logMood.Handle(context.Background(), LogMoodCommand{UserID: "u", MoodRating: 0, EnergyLevel: 3})
	assert.ErrorIs(t, err, shared.ErrInvalidMood)

	_, err = f.logMood.Handle(context.Background(), LogMoodCommand{UserID: "u", MoodRating: 3, EnergyLevel: 6})
	assert.ErrorIs(t, err, shared.ErrInvalidEnergy)
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS AND HABITS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateUser(t *testing.T) {
	store := memory.NewStore()
	bus := &recordingBus{}
	h := NewCreateUserHandler(store.Users, bus, timeutil.NewFixedClock(testNow), nil)

	res, err := h.Handle(context.Background(), CreateUserCommand{Username: "sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, 1, res.User.AvatarLevel)
	assert.Equal(t, "forest", res.User.WorldType)
	assert.Equal(t, []shared.EventType{shared.EventUserRegistered}, bus.types())

	_, err = h.Handle(context.Background(), CreateUserCommand{Username: "", Email: "x@example.com"})
	assert.True(t, shared.IsValidation(err))
}

func TestCreateHabit_RewardFollowsDifficulty(t *testing.T) {
	store := memory.NewStore()
	h := NewCreateHabitHandler(store.Habits, &recordingBus{}, timeutil.NewFixedClock(testNow), nil)

	res, err := h.Handle(context.Background(), CreateHabitCommand{
		UserID:     "u1",
		Name:       "Stretch",
		Category:   "fitness",
		Difficulty: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Habit.XPReward)
	assert.True(t, res.Habit.IsActive)
	assert.Equal(t, habit.FrequencyDaily, res.Habit.TargetFrequency)

	_, err = h.Handle(context.Background(), CreateHabitCommand{UserID: "u1", Name: "x", Category: "fitness", Difficulty: 6})
	assert.ErrorIs(t, err, shared.ErrInvalidDifficulty)

	_, err = h.Handle(context.Background(), CreateHabitCommand{UserID: "u1", Name: "x", Category: "cooking", Difficulty: 2})
	assert.ErrorIs(t, err, shared.ErrInvalidCategory)
}

func TestDeactivateHabit(t *testing.T) {
	store := memory.NewStore()
	bus := &recordingBus{}
	create := NewCreateHabitHandler(store.Habits, bus, nil, nil)
	deactivate := NewDeactivateHabitHandler(store.Habits, bus, nil)
	ctx := context.Background()

	created, err := create.Handle(ctx, CreateHabitCommand{UserID: "u1", Name: "Sleep early", Category: "sleep", Difficulty: 2})
	require.NoError(t, err)

	res, err := deactivate.Handle(ctx, DeactivateHabitCommand{HabitID: created.Habit.ID})
	require.NoError(t, err)
	assert.False(t, res.Habit.IsActive)

	active, err := store.Habits.CountActive(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, active)

	_, err = deactivate.Handle(ctx, DeactivateHabitCommand{HabitID: "missing"})
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, []shared.EventType{shared.EventHabitCreated, shared.EventHabitDeactivated}, bus.types())
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL LOCKER
// ══════════════════════════════════════════════════════════════════════════════

func TestLocalLocker_ExcludesSameKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Lock(ctx, "user:a")
	require.NoError(t, err)

	other, err := l.Lock(ctx, "user:b")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "user:a")
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	release()
	release()

	again, err := l.Lock(ctx, "user:a")
	require.NoError(t, err)
	again()
	assert.Zero(t, l.Held())
}
