package eventhandler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/infrastructure/messaging"
)

type fakeRecorder struct {
	mu           sync.Mutex
	completions  int
	xp           int
	achievements map[string]int
	levelUps     int
	moods        int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{achievements: map[string]int{}}
}

func (r *fakeRecorder) HabitCompleted(xp int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions++
	r.xp += xp
}

func (r *fakeRecorder) AchievementUnlocked(id string, rewardXP int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.achievements[id]++
	r.xp += rewardXP
}

func (r *fakeRecorder) LevelUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levelUps++
}

func (r *fakeRecorder) MoodLogged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moods++
}

func TestHandlers_RecordProgressFromBus(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	rec := newFakeRecorder()
	require.NoError(t, NewHandlers(rec, nil, DefaultHabitCompletedConfig()).Register(bus))

	require.NoError(t, bus.Publish(shared.NewHabitCompletedEvent("u1", "h1", 80, 130, 2, true, 7)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", 1, 2)))
	require.NoError(t, bus.Publish(shared.NewAchievementUnlockedEvent("u1", "first_habit", 50)))
	require.NoError(t, bus.Publish(shared.NewMoodLoggedEvent("u1", 4, 3)))
	require.NoError(t, bus.Publish(shared.NewHabitCreatedEvent("u1", "h2", "Read", "focus")))

	assert.Equal(t, 1, rec.completions)
	assert.Equal(t, 130, rec.xp)
	assert.Equal(t, 1, rec.levelUps)
	assert.Equal(t, 1, rec.achievements["first_habit"])
	assert.Equal(t, 1, rec.moods)
}

func TestOnHabitCompleted_IgnoresOtherEvents(t *testing.T) {
	rec := newFakeRecorder()
	h := NewOnHabitCompletedHandler(rec, nil, DefaultHabitCompletedConfig())

	assert.NoError(t, h.Handle(shared.NewMoodLoggedEvent("u1", 3, 3)))
	assert.NoError(t, h.HandleLevelUp(shared.NewMoodLoggedEvent("u1", 3, 3)))
	assert.Zero(t, rec.completions)
	assert.Zero(t, rec.levelUps)
}

func TestOnHabitCompleted_Milestones(t *testing.T) {
	h := NewOnHabitCompletedHandler(nil, nil, DefaultHabitCompletedConfig())

	assert.True(t, h.isMilestone(7))
	assert.True(t, h.isMilestone(30))
	assert.False(t, h.isMilestone(8))
	assert.NoError(t, h.Handle(shared.NewHabitCompletedEvent("u1", "h1", 10, 10, 1, false, 30)))
}
