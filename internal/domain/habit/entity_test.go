package habit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

func TestNewHabitDerivesReward(t *testing.T) {
	h, err := NewHabit(NewHabitParams{UserID: "u1", Name: "Run", Category: CategoryFitness, Difficulty: 3})
	require.NoError(t, err)
	assert.Equal(t, 30, h.XPReward)
	assert.Equal(t, FrequencyDaily, h.TargetFrequency)
	assert.True(t, h.IsActive)
}

func TestNewHabitValidation(t *testing.T) {
	base := NewHabitParams{UserID: "u1", Name: "Read", Category: CategoryFocus, Difficulty: 2}

	tests := []struct {
		name   string
		mutate func(p *NewHabitParams)
		want   error
	}{
		{"difficulty too low", func(p *NewHabitParams) { p.Difficulty = 0 }, shared.ErrInvalidDifficulty},
		{"difficulty too high", func(p *NewHabitParams) { p.Difficulty = 6 }, shared.ErrInvalidDifficulty},
		{"unknown category", func(p *NewHabitParams) { p.Category = "gaming" }, shared.ErrInvalidCategory},
		{"blank name", func(p *NewHabitParams) { p.Name = "  " }, shared.ErrInvalidHabitName},
		{"missing user", func(p *NewHabitParams) { p.UserID = "" }, shared.ErrInvalidID},
		{"bad frequency", func(p *NewHabitParams) { p.TargetFrequency = "hourly" }, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := NewHabit(p)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestCompletionSnapshotsReward(t *testing.T) {
	h, err := NewHabit(NewHabitParams{UserID: "u1", Name: "Sleep early", Category: CategorySleep, Difficulty: 4})
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	c, err := NewCompletion(h, "u1", at, IntPtr(4), IntPtr(5), "")
	require.NoError(t, err)

	h.Difficulty, h.XPReward = 1, XPReward(1)
	assert.Equal(t, 40, c.XPEarned)
	assert.Equal(t, "2024-06-01", c.Day)

	_, err = NewCompletion(h, "u1", at, IntPtr(9), nil, "")
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestNewMoodEntry(t *testing.T) {
	m, err := NewMoodEntry("u1", 3, 5, "ok", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, m.MoodRating)

	_, err = NewMoodEntry("u1", 0, 3, "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidMood)
	_, err = NewMoodEntry("u1", 3, 6, "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidEnergy)
}
