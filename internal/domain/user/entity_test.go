package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

func TestNewUserDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	u, err := NewUser(NewUserParams{Username: " alice ", Email: "alice@example.com", Now: now})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 1, u.AvatarLevel)
	assert.Equal(t, "forest", u.WorldType)
	assert.Equal(t, DefaultAvatar(), u.AvatarCustomization)
	assert.Empty(t, u.Achievements)
	assert.Zero(t, u.TotalXP)
	assert.Equal(t, now, u.CreatedAt)
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser(NewUserParams{Username: "", Email: "a@b.c"})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewUser(NewUserParams{Username: "bob", Email: "not-an-email"})
	assert.True(t, shared.IsValidation(err))
}

func TestApplyCompletionKeepsLongestAtLeastCurrent(t *testing.T) {
	u := &User{LongestStreak: 5, CurrentStreak: 5}
	u.ApplyCompletion(30, 1)
	assert.Equal(t, 30, u.TotalXP)
	assert.Equal(t, 1, u.CurrentStreak)
	assert.Equal(t, 5, u.LongestStreak)

	u.ApplyCompletion(10, 6)
	assert.Equal(t, 6, u.LongestStreak)
}

func TestAwardAndClone(t *testing.T) {
	u := &User{Achievements: []string{"first_habit"}}
	c := u.Clone()
	c.Award([]string{"week_warrior"}, 100)

	assert.True(t, c.HasAchievement("week_warrior"))
	assert.False(t, u.HasAchievement("week_warrior"))
	assert.True(t, c.HasAnyAchievement([]string{"xp_master", "first_habit"}))
	assert.Equal(t, 100, c.TotalXP)
}
