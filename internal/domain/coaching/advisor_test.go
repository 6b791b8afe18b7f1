package coaching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// scriptedGenerator replays canned answers and records prompts.
type scriptedGenerator struct {
	answers []string
	err     error
	prompts []Prompt
}

func (g *scriptedGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return "", g.err
	}
	if len(g.answers) == 0 {
		return "", nil
	}
	out := g.answers[0]
	g.answers = g.answers[1:]
	return out, nil
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func sampleHabits() []*habit.Habit {
	return []*habit.Habit{
		{ID: "1", Name: "Run", Category: habit.CategoryFitness},
		{ID: "2", Name: "Read", Category: habit.CategoryFocus},
		{ID: "3", Name: "Stretch", Category: habit.CategoryFitness},
		{ID: "4", Name: "Sleep by 11", Category: habit.CategorySleep},
	}
}

func TestNewContext(t *testing.T) {
	u := &user.User{TotalXP: 450, CurrentStreak: 4, Achievements: []string{"first_habit", "xp_master"}}

	c := NewContext(u, sampleHabits(), nil)
	assert.Equal(t, 3, c.Level)
	assert.Equal(t, 4, c.ActiveHabits)
	assert.Equal(t, 2, c.Achievements)
	assert.Equal(t, []string{"Run", "Read", "Stretch"}, c.RecentHabits)
	assert.Equal(t, 3, c.RecentMood)

	c = NewContext(u, nil, &habit.MoodEntry{MoodRating: 5})
	assert.Equal(t, 5, c.RecentMood)
	assert.Empty(t, c.RecentHabits)
}

func TestCoachWithoutProvider(t *testing.T) {
	a := NewAdvisor(nil, DefaultAdvisorConfig(), nil)
	msg := a.Coach(context.Background(), Context{})
	assert.Equal(t, Message{Text: NoProviderMessage, Source: SourceFallback}, msg)
	assert.False(t, a.Enabled())
}

func TestCoachProviderFailureFallsBack(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("503 from provider")}
	a := NewAdvisor(gen, DefaultAdvisorConfig(), nil)

	msg := a.Coach(context.Background(), Context{Level: 2})
	assert.Equal(t, FailureMessage, msg.Text)
	assert.Equal(t, SourceFallback, msg.Source)
}

func TestCoachEmptyOutputFallsBack(t *testing.T) {
	a := NewAdvisor(&scriptedGenerator{answers: []string{"   "}}, DefaultAdvisorConfig(), nil)
	assert.Equal(t, FailureMessage, a.Coach(context.Background(), Context{}).Text)
}

func TestCoachTimeoutFallsBack(t *testing.T) {
	a := NewAdvisor(blockingGenerator{}, AdvisorConfig{Timeout: 10 * time.Millisecond}, nil)
	assert.Equal(t, FailureMessage, a.Coach(context.Background(), Context{}).Text)
}

func TestCoachGenerated(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{"  Level 3 hero, keep the quest going!  "}}
	a := NewAdvisor(gen, DefaultAdvisorConfig(), nil)

	msg := a.Coach(context.Background(), Context{Level: 3, TotalXP: 450, RecentHabits: []string{"Run", "Read"}, RecentMood: 4})
	assert.Equal(t, Message{Text: "Level 3 hero, keep the quest going!", Source: SourceGenerated}, msg)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Equal(t, 100, p.MaxTokens)
	assert.InDelta(t, 0.7, p.Temperature, 1e-6)
	assert.Contains(t, p.Text, "Level: 3")
	assert.Contains(t, p.Text, "Total XP: 450")
	assert.Contains(t, p.Text, "Recent Habits: Run, Read")
	assert.Contains(t, p.Text, "Recent Mood: 4/5")
}
