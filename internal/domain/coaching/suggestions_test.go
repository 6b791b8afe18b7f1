package coaching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

const validSuggestions = `[
  {"name": "Hydrate", "description": "Drink a glass of water after waking", "category": "wellness"},
  {"name": "Deep Work", "description": "One 25 minute focus block", "category": "focus"},
  {"name": "Lights Out", "description": "Screens off at 22:30", "category": "sleep"}
]`

func TestInterests(t *testing.T) {
	assert.Equal(t, []string{"fitness", "focus", "sleep"}, Interests(sampleHabits()))
	assert.Equal(t, DefaultInterests, Interests(nil))
	assert.Equal(t, []string{"Run", "Read", "Stretch", "Sleep by 11"}, HabitNames(sampleHabits()))
}

func TestSuggestWithoutProvider(t *testing.T) {
	set := NewAdvisor(nil, DefaultAdvisorConfig(), nil).Suggest(context.Background(), DefaultInterests, nil)
	assert.Equal(t, SourceFallback, set.Source)
	require.Len(t, set.Suggestions, 3)
	assert.Equal(t, "Morning Meditation", set.Suggestions[0].Name)
	assert.Equal(t, "Gratitude Journal", set.Suggestions[2].Name)
}

func TestSuggestGenerated(t *testing.T) {
	gen := &scriptedGenerator{answers: []string{"```json\n" + validSuggestions + "\n```"}}
	set := NewAdvisor(gen, DefaultAdvisorConfig(), nil).Suggest(context.Background(), []string{"fitness"}, []string{"Run"})

	assert.Equal(t, SourceGenerated, set.Source)
	require.Len(t, set.Suggestions, 3)
	assert.Equal(t, Suggestion{Name: "Deep Work", Description: "One 25 minute focus block", Category: "focus"}, set.Suggestions[1])

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, 300, gen.prompts[0].MaxTokens)
	assert.InDelta(t, 0.8, gen.prompts[0].Temperature, 1e-6)
	assert.Contains(t, gen.prompts[0].Text, "these interests: fitness")
	assert.Contains(t, gen.prompts[0].Text, "these habits: Run")
}

func TestSuggestFallsBackOnFailure(t *testing.T) {
	tests := map[string]*scriptedGenerator{
		"provider error": {err: errors.New("timeout")},
		"not json":       {answers: []string{"Sure! Here are some ideas..."}},
		"two items":      {answers: []string{`[{"name":"a","description":"b","category":"fitness"},{"name":"c","description":"d","category":"sleep"}]`}},
		"bad category":   {answers: []string{`[{"name":"a","description":"b","category":"gaming"},{"name":"c","description":"d","category":"sleep"},{"name":"e","description":"f","category":"focus"}]`}},
		"object":         {answers: []string{`{"suggestions": []}`}},
	}
	for name, gen := range tests {
		t.Run(name, func(t *testing.T) {
			set := NewAdvisor(gen, DefaultAdvisorConfig(), nil).Suggest(context.Background(), DefaultInterests, nil)
			assert.Equal(t, SourceFallback, set.Source)
			assert.Equal(t, FailureSuggestions(), set.Suggestions)
		})
	}
}

func TestParseSuggestionsErrors(t *testing.T) {
	_, err := ParseSuggestions("[]")
	assert.ErrorIs(t, err, shared.ErrAIProviderMalformed)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	out, err := ParseSuggestions(validSuggestions)
	require.NoError(t, err)
	assert.Equal(t, "sleep", out[2].Category)
}
