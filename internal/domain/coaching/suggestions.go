package coaching

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// SuggestionCount - сколько предложений ожидается от генератора.
const SuggestionCount = 3

// Suggestion - предложенная привычка.
type Suggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// SuggestionSet - результат режима предложений.
type SuggestionSet struct {
	Suggestions []Suggestion
	Source      Source
}

var (
	noProviderSuggestions = []Suggestion{
		{Name: "Morning Meditation", Description: "Start your day with 5 minutes of mindfulness", Category: "wellness"},
		{Name: "Evening Walk", Description: "Take a 15-minute walk to unwind", Category: "fitness"},
		{Name: "Gratitude Journal", Description: "Write down 3 things you're grateful for", Category: "wellness"},
	}
	failureSuggestions = []Suggestion{
		{Name: "Power Walk", Description: "Take a brisk 10-minute walk", Category: "fitness"},
		{Name: "Digital Detox", Description: "30 minutes without screens", Category: "wellness"},
		{Name: "Learning Sprint", Description: "Read for 15 minutes", Category: "productivity"},
	}
)

// NoProviderSuggestions возвращает копию набора "нет поставщика".
func NoProviderSuggestions() []Suggestion { return append([]Suggestion(nil), noProviderSuggestions...) }

// FailureSuggestions возвращает копию набора для сбоев.
func FailureSuggestions() []Suggestion { return append([]Suggestion(nil), failureSuggestions...) }

// Interests - различные категории активных привычек в порядке первого
// появления, либо DefaultInterests.
func Interests(habits []*habit.Habit) []string {
	seen := make(map[habit.Category]bool)
	var out []string
	for _, h := range habits {
		if seen[h.Category] {
			continue
		}
		seen[h.Category] = true
		out = append(out, h.Category.String())
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultInterests...)
	}
	return out
}

// HabitNames возвращает названия привычек.
func HabitNames(habits []*habit.Habit) []string {
	names := make([]string, len(habits))
	for i, h := range habits {
		names[i] = h.Name
	}
	return names
}

// Suggest запрашивает ровно 3 предложения привычек.
func (a *Advisor) Suggest(ctx context.Context, interests, currentHabits []string) SuggestionSet {
	if a.gen == nil {
		return SuggestionSet{Suggestions: NoProviderSuggestions(), Source: SourceFallback}
	}

	text, err := a.generate(ctx, Prompt{
		Text:        suggestionsPrompt(interests, currentHabits),
		MaxTokens:   suggestionsMaxTokens,
		Temperature: suggestionsTemperature,
	})
	var suggestions []Suggestion
	if err == nil {
		suggestions, err = ParseSuggestions(text)
	}
	if err != nil {
		a.logger.Warn("habit suggestions fell back", logger.Err(err))
		return SuggestionSet{Suggestions: FailureSuggestions(), Source: SourceFallback}
	}
	return SuggestionSet{Suggestions: suggestions, Source: SourceGenerated}
}

func suggestionsPrompt(interests, currentHabits []string) string {
	return fmt.Sprintf(`Generate 3 personalized habit suggestions for a user with these interests: %s

They already have these habits: %s

Return ONLY a JSON array with this format:
[
    {"name": "Habit Name", "description": "Brief description", "category": "fitness|focus|sleep|wellness|productivity"},
    {"name": "Habit Name", "description": "Brief description", "category": "fitness|focus|sleep|wellness|productivity"},
    {"name": "Habit Name", "description": "Brief description", "category": "fitness|focus|sleep|wellness|productivity"}
]

Make habits specific, achievable, and different from existing ones.`,
		strings.Join(interests, ", "), strings.Join(currentHabits, ", "))
}

// ParseSuggestions разбирает ответ генератора: JSON-массив ровно из 3 объектов
// с непустыми name/description и известной категорией. Обрамление ```json
// допускается.
func ParseSuggestions(text string) ([]Suggestion, error) {
	raw := stripCodeFence(text)
	if !gjson.Valid(raw) {
		return nil, shared.WrapError("coaching", "ParseSuggestions", shared.ErrInvalidFormat, "not valid JSON", shared.ErrAIProviderMalformed)
	}
	doc := gjson.Parse(raw)
	if !doc.IsArray() {
		return nil, shared.WrapError("coaching", "ParseSuggestions", shared.ErrInvalidFormat, "expected a JSON array", shared.ErrAIProviderMalformed)
	}

	items := doc.Array()
	if len(items) != SuggestionCount {
		return nil, shared.WrapError("coaching", "ParseSuggestions", shared.ErrInvalidFormat,
			fmt.Sprintf("expected %d suggestions, got %d", SuggestionCount, len(items)), shared.ErrAIProviderMalformed)
	}

	out := make([]Suggestion, 0, SuggestionCount)
	for i, item := range items {
		s := Suggestion{
			Name:        strings.TrimSpace(item.Get("name").String()),
			Description: strings.TrimSpace(item.Get("description").String()),
			Category:    strings.ToLower(strings.TrimSpace(item.Get("category").String())),
		}
		if s.Name == "" || s.Description == "" || !habit.Category(s.Category).IsValid() {
			return nil, shared.WrapError("coaching", "ParseSuggestions", shared.ErrInvalidFormat,
				fmt.Sprintf("suggestion %d is incomplete", i), shared.ErrAIProviderMalformed)
		}
		out = append(out, s)
	}
	return out, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
