package habit

import (
	"strings"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Category - категория привычки.
type Category string

const (
	CategoryFitness      Category = "fitness"
	CategoryFocus        Category = "focus"
	CategorySleep        Category = "sleep"
	CategoryWellness     Category = "wellness"
	CategoryProductivity Category = "productivity"
)

// AllCategories перечисляет категории в каноническом порядке.
var AllCategories = []Category{
	CategoryFitness, CategoryFocus, CategorySleep, CategoryWellness, CategoryProductivity,
}

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFitness, CategoryFocus, CategorySleep, CategoryWellness, CategoryProductivity:
		return true
	default:
		return false
	}
}

func (c Category) String() string { return string(c) }

// Frequency - целевая частота выполнения.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// IsValid проверяет частоту.
func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Границы сложности и множитель награды.
const (
	MinDifficulty   = 1
	MaxDifficulty   = 5
	XPPerDifficulty = 10
)

// XPReward возвращает награду за выполнение привычки данной сложности.
func XPReward(difficulty int) int {
	return difficulty * XPPerDifficulty
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Habit - привычка пользователя.
type Habit struct {
	ID              string
	UserID          string
	Name            string
	Description     string
	Category        Category
	Difficulty      int
	XPReward        int
	TargetFrequency Frequency
	IsActive        bool
	CreatedAt       time.Time
}

// NewHabitParams - параметры создания привычки.
type NewHabitParams struct {
	ID              string
	UserID          string
	Name            string
	Description     string
	Category        Category
	Difficulty      int
	TargetFrequency Frequency
	Now             time.Time
}

// NewHabit валидирует параметры и создаёт активную привычку.
func NewHabit(p NewHabitParams) (*Habit, error) {
	if err := shared.ValidateID("NewHabit", p.UserID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, shared.ErrInvalidHabitName
	}
	if !p.Category.IsValid() {
		return nil, shared.ErrInvalidCategory
	}
	if p.Difficulty < MinDifficulty || p.Difficulty > MaxDifficulty {
		return nil, shared.ErrInvalidDifficulty
	}

	freq := p.TargetFrequency
	if freq == "" {
		freq = FrequencyDaily
	}
	if !freq.IsValid() {
		return nil, shared.NewDomainError("habit", "Validate", shared.ErrInvalidInput, "unknown target frequency")
	}

	id := p.ID
	if id == "" {
		id = shared.NewID()
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &Habit{
		ID:              id,
		UserID:          p.UserID,
		Name:            name,
		Description:     strings.TrimSpace(p.Description),
		Category:        p.Category,
		Difficulty:      p.Difficulty,
		XPReward:        XPReward(p.Difficulty),
		TargetFrequency: freq,
		IsActive:        true,
		CreatedAt:       now.UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT LOGS
// ══════════════════════════════════════════════════════════════════════════════

// Completion - неизменяемая запись о выполнении привычки.
// MoodRating и EnergyLevel необязательны (nil - не указано).
type Completion struct {
	ID          string
	UserID      string
	HabitID     string
	CompletedAt time.Time
	Day         string
	XPEarned    int
	MoodRating  *int
	EnergyLevel *int
	Notes       string
}

// NewCompletion фиксирует выполнение с наградой, скопированной из привычки.
func NewCompletion(h *Habit, userID string, at time.Time, mood, energy *int, notes string) (*Completion, error) {
	if mood != nil && !shared.ValidateRating(*mood) {
		return nil, shared.ErrInvalidMood
	}
	if energy != nil && !shared.ValidateRating(*energy) {
		return nil, shared.ErrInvalidEnergy
	}
	at = at.UTC()
	return &Completion{
		ID:          shared.NewID(),
		UserID:      userID,
		HabitID:     h.ID,
		CompletedAt: at,
		Day:         at.Format("2006-01-02"),
		XPEarned:    h.XPReward,
		MoodRating:  mood,
		EnergyLevel: energy,
		Notes:       notes,
	}, nil
}

// MoodEntry - неизменяемая запись настроения и энергии.
type MoodEntry struct {
	ID          string
	UserID      string
	MoodRating  int
	EnergyLevel int
	Notes       string
	CreatedAt   time.Time
}

// NewMoodEntry валидирует оценки (1..5) и создаёт запись.
func NewMoodEntry(userID string, mood, energy int, notes string, at time.Time) (*MoodEntry, error) {
	if err := shared.ValidateID("NewMoodEntry", userID); err != nil {
		return nil, err
	}
	if !shared.ValidateRating(mood) {
		return nil, shared.ErrInvalidMood
	}
	if !shared.ValidateRating(energy) {
		return nil, shared.ErrInvalidEnergy
	}
	return &MoodEntry{
		ID:          shared.NewID(),
		UserID:      userID,
		MoodRating:  mood,
		EnergyLevel: energy,
		Notes:       notes,
		CreatedAt:   at.UTC(),
	}, nil
}

// IntPtr - вспомогательная функция для необязательных оценок.
func IntPtr(v int) *int { return &v }
