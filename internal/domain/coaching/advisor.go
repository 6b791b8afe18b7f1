package coaching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORT
// ══════════════════════════════════════════════════════════════════════════════

// Prompt - один запрос к генератору.
type Prompt struct {
	Text        string
	MaxTokens   int
	Temperature float32
}

// TextGenerator - внешний поставщик текста (реализация в infrastructure/external).
type TextGenerator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Source - происхождение ответа.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Фиксированные ответы.
const (
	NoProviderMessage = "Keep up the great work! Your consistency is building a stronger you every day! 🌟"
	FailureMessage    = "You're doing amazing! Every small step counts toward your bigger goals! 🚀"
)

const (
	coachingMaxTokens      = 100
	coachingTemperature    = 0.7
	suggestionsMaxTokens   = 300
	suggestionsTemperature = 0.8
	recentHabitsInContext  = 3
	defaultMood            = 3
)

// DefaultInterests используются, если у пользователя нет активных привычек.
var DefaultInterests = []string{"wellness", "fitness", "productivity"}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// Context - ограниченная сводка о пользователе для подсказки.
type Context struct {
	Level         int
	TotalXP       int
	CurrentStreak int
	ActiveHabits  int
	Achievements  int
	RecentHabits  []string
	RecentMood    int
}

// NewContext собирает сводку. latestMood может быть nil.
func NewContext(u *user.User, habits []*habit.Habit, latestMood *habit.MoodEntry) Context {
	c := Context{
		Level:         progress.Level(u.TotalXP),
		TotalXP:       u.TotalXP,
		CurrentStreak: u.CurrentStreak,
		ActiveHabits:  len(habits),
		Achievements:  len(u.Achievements),
		RecentMood:    defaultMood,
	}
	for i, h := range habits {
		if i == recentHabitsInContext {
			break
		}
		c.RecentHabits = append(c.RecentHabits, h.Name)
	}
	if latestMood != nil {
		c.RecentMood = latestMood.MoodRating
	}
	return c
}

func (c Context) render() string {
	return fmt.Sprintf(`You are a supportive AI coach for HabitVerse, a gamified habit-building app.

User Context:
- Level: %d
- Total XP: %d
- Current Streak: %d
- Habits: %d active habits
- Achievements: %d
Recent Habits: %s
Recent Mood: %d/5

Provide a personalized, encouraging message (max 2 sentences) that:
1. Acknowledges their progress
2. Offers gentle motivation or a specific tip
3. Uses gamification language (XP, level up, quest, etc.)
4. Keeps it positive and engaging

Make it feel like a friendly companion, not a formal coach.`,
		c.Level, c.TotalXP, c.CurrentStreak, c.ActiveHabits, c.Achievements,
		strings.Join(c.RecentHabits, ", "), c.RecentMood)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADVISOR
// ══════════════════════════════════════════════════════════════════════════════

// Message - результат режима коучинга.
type Message struct {
	Text   string
	Source Source
}

// Advisor вызывает генератор и подставляет фиксированные ответы при сбоях.
type Advisor struct {
	gen     TextGenerator
	timeout time.Duration
	logger  *logger.Logger
}

// AdvisorConfig - настройки советника.
type AdvisorConfig struct {
	// Timeout ограничивает один вызов генератора. 0 - без отдельного лимита.
	Timeout time.Duration
}

// DefaultAdvisorConfig возвращает настройки по умолчанию.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{Timeout: 15 * time.Second}
}

// NewAdvisor создаёт советника. gen может быть nil - тогда всегда используются
// ответы "нет поставщика".
func NewAdvisor(gen TextGenerator, cfg AdvisorConfig, log *logger.Logger) *Advisor {
	if log == nil {
		log = logger.Nop()
	}
	return &Advisor{gen: gen, timeout: cfg.Timeout, logger: log.With(logger.Component("coaching"))}
}

// Enabled сообщает, подключён ли генератор.
func (a *Advisor) Enabled() bool {
	return a.gen != nil
}

// Coach возвращает короткое мотивирующее сообщение.
func (a *Advisor) Coach(ctx context.Context, c Context) Message {
	if a.gen == nil {
		return Message{Text: NoProviderMessage, Source: SourceFallback}
	}

	text, err := a.generate(ctx, Prompt{Text: c.render(), MaxTokens: coachingMaxTokens, Temperature: coachingTemperature})
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = fmt.Errorf("empty completion")
		}
	}
	if err != nil {
		a.logger.Warn("coaching message fell back", logger.Err(err))
		return Message{Text: FailureMessage, Source: SourceFallback}
	}
	return Message{Text: text, Source: SourceGenerated}
}

func (a *Advisor) generate(ctx context.Context, p Prompt) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.gen.Generate(ctx, p)
}
