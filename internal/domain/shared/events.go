package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventHabitCreated        EventType = "habit.created"
	EventHabitDeactivated    EventType = "habit.deactivated"
	EventHabitCompleted      EventType = "habit.completed"
	EventLevelUp             EventType = "progress.level_up"
	EventAchievementUnlocked EventType = "achievement.unlocked"
	EventMoodLogged          EventType = "mood.logged"
	EventDailySummary        EventType = "analytics.daily_summary"
)

// Event is the base interface for all domain events.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time

	// AggregateID is the user the event belongs to; it doubles as the partition key.
	AggregateID() string

	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event stamped with the current UTC time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID returns a copy tagged with a request correlation id.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegisteredEvent is emitted when a user profile is created.
type UserRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
}

func (e UserRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"username": e.Username}
}

func NewUserRegisteredEvent(userID, username string) UserRegisteredEvent {
	return UserRegisteredEvent{BaseEvent: NewBaseEvent(EventUserRegistered, userID), Username: username}
}

// ═══════════════════════════════════════════════════════════════════════════
// Habit Events
// ═══════════════════════════════════════════════════════════════════════════

// HabitCompletedEvent is emitted after a completion has been recorded and XP applied.
type HabitCompletedEvent struct {
	BaseEvent
	HabitID       string `json:"habit_id"`
	XPEarned      int    `json:"xp_earned"`
	TotalXP       int    `json:"total_xp"`
	Level         int    `json:"level"`
	LevelUp       bool   `json:"level_up"`
	CurrentStreak int    `json:"current_streak"`
}

func (e HabitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"habit_id":       e.HabitID,
		"xp_earned":      e.XPEarned,
		"total_xp":       e.TotalXP,
		"level":          e.Level,
		"level_up":       e.LevelUp,
		"current_streak": e.CurrentStreak,
	}
}

func NewHabitCompletedEvent(userID, habitID string, xpEarned, totalXP, level int, levelUp bool, streak int) HabitCompletedEvent {
	return HabitCompletedEvent{
		BaseEvent:     NewBaseEvent(EventHabitCompleted, userID),
		HabitID:       habitID,
		XPEarned:      xpEarned,
		TotalXP:       totalXP,
		Level:         level,
		LevelUp:       levelUp,
		CurrentStreak: streak,
	}
}

// HabitCreatedEvent is emitted when a user adds a habit.
type HabitCreatedEvent struct {
	BaseEvent
	HabitID  string `json:"habit_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (e HabitCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"habit_id": e.HabitID, "name": e.Name, "category": e.Category}
}

func NewHabitCreatedEvent(userID, habitID, name, category string) HabitCreatedEvent {
	return HabitCreatedEvent{
		BaseEvent: NewBaseEvent(EventHabitCreated, userID),
		HabitID:   habitID,
		Name:      name,
		Category:  category,
	}
}

// HabitDeactivatedEvent is emitted when a habit is soft-deleted.
type HabitDeactivatedEvent struct {
	BaseEvent
	HabitID string `json:"habit_id"`
}

func (e HabitDeactivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"habit_id": e.HabitID}
}

func NewHabitDeactivatedEvent(userID, habitID string) HabitDeactivatedEvent {
	return HabitDeactivatedEvent{BaseEvent: NewBaseEvent(EventHabitDeactivated, userID), HabitID: habitID}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LevelUpEvent is emitted when a completion moves the user to a higher level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"old_level": e.OldLevel, "new_level": e.NewLevel}
}

func NewLevelUpEvent(userID string, oldLevel, newLevel int) LevelUpEvent {
	return LevelUpEvent{BaseEvent: NewBaseEvent(EventLevelUp, userID), OldLevel: oldLevel, NewLevel: newLevel}
}

// AchievementUnlockedEvent is emitted once per newly awarded achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	RewardXP      int    `json:"reward_xp"`
}

func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"achievement_id": e.AchievementID, "reward_xp": e.RewardXP}
}

func NewAchievementUnlockedEvent(userID, achievementID string, rewardXP int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		AchievementID: achievementID,
		RewardXP:      rewardXP,
	}
}

// MoodLoggedEvent is emitted when a mood entry is stored.
type MoodLoggedEvent struct {
	BaseEvent
	Mood   int `json:"mood"`
	Energy int `json:"energy"`
}

func (e MoodLoggedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"mood": e.Mood, "energy": e.Energy}
}

func NewMoodLoggedEvent(userID string, mood, energy int) MoodLoggedEvent {
	return MoodLoggedEvent{BaseEvent: NewBaseEvent(EventMoodLogged, userID), Mood: mood, Energy: energy}
}

// DailySummaryEvent is emitted by the worker once per user per day.
type DailySummaryEvent struct {
	BaseEvent
	Day           string `json:"day"`
	Completions   int    `json:"completions"`
	XPEarned      int    `json:"xp_earned"`
	CurrentStreak int    `json:"current_streak"`
}

func (e DailySummaryEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day":            e.Day,
		"completions":    e.Completions,
		"xp_earned":      e.XPEarned,
		"current_streak": e.CurrentStreak,
	}
}

func NewDailySummaryEvent(userID, day string, completions, xp, streak int) DailySummaryEvent {
	return DailySummaryEvent{
		BaseEvent:     NewBaseEvent(EventDailySummary, userID),
		Day:           day,
		Completions:   completions,
		XPEarned:      xp,
		CurrentStreak: streak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope serializes an event payload into a transport envelope.
func NewEnvelope(event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	env := EventEnvelope{
		ID:          NewID(),
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Payload:     payload,
	}
	if c, ok := event.(interface{ Correlation() string }); ok {
		env.CorrelationID = c.Correlation()
	}
	return env, nil
}

// Correlation exposes the correlation id to NewEnvelope.
func (e BaseEvent) Correlation() string { return e.CorrelationID }

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
