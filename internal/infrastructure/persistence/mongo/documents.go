package mongo

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIMESTAMP
// ══════════════════════════════════════════════════════════════════════════════

// Timestamp is the one timestamp type read from the store. It accepts BSON
// datetimes and ISO-8601 strings written by older clients; anything else
// decodes to the zero time, which the analytics aggregator skips.
type Timestamp struct {
	time.Time
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: typ, Value: data}
	t.Time = time.Time{}

	switch typ {
	case bsontype.DateTime:
		t.Time = raw.Time().UTC()
	case bsontype.String:
		s := strings.TrimSpace(raw.StringValue())
		for _, layout := range isoLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				t.Time = parsed.UTC()
				break
			}
		}
	}
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.Time.UTC())
}

func ts(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

type avatarDoc struct {
	Color       string   `bson:"color"`
	Accessories []string `bson:"accessories"`
	Background  string   `bson:"background"`
}

type userDoc struct {
	ID                  string    `bson:"id"`
	Username            string    `bson:"username"`
	Email               string    `bson:"email"`
	AvatarLevel         int       `bson:"avatar_level"`
	TotalXP             int       `bson:"total_xp"`
	CurrentStreak       int       `bson:"current_streak"`
	LongestStreak       int       `bson:"longest_streak"`
	WorldType           string    `bson:"world_type"`
	AvatarCustomization avatarDoc `bson:"avatar_customization"`
	Achievements        []string  `bson:"achievements"`
	CreatedAt           Timestamp `bson:"created_at"`
}

func toUserDoc(u *user.User) userDoc {
	achievements := u.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	accessories := u.AvatarCustomization.Accessories
	if accessories == nil {
		accessories = []string{}
	}
	return userDoc{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		AvatarLevel:   u.AvatarLevel,
		TotalXP:       u.TotalXP,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		WorldType:     u.WorldType,
		AvatarCustomization: avatarDoc{
			Color:       u.AvatarCustomization.Color,
			Accessories: accessories,
			Background:  u.AvatarCustomization.Background,
		},
		Achievements: achievements,
		CreatedAt:    ts(u.CreatedAt),
	}
}

func (d userDoc) toDomain() *user.User {
	u := &user.User{
		ID:            d.ID,
		Username:      d.Username,
		Email:         d.Email,
		AvatarLevel:   d.AvatarLevel,
		TotalXP:       d.TotalXP,
		CurrentStreak: d.CurrentStreak,
		LongestStreak: d.LongestStreak,
		WorldType:     d.WorldType,
		AvatarCustomization: user.AvatarCustomization{
			Color:       d.AvatarCustomization.Color,
			Accessories: d.AvatarCustomization.Accessories,
			Background:  d.AvatarCustomization.Background,
		},
		Achievements: d.Achievements,
		CreatedAt:    d.CreatedAt.Time,
	}
	if u.Achievements == nil {
		u.Achievements = []string{}
	}
	if u.AvatarLevel == 0 {
		u.AvatarLevel = user.DefaultAvatarLevel
	}
	if u.TotalXP < 0 {
		u.TotalXP = 0
	}
	return u
}

type habitDoc struct {
	ID              string    `bson:"id"`
	UserID          string    `bson:"user_id"`
	Name            string    `bson:"name"`
	Description     string    `bson:"description"`
	Category        string    `bson:"category"`
	Difficulty      int       `bson:"difficulty"`
	XPReward        int       `bson:"xp_reward"`
	TargetFrequency string    `bson:"target_frequency"`
	IsActive        bool      `bson:"is_active"`
	CreatedAt       Timestamp `bson:"created_at"`
}

func toHabitDoc(h *habit.Habit) habitDoc {
	return habitDoc{
		ID:              h.ID,
		UserID:          h.UserID,
		Name:            h.Name,
		Description:     h.Description,
		Category:        h.Category.String(),
		Difficulty:      h.Difficulty,
		XPReward:        h.XPReward,
		TargetFrequency: string(h.TargetFrequency),
		IsActive:        h.IsActive,
		CreatedAt:       ts(h.CreatedAt),
	}
}

func (d habitDoc) toDomain() *habit.Habit {
	freq := habit.Frequency(d.TargetFrequency)
	if freq == "" {
		freq = habit.FrequencyDaily
	}
	xp := d.XPReward
	if xp == 0 {
		xp = habit.XPReward(d.Difficulty)
	}
	return &habit.Habit{
		ID:              d.ID,
		UserID:          d.UserID,
		Name:            d.Name,
		Description:     d.Description,
		Category:        habit.Category(d.Category),
		Difficulty:      d.Difficulty,
		XPReward:        xp,
		TargetFrequency: freq,
		IsActive:        d.IsActive,
		CreatedAt:       d.CreatedAt.Time,
	}
}

type completionDoc struct {
	ID          string    `bson:"id"`
	UserID      string    `bson:"user_id"`
	HabitID     string    `bson:"habit_id"`
	CompletedAt Timestamp `bson:"completed_at"`
	Day         string    `bson:"day,omitempty"`
	XPEarned    int       `bson:"xp_earned"`
	MoodRating  *int      `bson:"mood_rating,omitempty"`
	EnergyLevel *int      `bson:"energy_level,omitempty"`
	Notes       string    `bson:"notes,omitempty"`
}

func toCompletionDoc(c *habit.Completion) completionDoc {
	return completionDoc{
		ID:          c.ID,
		UserID:      c.UserID,
		HabitID:     c.HabitID,
		CompletedAt: ts(c.CompletedAt),
		Day:         c.Day,
		XPEarned:    c.XPEarned,
		MoodRating:  c.MoodRating,
		EnergyLevel: c.EnergyLevel,
		Notes:       c.Notes,
	}
}

func (d completionDoc) toDomain() *habit.Completion {
	return &habit.Completion{
		ID:          d.ID,
		UserID:      d.UserID,
		HabitID:     d.HabitID,
		CompletedAt: d.CompletedAt.Time,
		Day:         d.Day,
		XPEarned:    d.XPEarned,
		MoodRating:  d.MoodRating,
		EnergyLevel: d.EnergyLevel,
		Notes:       d.Notes,
	}
}

type moodDoc struct {
	ID          string    `bson:"id"`
	UserID      string    `bson:"user_id"`
	MoodRating  int       `bson:"mood_rating"`
	EnergyLevel int       `bson:"energy_level"`
	Notes       string    `bson:"notes,omitempty"`
	CreatedAt   Timestamp `bson:"created_at"`
}

func toMoodDoc(m *habit.MoodEntry) moodDoc {
	return moodDoc{
		ID:          m.ID,
		UserID:      m.UserID,
		MoodRating:  m.MoodRating,
		EnergyLevel: m.EnergyLevel,
		Notes:       m.Notes,
		CreatedAt:   ts(m.CreatedAt),
	}
}

func (d moodDoc) toDomain() *habit.MoodEntry {
	return &habit.MoodEntry{
		ID:          d.ID,
		UserID:      d.UserID,
		MoodRating:  d.MoodRating,
		EnergyLevel: d.EnergyLevel,
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt.Time,
	}
}
