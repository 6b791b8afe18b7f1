// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ MODELS
// Представления, которые отдаются клиенту как есть. Имена полей JSON
// совпадают с исходным форматом API, чтобы фронтенд не пришлось менять.
// ══════════════════════════════════════════════════════════════════════════════

// UserView - профиль пользователя в формате хранилища.
type UserView struct {
	ID                  string                   `json:"id"`
	Username            string                   `json:"username"`
	Email               string                   `json:"email"`
	AvatarLevel         int                      `json:"avatar_level"`
	TotalXP             int                      `json:"total_xp"`
	CurrentStreak       int                      `json:"current_streak"`
	LongestStreak       int                      `json:"longest_streak"`
	WorldType           string                   `json:"world_type"`
	AvatarCustomization user.AvatarCustomization `json:"avatar_customization"`
	Achievements        []string                 `json:"achievements"`
	CreatedAt           time.Time                `json:"created_at"`
}

// NewUserView конвертирует доменного пользователя.
func NewUserView(u *user.User) UserView {
	achievements := u.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return UserView{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		AvatarLevel:         u.AvatarLevel,
		TotalXP:             u.TotalXP,
		CurrentStreak:       u.CurrentStreak,
		LongestStreak:       u.LongestStreak,
		WorldType:           u.WorldType,
		AvatarCustomization: u.AvatarCustomization,
		Achievements:        achievements,
		CreatedAt:           u.CreatedAt,
	}
}

// ProfileView - профиль с производными полями уровня.
type ProfileView struct {
	UserView
	CurrentLevel    int                `json:"current_level"`
	AvatarEvolution progress.Evolution `json:"avatar_evolution"`
	XPToNextLevel   int                `json:"xp_to_next_level"`
}

// NewProfileView дополняет профиль уровнем, стадией аватара и остатком XP.
func NewProfileView(u *user.User) ProfileView {
	info := progress.Describe(u.TotalXP)
	return ProfileView{
		UserView:        NewUserView(u),
		CurrentLevel:    info.Level,
		AvatarEvolution: info.Evolution,
		XPToNextLevel:   info.XPToNextLevel,
	}
}

// HabitView - привычка. CompletedToday заполняется только в списке привычек.
type HabitView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Difficulty      int       `json:"difficulty"`
	XPReward        int       `json:"xp_reward"`
	TargetFrequency string    `json:"target_frequency"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	CompletedToday  *bool     `json:"completed_today,omitempty"`
}

// NewHabitView конвертирует доменную привычку.
func NewHabitView(h *habit.Habit) HabitView {
	return HabitView{
		ID:              h.ID,
		UserID:          h.UserID,
		Name:            h.Name,
		Description:     h.Description,
		Category:        h.Category.String(),
		Difficulty:      h.Difficulty,
		XPReward:        h.XPReward,
		TargetFrequency: string(h.TargetFrequency),
		IsActive:        h.IsActive,
		CreatedAt:       h.CreatedAt,
	}
}

// CompletionView - запись о выполнении.
type CompletionView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	XPEarned    int       `json:"xp_earned"`
	MoodRating  *int      `json:"mood_rating"`
	EnergyLevel *int      `json:"energy_level"`
	Notes       string    `json:"notes,omitempty"`
}

// NewCompletionView конвертирует запись о выполнении.
func NewCompletionView(c *habit.Completion) CompletionView {
	return CompletionView{
		ID:          c.ID,
		UserID:      c.UserID,
		HabitID:     c.HabitID,
		CompletedAt: c.CompletedAt,
		XPEarned:    c.XPEarned,
		MoodRating:  c.MoodRating,
		EnergyLevel: c.EnergyLevel,
		Notes:       c.Notes,
	}
}

// MoodView - запись настроения.
type MoodView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	MoodRating  int       `json:"mood_rating"`
	EnergyLevel int       `json:"energy_level"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMoodView конвертирует запись настроения.
func NewMoodView(m *habit.MoodEntry) MoodView {
	return MoodView{
		ID:          m.ID,
		UserID:      m.UserID,
		MoodRating:  m.MoodRating,
		EnergyLevel: m.EnergyLevel,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Достижения: разные ответы показывают разный набор полей.
// ─────────────────────────────────────────────────────────────────────────────

// AchievementSummary - только что открытое достижение.
type AchievementSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// AchievementBadge - открытое достижение на дашборде.
type AchievementBadge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// AchievementView - запись каталога.
type AchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	RewardXP    int    `json:"reward_xp"`
}

// AchievementStatus - запись каталога со статусом пользователя.
type AchievementStatus struct {
	AchievementView
	Unlocked    bool                 `json:"unlocked"`
	Requirement progress.Requirement `json:"requirement"`
}

// NewAchievementSummaries конвертирует новые достижения. Никогда не возвращает nil.
func NewAchievementSummaries(list []progress.Achievement) []AchievementSummary {
	out := make([]AchievementSummary, 0, len(list))
	for _, a := range list {
		out = append(out, AchievementSummary{Name: a.Name, Description: a.Description, Icon: a.Icon})
	}
	return out
}

func newAchievementView(a progress.Achievement) AchievementView {
	return AchievementView{ID: a.ID, Name: a.Name, Description: a.Description, Icon: a.Icon, RewardXP: a.RewardXP}
}
