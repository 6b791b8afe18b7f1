package user

import (
	"strings"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Значения по умолчанию для нового пользователя.
const (
	DefaultAvatarLevel = 1
	DefaultWorldType   = "forest"
	DefaultColor       = "#90EE90"
	DefaultBackground  = "forest"
)

// AvatarCustomization - внешний вид аватара. Для ядра логики непрозрачна.
type AvatarCustomization struct {
	Color       string   `json:"color" bson:"color"`
	Accessories []string `json:"accessories" bson:"accessories"`
	Background  string   `json:"background" bson:"background"`
}

// DefaultAvatar возвращает кастомизацию по умолчанию.
func DefaultAvatar() AvatarCustomization {
	return AvatarCustomization{
		Color:       DefaultColor,
		Accessories: []string{},
		Background:  DefaultBackground,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User - пользователь трекера привычек.
type User struct {
	ID                  string
	Username            string
	Email               string
	AvatarLevel         int
	TotalXP             int
	CurrentStreak       int
	LongestStreak       int
	WorldType           string
	AvatarCustomization AvatarCustomization
	Achievements        []string
	CreatedAt           time.Time
}

// NewUserParams - параметры для создания пользователя.
type NewUserParams struct {
	ID       string
	Username string
	Email    string
	Now      time.Time
}

// NewUser создаёт пользователя со значениями по умолчанию.
func NewUser(p NewUserParams) (*User, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return nil, shared.ErrInvalidUsername
	}
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.ErrInvalidEmail
	}

	id := p.ID
	if id == "" {
		id = shared.NewID()
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	return &User{
		ID:                  id,
		Username:            username,
		Email:               email,
		AvatarLevel:         DefaultAvatarLevel,
		WorldType:           DefaultWorldType,
		AvatarCustomization: DefaultAvatar(),
		Achievements:        []string{},
		CreatedAt:           now.UTC(),
	}, nil
}

// HasAchievement проверяет, открыто ли достижение.
func (u *User) HasAchievement(id string) bool {
	for _, a := range u.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// HasAnyAchievement проверяет, открыто ли хотя бы одно из достижений.
func (u *User) HasAnyAchievement(ids []string) bool {
	for _, id := range ids {
		if u.HasAchievement(id) {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию пользователя.
func (u *User) Clone() *User {
	c := *u
	c.Achievements = append([]string(nil), u.Achievements...)
	c.AvatarCustomization.Accessories = append([]string{}, u.AvatarCustomization.Accessories...)
	return &c
}

// ApplyCompletion применяет начисление XP и новое значение стрика к копии в памяти.
// Хранилища используют его, чтобы атомарные обновления вели себя одинаково.
func (u *User) ApplyCompletion(xpDelta, currentStreak int) {
	if xpDelta > 0 {
		u.TotalXP += xpDelta
	}
	u.CurrentStreak = currentStreak
	if currentStreak > u.LongestStreak {
		u.LongestStreak = currentStreak
	}
}

// Award добавляет достижения и бонусный XP. Вызывающий проверяет конфликт заранее.
func (u *User) Award(ids []string, bonusXP int) {
	u.Achievements = append(u.Achievements, ids...)
	if bonusXP > 0 {
		u.TotalXP += bonusXP
	}
}
