// Package memory implements the repository ports in process memory.
// It backs STORAGE_DRIVER=memory and serves as the repository double in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// Store groups the four repositories over one lock.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*user.User
	userOrder   []string
	habits      map[string]*habit.Habit
	habitOrder  []string
	completions []*habit.Completion
	moods       []*habit.MoodEntry

	Users       *UserRepository
	Habits      *HabitRepository
	Completions *CompletionRepository
	Moods       *MoodRepository
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		users:  make(map[string]*user.User),
		habits: make(map[string]*habit.Habit),
	}
	s.Users = &UserRepository{s: s}
	s.Habits = &HabitRepository{s: s}
	s.Completions = &CompletionRepository{s: s}
	s.Moods = &MoodRepository{s: s}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository.
type UserRepository struct{ s *Store }

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return shared.ErrUserAlreadyExists
	}
	r.s.users[u.ID] = u.Clone()
	r.s.userOrder = append(r.s.userOrder, u.ID)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	out := make([]*user.User, 0, limit)
	for i := offset; i < len(r.s.userOrder) && len(out) < limit; i++ {
		out = append(out, r.s.users[r.s.userOrder[i]].Clone())
	}
	return out, nil
}

func (r *UserRepository) ApplyCompletion(ctx context.Context, id string, xpDelta, currentStreak int) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	u.ApplyCompletion(xpDelta, currentStreak)
	return u.Clone(), nil
}

func (r *UserRepository) AwardAchievements(ctx context.Context, id string, ids []string, bonusXP int) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	if u.HasAnyAchievement(ids) {
		return nil, shared.ErrAchievementConflict
	}
	u.Award(ids, bonusXP)
	return u.Clone(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HABITS
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository.
type HabitRepository struct{ s *Store }

var _ habit.Repository = (*HabitRepository)(nil)

func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.habits[h.ID]; ok {
		return shared.NewDomainError("habit", "Create", shared.ErrAlreadyExists, "habit already exists")
	}
	cp := *h
	r.s.habits[h.ID] = &cp
	r.s.habitOrder = append(r.s.habitOrder, h.ID)
	return nil
}

func (r *HabitRepository) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.habits[id]
	if !ok {
		return nil, shared.ErrHabitNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *HabitRepository) ListActive(ctx context.Context, userID string) ([]*habit.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*habit.Habit
	for _, id := range r.s.habitOrder {
		h := r.s.habits[id]
		if h.UserID == userID && h.IsActive {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *HabitRepository) CountActive(ctx context.Context, userID string) (int, error) {
	hs, err := r.ListActive(ctx, userID)
	return len(hs), err
}

func (r *HabitRepository) Deactivate(ctx context.Context, id string) (*habit.Habit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.habits[id]
	if !ok {
		return nil, shared.ErrHabitNotFound
	}
	h.IsActive = false
	cp := *h
	return &cp, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements habit.CompletionRepository.
type CompletionRepository struct{ s *Store }

var _ habit.CompletionRepository = (*CompletionRepository)(nil)

func (r *CompletionRepository) Create(ctx context.Context, c *habit.Completion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.completions {
		if existing.UserID == c.UserID && existing.HabitID == c.HabitID && existing.Day == c.Day {
			return shared.ErrAlreadyCompleted
		}
	}
	cp := *c
	r.s.completions = append(r.s.completions, &cp)
	return nil
}

// Insert stores a completion without the per-day check. Tests use it to seed history.
func (r *CompletionRepository) Insert(c *habit.Completion) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.completions = append(r.s.completions, &cp)
}

func (r *CompletionRepository) ExistsForHabitSince(ctx context.Context, userID, habitID string, since time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.completions {
		if c.UserID == userID && c.HabitID == habitID && !c.CompletedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *CompletionRepository) ExistsBetween(ctx context.Context, userID string, from, to time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.completions {
		if c.UserID == userID && !c.CompletedAt.Before(from) && c.CompletedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *CompletionRepository) HabitIDsSince(ctx context.Context, userID string, since time.Time) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]bool)
	for _, c := range r.s.completions {
		if c.UserID == userID && !c.CompletedAt.Before(since) {
			out[c.HabitID] = true
		}
	}
	return out, nil
}

func (r *CompletionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.completions {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *CompletionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.Completion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*habit.Completion
	for _, c := range r.s.completions {
		if c.UserID == userID && !c.CompletedAt.Before(since) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (r *CompletionRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.Completion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*habit.Completion
	for _, c := range r.s.completions {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MOODS
// ══════════════════════════════════════════════════════════════════════════════

// MoodRepository implements habit.MoodRepository.
type MoodRepository struct{ s *Store }

var _ habit.MoodRepository = (*MoodRepository)(nil)

func (r *MoodRepository) Create(ctx context.Context, m *habit.MoodEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.moods = append(r.s.moods, &cp)
	return nil
}

func (r *MoodRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, m := range r.s.moods {
		if m.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MoodRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.MoodEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*habit.MoodEntry
	for _, m := range r.s.moods {
		if m.UserID == userID && !m.CreatedAt.Before(since) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MoodRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.MoodEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*habit.MoodEntry
	for _, m := range r.s.moods {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
