package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABITS
// ══════════════════════════════════════════════════════════════════════════════

const habitColumns = `id, user_id, name, description, category, difficulty, xp_reward,
	target_frequency, is_active, created_at`

// HabitRepository implements habit.Repository.
type HabitRepository struct {
	db Querier
}

var _ habit.Repository = (*HabitRepository)(nil)

func NewHabitRepository(db Querier) *HabitRepository {
	return &HabitRepository{db: db}
}

func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.UserID, h.Name, h.Description, string(h.Category), h.Difficulty, h.XPReward,
		string(h.TargetFrequency), h.IsActive, h.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("habit", "Create", shared.ErrAlreadyExists, "habit already exists")
		}
		return fmt.Errorf("insert habit: %w", err)
	}
	return nil
}

func (r *HabitRepository) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	row := r.db.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id)
	return scanHabitRow(row, "find habit")
}

func (r *HabitRepository) ListActive(ctx context.Context, userID string) ([]*habit.Habit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = $1 AND is_active ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var out []*habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HabitRepository) CountActive(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM habits WHERE user_id = $1 AND is_active`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return n, nil
}

func (r *HabitRepository) Deactivate(ctx context.Context, id string) (*habit.Habit, error) {
	row := r.db.QueryRow(ctx, `UPDATE habits SET is_active = FALSE WHERE id = $1 RETURNING `+habitColumns, id)
	return scanHabitRow(row, "deactivate habit")
}

func scanHabitRow(row pgx.Row, op string) (*habit.Habit, error) {
	h, err := scanHabit(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

func scanHabit(row pgx.Row) (*habit.Habit, error) {
	var (
		h        habit.Habit
		category string
		freq     string
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &category, &h.Difficulty, &h.XPReward,
		&freq, &h.IsActive, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	h.Category = habit.Category(category)
	h.TargetFrequency = habit.Frequency(freq)
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

const (
	completionColumns = `id, user_id, habit_id, completed_at, day, xp_earned, mood_rating, energy_level, notes`

	// uniqueCompletionPerDay is the constraint name from migration 003.
	uniqueCompletionPerDay = "one_completion_per_day"
)

// CompletionRepository implements habit.CompletionRepository.
type CompletionRepository struct {
	db Querier
}

var _ habit.CompletionRepository = (*CompletionRepository)(nil)

func NewCompletionRepository(db Querier) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Create(ctx context.Context, c *habit.Completion) error {
	day, err := time.Parse("2006-01-02", c.Day)
	if err != nil {
		day = c.CompletedAt.UTC().Truncate(24 * time.Hour)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO habit_completions (`+completionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.HabitID, c.CompletedAt.UTC(), day, c.XPEarned, c.MoodRating, c.EnergyLevel, c.Notes,
	)
	if err != nil {
		if IsUniqueViolation(err, uniqueCompletionPerDay) {
			return shared.ErrAlreadyCompleted
		}
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *CompletionRepository) ExistsForHabitSince(ctx context.Context, userID, habitID string, since time.Time) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM habit_completions WHERE user_id = $1 AND habit_id = $2 AND completed_at >= $3)`,
		userID, habitID, since.UTC())
}

func (r *CompletionRepository) ExistsBetween(ctx context.Context, userID string, from, to time.Time) (bool, error) {
	return r.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM habit_completions WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3)`,
		userID, from.UTC(), to.UTC())
}

func (r *CompletionRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("check completions: %w", err)
	}
	return ok, nil
}

func (r *CompletionRepository) HabitIDsSince(ctx context.Context, userID string, since time.Time) (map[string]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT habit_id FROM habit_completions WHERE user_id = $1 AND completed_at >= $2`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("distinct completed habits: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan completed habits: %w", err)
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *CompletionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM habit_completions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

func (r *CompletionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.Completion, error) {
	return r.list(ctx,
		`SELECT `+completionColumns+` FROM habit_completions WHERE user_id = $1 AND completed_at >= $2 ORDER BY completed_at`,
		userID, since.UTC())
}

func (r *CompletionRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.Completion, error) {
	return r.list(ctx,
		`SELECT `+completionColumns+` FROM habit_completions WHERE user_id = $1 ORDER BY completed_at DESC LIMIT $2`,
		userID, limit)
}

func (r *CompletionRepository) list(ctx context.Context, query string, args ...any) ([]*habit.Completion, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	defer rows.Close()

	var out []*habit.Completion
	for rows.Next() {
		var (
			c   habit.Completion
			day time.Time
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.HabitID, &c.CompletedAt, &day, &c.XPEarned,
			&c.MoodRating, &c.EnergyLevel, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.CompletedAt = c.CompletedAt.UTC()
		c.Day = day.Format("2006-01-02")
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// MOODS
// ══════════════════════════════════════════════════════════════════════════════

const moodColumns = `id, user_id, mood_rating, energy_level, notes, created_at`

// MoodRepository implements habit.MoodRepository.
type MoodRepository struct {
	db Querier
}

var _ habit.MoodRepository = (*MoodRepository)(nil)

func NewMoodRepository(db Querier) *MoodRepository {
	return &MoodRepository{db: db}
}

func (r *MoodRepository) Create(ctx context.Context, m *habit.MoodEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO mood_entries (`+moodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.MoodRating, m.EnergyLevel, m.Notes, m.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	return nil
}

func (r *MoodRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM mood_entries WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mood entries: %w", err)
	}
	return n, nil
}

func (r *MoodRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.MoodEntry, error) {
	return r.list(ctx,
		`SELECT `+moodColumns+` FROM mood_entries WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at`,
		userID, since.UTC())
}

func (r *MoodRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.MoodEntry, error) {
	return r.list(ctx,
		`SELECT `+moodColumns+` FROM mood_entries WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

func (r *MoodRepository) list(ctx context.Context, query string, args ...any) ([]*habit.MoodEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find mood entries: %w", err)
	}
	defer rows.Close()

	var out []*habit.MoodEntry
	for rows.Next() {
		var m habit.MoodEntry
		if err := rows.Scan(&m.ID, &m.UserID, &m.MoodRating, &m.EnergyLevel, &m.Notes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, &m)
	}
	return out, rows.Err()
}
