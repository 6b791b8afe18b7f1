package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

const userColumns = `id, username, email, avatar_level, total_xp, current_streak, longest_streak,
	world_type, avatar_customization, achievements, created_at`

// UserRepository implements user.Repository on the users table.
type UserRepository struct {
	db Querier
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	achievements := u.Achievements
	if achievements == nil {
		achievements = []string{}
	}

	_, err := r.db.Exec(ctx, query,
		u.ID, u.Username, u.Email, u.AvatarLevel, u.TotalXP, u.CurrentStreak, u.LongestStreak,
		u.WorldType, u.AvatarCustomization, achievements, u.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUserRow(row, "find user")
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ApplyCompletion is a single UPDATE ... RETURNING.
func (r *UserRepository) ApplyCompletion(ctx context.Context, id string, xpDelta, currentStreak int) (*user.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET total_xp = total_xp + $2,
			current_streak = $3,
			longest_streak = GREATEST(longest_streak, $3)
		WHERE id = $1
		RETURNING `+userColumns,
		id, xpDelta, currentStreak,
	)
	return scanUserRow(row, "apply completion")
}

// AwardAchievements only matches when the stored set and ids do not overlap.
func (r *UserRepository) AwardAchievements(ctx context.Context, id string, ids []string, bonusXP int) (*user.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET total_xp = total_xp + $2,
			achievements = achievements || $3::text[]
		WHERE id = $1 AND NOT (achievements && $3::text[])
		RETURNING `+userColumns,
		id, bonusXP, ids,
	)

	u, err := scanUserRow(row, "award achievements")
	if !shared.IsNotFound(err) {
		return u, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, shared.ErrUserNotFound
	}
	return nil, shared.ErrAchievementConflict
}

func scanUserRow(row pgx.Row, op string) (*user.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.AvatarLevel, &u.TotalXP, &u.CurrentStreak, &u.LongestStreak,
		&u.WorldType, &u.AvatarCustomization, &u.Achievements, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if u.Achievements == nil {
		u.Achievements = []string{}
	}
	if u.AvatarCustomization.Accessories == nil {
		u.AvatarCustomization.Accessories = []string{}
	}
	return &u, nil
}
