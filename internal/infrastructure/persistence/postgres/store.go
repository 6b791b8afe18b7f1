package postgres

import "context"

// Store bundles the repositories over one pool.
type Store struct {
	*Connection
	Users       *UserRepository
	Habits      *HabitRepository
	Completions *CompletionRepository
	Moods       *MoodRepository
}

// NewStore wires all repositories to conn.
func NewStore(conn *Connection) *Store {
	return &Store{
		Connection:  conn,
		Users:       NewUserRepository(conn),
		Habits:      NewHabitRepository(conn),
		Completions: NewCompletionRepository(conn),
		Moods:       NewMoodRepository(conn),
	}
}

// Open connects and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return NewStore(conn), nil
}
