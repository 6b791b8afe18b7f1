package mongo

// Store bundles the repositories over one connection.
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
