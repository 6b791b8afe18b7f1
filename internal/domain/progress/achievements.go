package progress

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// RequirementType - счётчик, с которым сравнивается порог достижения.
type RequirementType string

const (
	RequirementHabitCompletions RequirementType = "habit_completions"
	RequirementStreak           RequirementType = "streak"
	RequirementHabitCount       RequirementType = "habit_count"
	RequirementTotalXP          RequirementType = "total_xp"
	RequirementMoodEntries      RequirementType = "mood_entries"
	RequirementLevel            RequirementType = "level"
)

// Requirement - условие (тип, порог), проверяемое через >=.
type Requirement struct {
	Type  RequirementType `json:"type"`
	Count int             `json:"count"`
}

// Achievement - запись статического каталога.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Requirement Requirement
	RewardXP    int
}

// Порядок объявления важен: бонусы ранних записей видны поздним в том же проходе.
var catalog = []Achievement{
	{ID: "first_habit", Name: "Baby Steps", Description: "Complete your first habit", Icon: "👶",
		Requirement: Requirement{RequirementHabitCompletions, 1}, RewardXP: 50},
	{ID: "week_warrior", Name: "Week Warrior", Description: "Maintain a 7-day streak", Icon: "⚔️",
		Requirement: Requirement{RequirementStreak, 7}, RewardXP: 100},
	{ID: "habit_collector", Name: "Habit Collector", Description: "Create 5 different habits", Icon: "📋",
		Requirement: Requirement{RequirementHabitCount, 5}, RewardXP: 75},
	{ID: "xp_master", Name: "XP Master", Description: "Earn 500 total XP", Icon: "⭐",
		Requirement: Requirement{RequirementTotalXP, 500}, RewardXP: 100},
	{ID: "consistency_king", Name: "Consistency King", Description: "Complete 30 habits total", Icon: "👑",
		Requirement: Requirement{RequirementHabitCompletions, 30}, RewardXP: 200},
	{ID: "mood_tracker", Name: "Mood Tracker", Description: "Log your mood 10 times", Icon: "😊",
		Requirement: Requirement{RequirementMoodEntries, 10}, RewardXP: 50},
	{ID: "level_up", Name: "Level Up Legend", Description: "Reach level 10", Icon: "🚀",
		Requirement: Requirement{RequirementLevel, 10}, RewardXP: 150},
}

// Catalog возвращает копию каталога в порядке объявления.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// LookupAchievement ищет запись каталога по id.
func LookupAchievement(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - агрегированные счётчики пользователя на момент проверки.
type Snapshot struct {
	TotalXP       int
	CurrentStreak int
	Unlocked      []string
	HabitCount    int // только активные
	Completions   int // за всё время
	MoodEntries   int // за всё время
}

// Evaluation - результат одного прохода по каталогу.
type Evaluation struct {
	Unlocked []Achievement
	BonusXP  int
	// TotalXP - итог после всех бонусов этого прохода.
	TotalXP int
}

// IDs возвращает идентификаторы новых достижений.
func (e Evaluation) IDs() []string {
	ids := make([]string, len(e.Unlocked))
	for i, a := range e.Unlocked {
		ids[i] = a.ID
	}
	return ids
}

// Empty сообщает, что ничего не открыто.
func (e Evaluation) Empty() bool { return len(e.Unlocked) == 0 }

// Evaluate проверяет каталог по порядку. Каждая награда сразу прибавляется
// к текущему итогу, поэтому проверки total_xp и level видят бонусы,
// полученные ранее в этом же проходе.
func Evaluate(s Snapshot) Evaluation {
	unlocked := make(map[string]bool, len(s.Unlocked))
	for _, id := range s.Unlocked {
		unlocked[id] = true
	}

	eval := Evaluation{TotalXP: s.TotalXP}
	for _, a := range catalog {
		if unlocked[a.ID] {
			continue
		}
		if a.Requirement.Count > metric(a.Requirement.Type, s, eval.TotalXP) {
			continue
		}
		eval.Unlocked = append(eval.Unlocked, a)
		eval.BonusXP += a.RewardXP
		eval.TotalXP += a.RewardXP
		unlocked[a.ID] = true
	}
	return eval
}

func metric(kind RequirementType, s Snapshot, runningXP int) int {
	switch kind {
	case RequirementHabitCompletions:
		return s.Completions
	case RequirementStreak:
		return s.CurrentStreak
	case RequirementHabitCount:
		return s.HabitCount
	case RequirementTotalXP:
		return runningXP
	case RequirementMoodEntries:
		return s.MoodEntries
	case RequirementLevel:
		return Level(runningXP)
	default:
		return 0
	}
}
