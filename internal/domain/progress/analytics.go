package progress

import (
	"sort"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// 30-DAY ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// AnalyticsWindowDays - длина окна в календарных днях UTC, включая сегодня.
	AnalyticsWindowDays = 30

	// DefaultRating - средняя оценка, когда записей настроения нет.
	DefaultRating = 3.0
)

// DailyEntry - агрегаты за один календарный день.
type DailyEntry struct {
	Date        string `json:"date"`
	Completions int    `json:"completions"`
	XPEarned    int    `json:"xp_earned"`
	Mood        *int   `json:"mood"`
	Energy      *int   `json:"energy"`
}

// Report - результат агрегации.
type Report struct {
	DailyData        []DailyEntry `json:"daily_data"`
	TotalCompletions int          `json:"total_completions"`
	TotalXP          int          `json:"total_xp"`
	CurrentStreak    int          `json:"current_streak"`
	LongestStreak    int          `json:"longest_streak"`
	AvgMood          float64      `json:"avg_mood"`
	AvgEnergy        float64      `json:"avg_energy"`
	SkippedRecords   int          `json:"skipped_records"`
}

// WindowStart возвращает начало первого дня окна для запросов в хранилище.
func WindowStart(now time.Time) time.Time {
	return timeutil.StartOfDay(now).AddDate(0, 0, -(AnalyticsWindowDays - 1))
}

// Aggregate раскладывает журналы по дням окна, заканчивающегося днём now.
// Записи с нулевым временем пропускаются и учитываются в SkippedRecords;
// записи вне окна игнорируются. Итоги считаются только по учтённым записям.
func Aggregate(now time.Time, completions []*habit.Completion, moods []*habit.MoodEntry) Report {
	days := timeutil.LastNDays(now, AnalyticsWindowDays)
	entries := make([]DailyEntry, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		key := timeutil.DayKey(d)
		entries[i] = DailyEntry{Date: key}
		index[key] = i
	}

	report := Report{}

	cs := make([]*habit.Completion, 0, len(completions))
	for _, c := range completions {
		if c == nil || c.CompletedAt.IsZero() {
			report.SkippedRecords++
			continue
		}
		cs = append(cs, c)
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].CompletedAt.Before(cs[j].CompletedAt) })

	for _, c := range cs {
		i, ok := index[timeutil.DayKey(c.CompletedAt)]
		if !ok {
			continue
		}
		entries[i].Completions++
		entries[i].XPEarned += c.XPEarned
		report.TotalCompletions++
		report.TotalXP += c.XPEarned
	}

	ms := make([]*habit.MoodEntry, 0, len(moods))
	for _, m := range moods {
		if m == nil || m.CreatedAt.IsZero() {
			report.SkippedRecords++
			continue
		}
		ms = append(ms, m)
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].CreatedAt.Before(ms[j].CreatedAt) })

	var moodSum, energySum, moodCount int
	for _, m := range ms {
		i, ok := index[timeutil.DayKey(m.CreatedAt)]
		if !ok {
			continue
		}
		mood, energy := m.MoodRating, m.EnergyLevel
		entries[i].Mood = &mood
		entries[i].Energy = &energy
		moodSum += mood
		energySum += energy
		moodCount++
	}

	series := make([]bool, len(entries))
	for i, e := range entries {
		series[i] = e.Completions > 0
	}
	report.CurrentStreak, report.LongestStreak = RecomputeStreaks(series)

	report.AvgMood, report.AvgEnergy = DefaultRating, DefaultRating
	if moodCount > 0 {
		report.AvgMood = float64(moodSum) / float64(moodCount)
		report.AvgEnergy = float64(energySum) / float64(moodCount)
	}

	report.DailyData = entries
	return report
}
