package progress

// ══════════════════════════════════════════════════════════════════════════════
// STREAKS
// ══════════════════════════════════════════════════════════════════════════════

// NextStreak - инкрементальный режим: вызывается при выполнении привычки.
// completedYesterday - было ли любое выполнение в [сегодня-24ч, сегодня).
func NextStreak(prevCurrent, prevLongest int, completedYesterday bool) (current, longest int) {
	current = 1
	if completedYesterday {
		current = prevCurrent + 1
	}
	longest = prevLongest
	if current > longest {
		longest = current
	}
	return current, longest
}

// RecomputeStreaks - режим пересчёта по дневному ряду (старые первыми,
// последний элемент - сегодня). Результат только для отчётов: он может
// быть меньше сохранённого стрика и не должен его перезаписывать.
func RecomputeStreaks(days []bool) (current, longest int) {
	run := 0
	for _, done := range days {
		if done {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	for i := len(days) - 1; i >= 0 && days[i]; i-- {
		current++
	}
	return current, longest
}
