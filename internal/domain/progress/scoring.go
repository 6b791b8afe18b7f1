package progress

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

const (
	MinLevel = 1
	MaxLevel = 50

	// xpPerLevelUnit: порог уровня L равен L^2 * xpPerLevelUnit.
	xpPerLevelUnit = 100
)

// Level вычисляет уровень: clamp(floor(sqrt(xp/100)) + 1, 1, 50).
func Level(xp int) int {
	if xp <= 0 {
		return MinLevel
	}
	level := int(math.Floor(math.Sqrt(float64(xp)/xpPerLevelUnit))) + 1
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// XPToNextLevel возвращает, сколько XP осталось до следующего уровня.
// На максимальном уровне порог считается от L=50 и обрезается до нуля.
func XPToNextLevel(xp int) int {
	l := Level(xp)
	required := l * l * xpPerLevelUnit
	if required-xp < 0 {
		return 0
	}
	return required - xp
}

// ══════════════════════════════════════════════════════════════════════════════
// AVATAR EVOLUTION
// ══════════════════════════════════════════════════════════════════════════════

// Evolution - косметическое описание стадии аватара.
type Evolution struct {
	Stage string `json:"stage"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Emoji string `json:"emoji"`
}

type evolutionThreshold struct {
	level int
	stage Evolution
}

// Пороги по возрастанию уровня.
var evolutionStages = []evolutionThreshold{
	{1, Evolution{Stage: "Seedling", Color: "#90EE90", Size: "small", Emoji: "🌱"}},
	{5, Evolution{Stage: "Sprout", Color: "#32CD32", Size: "medium", Emoji: "🌿"}},
	{10, Evolution{Stage: "Young Tree", Color: "#228B22", Size: "large", Emoji: "🌳"}},
	{20, Evolution{Stage: "Mature Tree", Color: "#006400", Size: "xl", Emoji: "🌲"}},
	{30, Evolution{Stage: "Ancient Tree", Color: "#8B4513", Size: "2xl", Emoji: "🌴"}},
	{40, Evolution{Stage: "Magical Tree", Color: "#FFD700", Size: "3xl", Emoji: "✨🌳"}},
	{50, Evolution{Stage: "Legendary Tree", Color: "#FF6347", Size: "4xl", Emoji: "🏆🌳"}},
}

// EvolutionFor возвращает стадию с наибольшим порогом <= level.
func EvolutionFor(level int) Evolution {
	current := evolutionStages[0].stage
	for _, t := range evolutionStages {
		if level >= t.level {
			current = t.stage
		}
	}
	return current
}

// LevelInfo - производные поля уровня для ответов API.
type LevelInfo struct {
	Level         int
	XPToNextLevel int
	Evolution     Evolution
}

// Describe собирает все производные поля для данного XP.
func Describe(xp int) LevelInfo {
	l := Level(xp)
	return LevelInfo{Level: l, XPToNextLevel: XPToNextLevel(xp), Evolution: EvolutionFor(l)}
}
