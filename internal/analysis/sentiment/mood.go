package sentiment

import "github.com/zhouzirui/daybook/internal/model/journal"

// Mood is a one-word reading of an emotion vector.
type Mood string

const (
	Balanced   Mood = "balanced"
	Joyful     Mood = "joyful"
	Stressed   Mood = "stressed"
	Frustrated Mood = "frustrated"
	Drained    Mood = "drained"
	Serene     Mood = "serene"
	Driven     Mood = "driven"
)

// Decision 给出主导情绪以及其强度。
type Decision struct {
	Mood  Mood    `json:"mood"`
	Score float64 `json:"score"`
}

// 偏离中点不到该值时视为平稳
const moodThreshold = 2

// Analyze picks the dimension that strays furthest from its neutral value.
// Low energy reads as drained; every other dimension counts when high.
func Analyze(v journal.EmotionVector) Decision {
	v = v.Clamped()
	neutral := journal.NeutralEmotions()

	candidates := []struct {
		mood  Mood
		delta float64
		score float64
	}{
		{Joyful, v.Happiness - neutral.Happiness, v.Happiness},
		{Stressed, v.Stress - neutral.Stress, v.Stress},
		{Frustrated, v.Anger - neutral.Anger, v.Anger},
		{Drained, neutral.Energy - v.Energy, v.Energy},
		{Serene, v.Calm - neutral.Calm, v.Calm},
		{Driven, v.Motivation - neutral.Motivation, v.Motivation},
	}

	best := Decision{Mood: Balanced}
	bestDelta := float64(moodThreshold)
	for _, c := range candidates {
		// 同分时保留靠前的维度
		if c.delta >= bestDelta && (best.Mood == Balanced || c.delta > bestDelta) {
			best = Decision{Mood: c.mood, Score: c.score}
			bestDelta = c.delta
		}
	}
	return best
}
