package journal

import "math"

// Score bounds for every emotion dimension.
const (
	MinScore      = 0.0
	MaxScore      = 10.0
	MidpointScore = 5.0
)

// EmotionVector holds six independent intensity scores in [0, 10].
type EmotionVector struct {
	Stress     float64 `json:"stress"`
	Happiness  float64 `json:"happiness"`
	Anger      float64 `json:"anger"`
	Energy     float64 `json:"energy"`
	Calm       float64 `json:"calm"`
	Motivation float64 `json:"motivation"`
}

// EmotionDimensions lists the vector fields in their canonical order.
var EmotionDimensions = []string{"stress", "happiness", "anger", "energy", "calm", "motivation"}

// NeutralEmotions is reported when scoring fails entirely.
func NeutralEmotions() EmotionVector {
	return EmotionVector{
		Stress:     5,
		Happiness:  6,
		Anger:      2,
		Energy:     5.5,
		Calm:       5,
		Motivation: 6,
	}
}

// Get returns the score for a named dimension.
func (v EmotionVector) Get(name string) (float64, bool) {
	switch name {
	case "stress":
		return v.Stress, true
	case "happiness":
		return v.Happiness, true
	case "anger":
		return v.Anger, true
	case "energy":
		return v.Energy, true
	case "calm":
		return v.Calm, true
	case "motivation":
		return v.Motivation, true
	default:
		return 0, false
	}
}

// Set assigns a named dimension, clamping the value.
func (v *EmotionVector) Set(name string, value float64) bool {
	value = ClampScore(value)
	switch name {
	case "stress":
		v.Stress = value
	case "happiness":
		v.Happiness = value
	case "anger":
		v.Anger = value
	case "energy":
		v.Energy = value
	case "calm":
		v.Calm = value
	case "motivation":
		v.Motivation = value
	default:
		return false
	}
	return true
}

// Clamped returns a copy with every dimension inside [0, 10].
func (v EmotionVector) Clamped() EmotionVector {
	out := v
	for _, name := range EmotionDimensions {
		val, _ := v.Get(name)
		out.Set(name, val)
	}
	return out
}

// ClampScore bounds a score to [0, 10]; NaN becomes the midpoint.
func ClampScore(val float64) float64 {
	if math.IsNaN(val) {
		return MidpointScore
	}
	if val < MinScore {
		return MinScore
	}
	if val > MaxScore {
		return MaxScore
	}
	return val
}
