// Package emotion scores free text on six independent emotion dimensions.
package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/ai"
)

const (
	scoreTemperature = 0.3
	scoreMaxTokens   = 100
)

// Assessment is the degradable result of scoring. Vector is always complete
// and clamped; Degraded reports that some or all of it are defaults.
type Assessment struct {
	Vector   journal.EmotionVector `json:"vector"`
	Degraded bool                  `json:"degraded"`
	Err      error                 `json:"-"`
}

// Scorer calls the generator for a structured score.
type Scorer struct {
	gen          ai.Generator
	instructions string
	logger       *zap.Logger
}

// scorePayload documents the expected answer for the model.
type scorePayload struct {
	Stress     float64 `json:"stress" jsonschema:"minimum=0,maximum=10,description=stress or anxiety"`
	Happiness  float64 `json:"happiness" jsonschema:"minimum=0,maximum=10,description=happiness or joy"`
	Anger      float64 `json:"anger" jsonschema:"minimum=0,maximum=10,description=anger or frustration"`
	Energy     float64 `json:"energy" jsonschema:"minimum=0,maximum=10,description=physical and mental energy"`
	Calm       float64 `json:"calm" jsonschema:"minimum=0,maximum=10,description=calm and serenity"`
	Motivation float64 `json:"motivation" jsonschema:"minimum=0,maximum=10,description=motivation and determination"`
}

// NewScorer creates a Scorer. A nil gen makes every assessment the neutral
// vector.
func NewScorer(gen ai.Generator, logger *zap.Logger) *Scorer {
	return &Scorer{
		gen:          gen,
		instructions: buildInstructions(),
		logger:       logging.OrNop(logger).Named("emotion"),
	}
}

// Score returns a complete vector for text and never fails.
func (s *Scorer) Score(ctx context.Context, text string) journal.EmotionVector {
	return s.Assess(ctx, text).Vector
}

// Assess scores text, reporting whether defaults were used.
func (s *Scorer) Assess(ctx context.Context, text string) Assessment {
	if s == nil || s.gen == nil {
		return neutral(ai.ErrDisabled)
	}
	if strings.TrimSpace(text) == "" {
		return neutral(errors.New("empty text"))
	}

	raw, err := s.gen.Generate(ctx, ai.Request{
		Instructions: s.instructions,
		Input:        fmt.Sprintf("Text: %q\n\nJSON:", text),
		Temperature:  scoreTemperature,
		MaxTokens:    scoreMaxTokens,
	})
	if err != nil {
		s.logger.Warn("emotion scoring failed, using neutral scores", zap.Error(err))
		return neutral(err)
	}

	assessment, err := parseScores(raw)
	if err != nil {
		s.logger.Warn("emotion output parse failed, using neutral scores",
			zap.Error(err), zap.String("output", logging.Preview(raw)))
		return neutral(err)
	}
	return assessment
}

func neutral(err error) Assessment {
	return Assessment{Vector: journal.NeutralEmotions(), Degraded: true, Err: err}
}

// parseScores extracts the JSON object from the model output, clamps every
// field and fills missing ones with the midpoint.
func parseScores(content string) (Assessment, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.ReplaceAll(trimmed, "```json", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return Assessment{}, fmt.Errorf("missing json object")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return Assessment{}, err
	}

	var (
		vector   journal.EmotionVector
		degraded bool
	)
	for _, name := range journal.EmotionDimensions {
		value, ok := numeric(lookup(payload, name))
		if !ok {
			value = journal.MidpointScore
			degraded = true
		}
		vector.Set(name, value)
	}
	return Assessment{Vector: vector, Degraded: degraded}, nil
}

func lookup(payload map[string]any, name string) any {
	if v, ok := payload[name]; ok {
		return v
	}
	for key, v := range payload {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return nil
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func buildInstructions() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema, err := json.Marshal(reflector.Reflect(&scorePayload{}))
	if err != nil {
		schema = []byte(`{"type":"object"}`)
	}

	return `You analyse a journal text and rate the user's emotions from 0 to 10 (0 = absent, 10 = very intense):
- stress: stress or anxiety
- happiness: happiness or joy
- anger: anger or frustration
- energy: physical and mental energy
- calm: calm and serenity
- motivation: motivation and determination

IMPORTANT:
- Understand negations ("I'm not happy" = low happiness)
- Understand nuance ("over the moon" = high happiness)
- Consider the whole context, not single words

Reply ONLY with one valid JSON object matching this schema:
` + string(schema) + `
Example: {"stress": 5, "happiness": 7, "anger": 2, "energy": 6, "calm": 5, "motivation": 7}`
}
