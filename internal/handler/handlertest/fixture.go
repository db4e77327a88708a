// Package handlertest builds a coordinator on scripted generators for
// handler tests.
package handlertest

import (
	"time"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/service/ai"
	"github.com/zhouzirui/daybook/internal/service/ai/aitest"
	"github.com/zhouzirui/daybook/internal/service/briefing"
	"github.com/zhouzirui/daybook/internal/service/dialogue"
	"github.com/zhouzirui/daybook/internal/service/emotion"
	"github.com/zhouzirui/daybook/internal/service/insights"
	"github.com/zhouzirui/daybook/internal/service/safety"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/internal/service/streak"
	"github.com/zhouzirui/daybook/internal/store"
)

// Reply is the scripted coach reply on every turn.
const Reply = "Tell me more."

// Narrative is the scripted end-of-session narrative.
const Narrative = "I went for a walk."

// Scores is the scripted emotion answer.
const Scores = `{"stress": 3, "happiness": 8, "anger": 1, "energy": 7, "calm": 6, "motivation": 7}`

// Fixture bundles the services behind the handlers.
type Fixture struct {
	Store       *store.MemoryStore
	Coordinator *session.Coordinator
	Insights    *insights.Service
	Dialogue    *aitest.Fake
}

// New builds a Fixture whose clock is fixed at now.
func New(now time.Time) *Fixture {
	clock := func() time.Time { return now }
	s := store.NewMemoryStore()
	gen := aitest.New(func(req ai.Request) (string, error) {
		if len(req.History) > 0 {
			return Reply, nil
		}
		return Narrative, nil
	})

	coord := session.New(session.Deps{
		Store:   s,
		Safety:  safety.NewGate(config.SafetyConfig{}, nil, nil),
		Briefer: briefing.NewAssembler(nil, nil, briefing.WithClock(clock)),
		Scorer:  emotion.NewScorer(aitest.Static(Scores), nil),
		Ledger:  streak.NewLedger(s, time.UTC, nil, streak.WithClock(clock)),
		NewEngine: func() *dialogue.Engine {
			return dialogue.NewEngine(gen, config.AIConfig{Temperature: 0.7, MaxTokens: 500}, nil)
		},
	}, config.JournalConfig{ContextDays: 3, ContextEntries: 7}, nil, session.WithClock(clock))

	return &Fixture{
		Store:       s,
		Coordinator: coord,
		Insights:    insights.NewService(s, nil),
		Dialogue:    gen,
	}
}
