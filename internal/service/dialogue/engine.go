// Package dialogue holds the state of one journaling conversation and talks
// to the generator for replies and end-of-session narratives.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/ai"
)

// ErrSessionNotActive is a usage error: a turn was requested with no session.
var ErrSessionNotActive = errors.New("dialogue session not active")

const summaryTemperature = 0.3

// State of the engine.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "uninitialized"
	}
}

// Reply is the outcome of a turn. When Err is set, Text carries a visible
// error string instead of a generated reply.
type Reply struct {
	Text string
	Err  error
}

// Summary is the outcome of Summarize. When Err is set, Text carries a
// visible error string and must not be persisted.
type Summary struct {
	Text      string
	UserTurns int
	Err       error
}

// Engine is the per-session dialogue state machine. It is not safe for
// concurrent use; its owner serializes calls.
type Engine struct {
	gen         ai.Generator
	temperature float32
	maxTokens   int
	now         func() time.Time
	logger      *zap.Logger

	state   State
	session chat.Session
}

// NewEngine creates an engine in the uninitialized state.
func NewEngine(gen ai.Generator, cfg config.AIConfig, logger *zap.Logger) *Engine {
	return &Engine{
		gen:         gen,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		now:         time.Now,
		logger:      logging.OrNop(logger).Named("dialogue"),
	}
}

// StartSession clears any previous state and returns the opening greeting.
func (e *Engine) StartSession(userName, contextAddendum string) string {
	instructions := defaultCoach.render(userName)
	if addendum := strings.TrimSpace(contextAddendum); addendum != "" {
		instructions += "\n\n" + addendum
	}

	hello := greeting(userName)
	e.session = chat.Session{
		Active:       true,
		History:      []chat.Message{chat.AssistantMessage(hello)},
		Instructions: instructions,
		StartedAt:    e.now(),
	}
	e.state = StateActive

	e.logger.Debug("session started", zap.Bool("withContext", contextAddendum != ""))
	return hello
}

// Turn appends the user message and generates the next reply. A termination
// token is replaced by the closing instruction before generation; the engine
// stays active either way.
func (e *Engine) Turn(ctx context.Context, userMessage string) (Reply, error) {
	if e.state != StateActive {
		return Reply{}, ErrSessionNotActive
	}

	prior := append([]chat.Message(nil), e.session.History...)
	e.session.History = append(e.session.History, chat.UserMessage(userMessage))

	input := userMessage
	if IsTermination(userMessage) {
		input = closingInstruction(e.UserTurns())
	}

	if e.gen == nil {
		err := ai.ErrDisabled
		return Reply{Text: generationError(err), Err: err}, nil
	}

	text, err := e.gen.Generate(ctx, ai.Request{
		Instructions: e.session.Instructions,
		History:      prior,
		Input:        input,
		Temperature:  e.temperature,
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		e.logger.Warn("turn generation failed", zap.Error(err))
		return Reply{Text: generationError(err), Err: err}, nil
	}

	text = strings.TrimSpace(text)
	e.session.History = append(e.session.History, chat.AssistantMessage(text))
	return Reply{Text: text}, nil
}

// Summarize writes the narrative for this session. When existing is set the
// result keeps it verbatim as a prefix and only appends new content.
func (e *Engine) Summarize(ctx context.Context, existing string) (Summary, error) {
	if e.state == StateUninitialized {
		return Summary{}, ErrSessionNotActive
	}

	turns := e.UserTurns()
	band := bandFor(turns)

	if e.gen == nil {
		err := ai.ErrDisabled
		return Summary{Text: narrativeError(err), UserTurns: turns, Err: err}, nil
	}

	text, err := e.gen.Generate(ctx, ai.Request{
		Instructions: transcriberInstructions,
		Input:        narrativePrompt(transcript(e.session.History), existing, band),
		Temperature:  summaryTemperature,
		MaxTokens:    band.MaxTokens,
	})
	if err != nil {
		e.logger.Warn("narrative generation failed", zap.Error(err))
		return Summary{Text: narrativeError(err), UserTurns: turns, Err: err}, nil
	}

	merged := journal.MergeNarrative(existing, text)
	e.logger.Debug("narrative generated",
		zap.Int("userTurns", turns),
		zap.String("band", band.Words),
		zap.Bool("merged", strings.TrimSpace(existing) != ""),
	)
	return Summary{Text: merged, UserTurns: turns}, nil
}

// Terminate marks the session finished while keeping its history readable.
func (e *Engine) Terminate() {
	if e.state == StateActive {
		e.state = StateTerminated
		e.session.Active = false
	}
}

// Reset discards the session.
func (e *Engine) Reset() {
	e.state = StateUninitialized
	e.session = chat.Session{}
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Session returns a copy of the session.
func (e *Engine) Session() chat.Session {
	return e.session.Clone()
}

// History returns a copy of the conversation so far.
func (e *Engine) History() []chat.Message {
	return append([]chat.Message(nil), e.session.History...)
}

// UserTurns counts substantive user messages, excluding termination tokens.
func (e *Engine) UserTurns() int {
	n := 0
	for _, msg := range e.session.History {
		if msg.Role == chat.RoleUser && !IsTermination(msg.Content) {
			n++
		}
	}
	return n
}

func transcript(history []chat.Message) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "User"
		if msg.Role == chat.RoleAssistant {
			role = "AI"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

func generationError(err error) string {
	return fmt.Sprintf("[Error communicating with the AI: %v]", err)
}

func narrativeError(err error) string {
	return fmt.Sprintf("[Error generating the journal entry: %v]", err)
}
