// Package session sequences the journaling pipeline for each live session:
// safety gate, dialogue turn, live scoring and the end-of-session save.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/dialogue"
	"github.com/zhouzirui/daybook/internal/service/emotion"
	"github.com/zhouzirui/daybook/internal/service/safety"
	"github.com/zhouzirui/daybook/internal/service/streak"
	"github.com/zhouzirui/daybook/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveSession = errors.New("no active session")
	ErrEmptyMessage    = errors.New("message is required")
	ErrEmptyEntry      = errors.New("entry content is required")
)

// SafetyChecker screens a user message before anything else runs.
type SafetyChecker interface {
	Check(ctx context.Context, message string) safety.Result
}

// Briefer renders recent entries into the dialogue background block.
type Briefer interface {
	BuildContext(ctx context.Context, entries []journal.Entry, horizon int) string
}

// Assessor scores text and always returns a complete vector.
type Assessor interface {
	Assess(ctx context.Context, text string) emotion.Assessment
}

// StreakRecorder owns "today" and the engagement profile.
type StreakRecorder interface {
	Today() string
	Profile(ctx context.Context) (journal.Profile, error)
	RecordEntryForToday(ctx context.Context) (streak.Outcome, error)
}

// Deps are the collaborators of a Coordinator. Briefer and Scorer may be nil.
type Deps struct {
	Store     store.Store
	Safety    SafetyChecker
	Briefer   Briefer
	Scorer    Assessor
	Ledger    StreakRecorder
	NewEngine func() *dialogue.Engine
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// TurnOption customises a single HandleMessage call.
type TurnOption func(*turnOptions)

type turnOptions struct {
	onReply func(reply string)
}

// WithReplyHook delivers the reply of a live turn as soon as it exists,
// before emotion scoring finishes.
func WithReplyHook(fn func(reply string)) TurnOption {
	return func(o *turnOptions) { o.onReply = fn }
}

type liveSession struct {
	mu        sync.Mutex
	id        string
	userName  string
	engine    *dialogue.Engine
	active    bool
	startedAt time.Time
}

func (s *liveSession) close() {
	s.engine.Reset()
	s.active = false
}

// Coordinator owns every live session and is the only mutator of their
// dialogue state.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession

	deps   Deps
	cfg    config.JournalConfig
	locks  *store.DateLocks
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Coordinator.
func New(deps Deps, cfg config.JournalConfig, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions: make(map[string]*liveSession),
		deps:     deps,
		cfg:      cfg,
		locks:    store.NewDateLocks(),
		now:      time.Now,
		logger:   logging.OrNop(logger).Named("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession opens a session with background context from recent entries.
// Failures while loading context degrade the start instead of failing it.
func (c *Coordinator) StartSession(ctx context.Context, userName string) StartResult {
	c.pruneInactive()

	degraded := false
	name := strings.TrimSpace(userName)
	if name == "" {
		name = strings.TrimSpace(c.cfg.UserName)
	}
	if name == "" {
		profile, err := c.deps.Ledger.Profile(ctx)
		if err != nil {
			c.logger.Warn("failed to read profile for session start", zap.Error(err))
			degraded = true
		} else {
			name = profile.Preferences.Name
		}
	}

	addendum := ""
	if c.deps.Briefer != nil {
		entries, err := c.deps.Store.ListRecentEntries(ctx, c.cfg.ContextEntries)
		if err != nil {
			c.logger.Warn("failed to load recent entries, starting without context", zap.Error(err))
			degraded = true
		} else {
			addendum = c.deps.Briefer.BuildContext(ctx, entries, c.cfg.ContextDays)
		}
	}

	ls := &liveSession{
		id:        uuid.NewString(),
		userName:  name,
		engine:    c.deps.NewEngine(),
		active:    true,
		startedAt: c.now(),
	}
	greeting := ls.engine.StartSession(name, addendum)

	c.mu.Lock()
	c.sessions[ls.id] = ls
	c.mu.Unlock()

	c.logger.Info("session started",
		zap.String("sessionID", ls.id),
		zap.Bool("contextLoaded", addendum != ""),
		zap.Bool("degraded", degraded),
	)
	return StartResult{
		SessionID:     ls.id,
		Success:       true,
		Greeting:      greeting,
		Degraded:      degraded,
		ContextLoaded: addendum != "",
	}
}

// HandleMessage runs one user message through the pipeline. Only usage
// errors are returned as errors; generation and persistence failures are
// reported inside the result.
func (c *Coordinator) HandleMessage(ctx context.Context, sessionID, text string, opts ...TurnOption) (TurnResult, error) {
	var o turnOptions
	for _, opt := range opts {
		opt(&o)
	}

	ls, err := c.lookup(sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.active {
		return TurnResult{}, ErrNoActiveSession
	}

	logger := c.logger.With(zap.String("sessionID", ls.id))
	logger.Debug("message received", zap.Int("length", len(text)), zap.String("preview", logging.Preview(text)))

	if verdict := c.deps.Safety.Check(ctx, text); verdict.IsCrisis {
		ls.close()
		logger.Warn("crisis detected, session closed without reply")
		return TurnResult{
			Success:        true,
			Reply:          verdict.ResponseText,
			CrisisDetected: true,
			ShouldEnd:      true,
		}, nil
	}

	reply, err := ls.engine.Turn(ctx, text)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrNoActiveSession, err)
	}
	// 生成失败时错误文本作为回复, 流程继续
	turnErr := ""
	if reply.Err != nil {
		turnErr = reply.Err.Error()
	}

	if dialogue.IsTermination(text) {
		result := c.finish(ctx, ls, reply.Text)
		if turnErr != "" && result.Error == "" {
			result.Error = turnErr
		}
		return result, nil
	}

	if c.deps.Scorer == nil {
		if o.onReply != nil {
			o.onReply(reply.Text)
		}
		return TurnResult{Success: turnErr == "", Reply: reply.Text, Error: turnErr}, nil
	}

	scored := make(chan emotion.Assessment, 1)
	go func() {
		scored <- c.deps.Scorer.Assess(ctx, text)
	}()
	if o.onReply != nil {
		o.onReply(reply.Text)
	}
	assessment := <-scored

	vector := assessment.Vector
	return TurnResult{
		Success:          turnErr == "",
		Reply:            reply.Text,
		Emotions:         &vector,
		EmotionsDegraded: assessment.Degraded,
		Error:            turnErr,
	}, nil
}

// Close runs the end-of-session save without a closing reply, as if the user
// had confirmed saving from outside the conversation.
func (c *Coordinator) Close(ctx context.Context, sessionID string) (TurnResult, error) {
	ls, err := c.lookup(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.active {
		return TurnResult{}, ErrNoActiveSession
	}
	return c.finish(ctx, ls, ""), nil
}

// ForceEnd discards the session without saving anything.
func (c *Coordinator) ForceEnd(sessionID string) error {
	ls, err := c.lookup(sessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.active {
		ls.close()
		c.logger.Info("session force-ended", zap.String("sessionID", ls.id))
	}
	return nil
}

// Status reports the state of a session.
func (c *Coordinator) Status(sessionID string) (Status, error) {
	ls, err := c.lookup(sessionID)
	if err != nil {
		return Status{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	history := ls.engine.History()
	return Status{
		SessionID:          ls.id,
		Active:             ls.active,
		State:              ls.engine.State().String(),
		UserName:           ls.userName,
		UserMessages:       chat.CountRole(history, chat.RoleUser),
		ConversationLength: len(history),
		StartedAt:          ls.startedAt,
	}, nil
}

// SaveEditorEntry appends free-form text to today's entry and counts it for
// the streak.
func (c *Coordinator) SaveEditorEntry(ctx context.Context, content string) (EditorResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return EditorResult{}, ErrEmptyEntry
	}

	date := c.deps.Ledger.Today()
	unlock := c.locks.Lock(date)
	defer unlock()

	entry, err := c.deps.Store.ReadEntry(ctx, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		entry = journal.Entry{Date: date}
	case err != nil:
		return EditorResult{}, fmt.Errorf("read entry: %w", err)
	}

	entry.Text = journal.MergeNarrative(entry.Text, content)
	entry.Timestamp = c.now()
	entry.Metadata.Source = journal.SourceEditor
	if c.deps.Scorer != nil {
		vector := c.deps.Scorer.Assess(ctx, entry.Text).Vector
		entry.Metadata.Emotions = &vector
	}

	if err := c.deps.Store.WriteEntry(ctx, date, entry); err != nil {
		return EditorResult{}, fmt.Errorf("write entry: %w", err)
	}
	outcome, err := c.deps.Ledger.RecordEntryForToday(ctx)
	if err != nil {
		return EditorResult{}, fmt.Errorf("record streak: %w", err)
	}

	c.logger.Info("editor entry saved", zap.String("date", date), zap.Int("length", len(entry.Text)))
	return EditorResult{Date: date, Entry: entry, Streak: outcome}, nil
}

// finish is the termination sequence. The session is closed on every path.
func (c *Coordinator) finish(ctx context.Context, ls *liveSession, reply string) TurnResult {
	defer ls.close()
	ls.engine.Terminate()

	date := c.deps.Ledger.Today()
	closing := &Closing{Date: date}
	result := TurnResult{Success: true, Reply: reply, ShouldEnd: true, Closing: closing}
	logger := c.logger.With(zap.String("sessionID", ls.id), zap.String("date", date))

	if ls.engine.UserTurns() == 0 {
		logger.Info("session closed with nothing to save")
		return result
	}

	unlock := c.locks.Lock(date)
	defer unlock()

	fail := func(step string, err error) TurnResult {
		logger.Error("failed to save session", zap.String("step", step), zap.Error(err))
		result.Success = false
		result.Error = fmt.Sprintf("%s: %v", step, err)
		return result
	}

	existing := ""
	entry, err := c.deps.Store.ReadEntry(ctx, date)
	switch {
	case err == nil:
		existing = entry.Text
	case !errors.Is(err, store.ErrNotFound):
		return fail("read entry", err)
	}

	history := ls.engine.History()
	summary, err := ls.engine.Summarize(ctx, existing)
	if err != nil {
		return fail("summarize", err)
	}
	if summary.Err != nil {
		// 对话依然保存, 日记保持原样
		if err := c.appendConversation(ctx, date, history); err != nil {
			logger.Error("failed to save conversation", zap.Error(err))
		}
		logger.Warn("narrative unavailable, entry left unchanged", zap.Error(summary.Err))
		result.Success = false
		result.Error = summary.Text
		return result
	}

	narrative := journal.MergeNarrative(existing, summary.Text)
	closing.Narrative = narrative

	var vector journal.EmotionVector
	if c.deps.Scorer != nil {
		vector = c.deps.Scorer.Assess(ctx, narrative).Vector
	} else {
		vector = journal.NeutralEmotions()
	}
	closing.Emotions = &vector

	if err := c.appendConversation(ctx, date, history); err != nil {
		return fail("write conversation", err)
	}

	entry = journal.Entry{
		Date:      date,
		Timestamp: c.now(),
		Text:      narrative,
		Metadata: journal.EntryMetadata{
			Source:       journal.SourceChat,
			Emotions:     &vector,
			MessageCount: chat.CountRole(history, chat.RoleUser),
		},
	}
	if err := c.deps.Store.WriteEntry(ctx, date, entry); err != nil {
		return fail("write entry", err)
	}
	closing.Saved = true

	outcome, err := c.deps.Ledger.RecordEntryForToday(ctx)
	if err != nil {
		return fail("record streak", err)
	}
	closing.Streak = &outcome

	logger.Info("session saved",
		zap.Int("userTurns", summary.UserTurns),
		zap.Int("currentStreak", outcome.CurrentStreak),
	)
	return result
}

func (c *Coordinator) appendConversation(ctx context.Context, date string, history []chat.Message) error {
	conversation, err := c.deps.Store.ReadConversation(ctx, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		conversation = journal.Conversation{Date: date}
	case err != nil:
		return fmt.Errorf("read conversation: %w", err)
	}
	return c.deps.Store.WriteConversation(ctx, date, conversation.Append(history, c.now()))
}

func (c *Coordinator) lookup(sessionID string) (*liveSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ls, ok := c.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// pruneInactive drops closed sessions.
func (c *Coordinator) pruneInactive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ls := range c.sessions {
		if ls.mu.TryLock() {
			if !ls.active {
				delete(c.sessions, id)
			}
			ls.mu.Unlock()
		}
	}
}
