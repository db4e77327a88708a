package dialogue

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/service/ai"
	"github.com/zhouzirui/daybook/internal/service/ai/aitest"
)

var testAI = config.AIConfig{Temperature: 0.7, MaxTokens: 500}

func TestParseCommand(t *testing.T) {
	for _, msg := range []string{"end", " STOP ", "That's all", "that’s   all", "Basta", "termina\n", "enough"} {
		assert.True(t, IsTermination(msg), msg)
	}
	for _, msg := range []string{"", "fine", "stop it", "I want to end this", "the end."} {
		assert.False(t, IsTermination(msg), msg)
	}
}

func TestTurnRequiresActiveSession(t *testing.T) {
	e := NewEngine(aitest.Static("hi"), testAI, nil)

	_, err := e.Turn(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSessionNotActive)

	e.StartSession("", "")
	e.Reset()
	_, err = e.Turn(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSessionNotActive)
}

func TestStartSession(t *testing.T) {
	e := NewEngine(aitest.Static("hi"), testAI, nil)

	hello := e.StartSession("Ada", "=== USER BACKGROUND ===\n- Yesterday: exam")
	assert.Equal(t, StateActive, e.State())
	assert.Contains(t, hello, "Ada")

	session := e.Session()
	assert.True(t, session.Active)
	require.Len(t, session.History, 1)
	assert.Equal(t, chat.RoleAssistant, session.History[0].Role)
	assert.Contains(t, session.Instructions, "USER BACKGROUND")

	// Restarting clears history and drops the addendum.
	e.StartSession("", "")
	assert.Len(t, e.History(), 1)
	assert.NotContains(t, e.Session().Instructions, "USER BACKGROUND")
	assert.Equal(t, greeting(""), e.History()[0].Content)
}

func TestTurnGeneratesReply(t *testing.T) {
	fake := aitest.Static("  That sounds tiring. What helped?  ")
	e := NewEngine(fake, testAI, nil)
	e.StartSession("", "")

	reply, err := e.Turn(context.Background(), "long day at work")
	require.NoError(t, err)
	require.NoError(t, reply.Err)
	assert.Equal(t, "That sounds tiring. What helped?", reply.Text)

	history := e.History()
	require.Len(t, history, 3)
	assert.Equal(t, chat.UserMessage("long day at work"), history[1])
	assert.Equal(t, chat.AssistantMessage(reply.Text), history[2])

	call, ok := fake.LastCall()
	require.True(t, ok)
	assert.Equal(t, "long day at work", call.Input)
	assert.Len(t, call.History, 1, "prior turns exclude the new input")
	assert.InDelta(t, 0.7, call.Temperature, 1e-6)
	assert.Equal(t, 500, call.MaxTokens)
}

func TestTurnSubstitutesClosingInstruction(t *testing.T) {
	fake := aitest.Static("Thanks for sharing. Save it?")
	e := NewEngine(fake, testAI, nil)
	e.StartSession("", "")

	_, err := e.Turn(context.Background(), "went for a run")
	require.NoError(t, err)
	_, err = e.Turn(context.Background(), " Stop ")
	require.NoError(t, err)

	call, _ := fake.LastCall()
	assert.NotEqual(t, " Stop ", call.Input)
	assert.Contains(t, call.Input, "finished sharing")
	assert.Equal(t, StateActive, e.State(), "termination is decided by the caller")
	assert.Equal(t, 1, e.UserTurns())
}

func TestTurnFailureReturnsVisibleError(t *testing.T) {
	e := NewEngine(aitest.Failing(aitest.ErrUnavailable), testAI, nil)
	e.StartSession("", "")

	reply, err := e.Turn(context.Background(), "hello")
	require.NoError(t, err)
	require.ErrorIs(t, reply.Err, aitest.ErrUnavailable)
	assert.True(t, strings.HasPrefix(reply.Text, "[Error"))
	assert.Len(t, e.History(), 2, "failed reply is not recorded")
}

func TestSummarizeBands(t *testing.T) {
	tests := []struct {
		turns     int
		maxTokens int
		words     string
	}{
		{1, 80, "20-30"},
		{2, 80, "20-30"},
		{3, 120, "40-60"},
		{5, 180, "80-100"},
		{7, 180, "80-100"},
		{8, 250, "120-150"},
	}
	for _, tt := range tests {
		fake := aitest.Static("I went running.")
		e := NewEngine(fake, testAI, nil)
		e.StartSession("", "")
		for i := 0; i < tt.turns; i++ {
			_, err := e.Turn(context.Background(), "something happened")
			require.NoError(t, err)
		}
		_, err := e.Turn(context.Background(), "stop")
		require.NoError(t, err)

		summary, err := e.Summarize(context.Background(), "")
		require.NoError(t, err)
		require.NoError(t, summary.Err)
		assert.Equal(t, tt.turns, summary.UserTurns)

		call, _ := fake.LastCall()
		assert.Equal(t, tt.maxTokens, call.MaxTokens)
		assert.InDelta(t, 0.3, call.Temperature, 1e-6)
		assert.Contains(t, call.Input, tt.words+" words")
		assert.Equal(t, transcriberInstructions, call.Instructions)
	}
}

func TestSummarizeMergeKeepsExistingPrefix(t *testing.T) {
	fake := aitest.Sequence(
		aitest.Reply{Text: "reply"},
		aitest.Reply{Text: "In the evening I cooked dinner."},
	)
	e := NewEngine(fake, testAI, nil)
	e.StartSession("", "")
	_, err := e.Turn(context.Background(), "cooked dinner tonight")
	require.NoError(t, err)

	summary, err := e.Summarize(context.Background(), "I worked all morning.")
	require.NoError(t, err)
	assert.Equal(t, "I worked all morning.\n\nIn the evening I cooked dinner.", summary.Text)

	call, _ := fake.LastCall()
	assert.Contains(t, call.Input, "I worked all morning.")
	assert.Contains(t, call.Input, "append")
}

func TestSummarizeFailure(t *testing.T) {
	e := NewEngine(aitest.Sequence(aitest.Reply{Text: "ok"}, aitest.Reply{Err: aitest.ErrUnavailable}), testAI, nil)

	_, err := e.Summarize(context.Background(), "")
	require.ErrorIs(t, err, ErrSessionNotActive)

	e.StartSession("", "")
	_, err = e.Turn(context.Background(), "hi")
	require.NoError(t, err)

	summary, err := e.Summarize(context.Background(), "A")
	require.NoError(t, err)
	require.Error(t, summary.Err)
	assert.True(t, strings.HasPrefix(summary.Text, "[Error"))
}

func TestNilGenerator(t *testing.T) {
	e := NewEngine(nil, testAI, nil)
	e.StartSession("", "")

	reply, err := e.Turn(context.Background(), "hello")
	require.NoError(t, err)
	assert.ErrorIs(t, reply.Err, ai.ErrDisabled)
}

func TestSummarizeAfterTerminate(t *testing.T) {
	e := NewEngine(aitest.Static("I read a book."), testAI, nil)
	e.StartSession("", "")
	_, err := e.Turn(context.Background(), "read a book")
	require.NoError(t, err)

	e.Terminate()
	summary, err := e.Summarize(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, summary.Err)
	assert.Equal(t, "I read a book.", summary.Text)
	assert.Equal(t, 1, summary.UserTurns)
}

func TestTerminateAndReset(t *testing.T) {
	e := NewEngine(aitest.Static("ok"), testAI, nil)
	e.StartSession("", "")
	e.Terminate()
	assert.Equal(t, StateTerminated, e.State())
	assert.False(t, e.Session().Active)

	_, err := e.Turn(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSessionNotActive)

	e.Reset()
	assert.Equal(t, StateUninitialized, e.State())
	assert.Empty(t, e.History())
}
