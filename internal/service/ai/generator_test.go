package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/service/ai"
	"github.com/zhouzirui/daybook/internal/service/ai/aitest"
)

func TestWithTimeoutRoutesDeadlineToError(t *testing.T) {
	blocking := ai.GeneratorFunc(func(ctx context.Context, _ ai.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	gen := ai.WithTimeout(blocking, 20*time.Millisecond)
	_, err := gen.Generate(context.Background(), ai.Request{Input: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	fake := aitest.Static("ok")
	gen := ai.WithTimeout(fake, time.Second)

	text, err := gen.Generate(context.Background(), ai.Request{Input: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 1, fake.CallCount())
}

func TestWithTimeoutZeroIsIdentity(t *testing.T) {
	fake := aitest.Static("ok")
	assert.Same(t, fake, ai.WithTimeout(fake, 0))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := ai.New(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, nil)
	require.ErrorIs(t, err, ai.ErrDisabled)
}

func TestOpenAIGenerator(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Come stai?"}}]}`))
	}))
	defer srv.Close()

	gen := ai.NewOpenAIGenerator(config.AIConfig{
		APIKey:  "test",
		BaseURL: srv.URL + "/",
		Model:   "gpt-4o-mini",
	}, nil)

	text, err := gen.Generate(context.Background(), ai.Request{
		Instructions: "be kind",
		History:      []chat.Message{chat.AssistantMessage("hi"), chat.UserMessage("tired")},
		Input:        "and hungry",
		Temperature:  0.3,
		MaxTokens:    80,
	})
	require.NoError(t, err)
	assert.Equal(t, "Come stai?", text)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 4, "system + two history turns + input")
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 80, body["max_completion_tokens"])
}

type recordingModel struct {
	input []*schema.Message
	opts  *model.Options
	reply string
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.opts = model.GetCommonOptions(&model.Options{}, opts...)
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *recordingModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestChainGeneratorBuildsPrompt(t *testing.T) {
	fake := &recordingModel{reply: "Grazie per aver condiviso."}
	gen, err := ai.NewChainGenerator(context.Background(), fake, nil)
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), ai.Request{
		Instructions: "journal coach",
		History:      []chat.Message{chat.AssistantMessage("Ciao!"), chat.UserMessage("busy day")},
		Input:        "stop",
		Temperature:  0.3,
		MaxTokens:    120,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grazie per aver condiviso.", text)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, "journal coach", fake.input[0].Content)
	assert.Equal(t, schema.Assistant, fake.input[1].Role)
	assert.Equal(t, schema.User, fake.input[3].Role)
	assert.Equal(t, "stop", fake.input[3].Content)

	require.NotNil(t, fake.opts.Temperature)
	assert.InDelta(t, 0.3, *fake.opts.Temperature, 1e-6)
	require.NotNil(t, fake.opts.MaxTokens)
	assert.Equal(t, 120, *fake.opts.MaxTokens)
}

func TestChainGeneratorEmptyReply(t *testing.T) {
	gen, err := ai.NewChainGenerator(context.Background(), &recordingModel{reply: "  "}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), ai.Request{Input: "x"})
	require.ErrorIs(t, err, ai.ErrEmptyResponse)
}
