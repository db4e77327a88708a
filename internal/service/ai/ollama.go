package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/chat"
)

// OllamaGenerator talks to a local OpenAI-compatible server such as Ollama.
type OllamaGenerator struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewOllamaGenerator creates a langchaingo client against cfg.BaseURL.
func NewOllamaGenerator(cfg config.AIConfig, logger *zap.Logger) (*OllamaGenerator, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return &OllamaGenerator{llm: llm, logger: logging.OrNop(logger)}, nil
}

// Generate implements Generator.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	if strings.TrimSpace(req.Instructions) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.Instructions))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Input))

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama generate content: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Content
	g.logger.Debug("ollama generation done", zap.Int("length", len(text)))
	return text, nil
}
