package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/chat"
)

// ChainGenerator runs requests through an eino prompt chain on top of any
// eino chat model.
type ChainGenerator struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewArkGenerator creates a ChainGenerator backed by a Volcengine Ark model.
func NewArkGenerator(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*ChainGenerator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChainGenerator(ctx, chatModel, logger)
}

// NewChainGenerator compiles the system / history / query chain for chatModel.
func NewChainGenerator(ctx context.Context, chatModel model.ChatModel, logger *zap.Logger) (*ChainGenerator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChainGenerator{
		chain:  runnable,
		logger: logging.OrNop(logger),
	}, nil
}

// Generate implements Generator.
func (g *ChainGenerator) Generate(ctx context.Context, req Request) (string, error) {
	input := map[string]any{
		"system":  req.Instructions,
		"history": toSchemaMessages(req.History),
		"query":   req.Input,
	}

	opts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	response, err := g.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("chain generation done", zap.Int("length", len(response.Content)))
	return response.Content, nil
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
