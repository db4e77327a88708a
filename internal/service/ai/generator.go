// Package ai wraps the language-generation providers behind one request /
// response contract shared by dialogue, summarization, safety and scoring.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/chat"
)

var (
	// ErrDisabled is returned by New when the selected provider has no credentials.
	ErrDisabled = errors.New("generation provider not configured")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Request is one blocking completion call.
type Request struct {
	Instructions string
	History      []chat.Message
	Input        string
	Temperature  float32
	MaxTokens    int
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New builds the generator for the configured provider, wrapped with the
// configured timeout.
func New(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Generator, error) {
	logger = logging.OrNop(logger).Named("ai")
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: provider %q", ErrDisabled, cfg.Provider)
	}

	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case config.ProviderArk:
		gen, err = NewArkGenerator(ctx, cfg, logger)
	case config.ProviderGemini:
		gen, err = NewGeminiGenerator(ctx, cfg, logger)
	case config.ProviderOpenAI:
		gen = NewOpenAIGenerator(cfg, logger)
	case config.ProviderOllama:
		gen, err = NewOllamaGenerator(cfg, logger)
	default:
		err = fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s generator: %w", cfg.Provider, err)
	}

	logger.Info("generator ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return WithTimeout(gen, cfg.Timeout), nil
}

// WithTimeout bounds every call of g by d. A timeout surfaces as an ordinary
// error so callers apply their usual failure policy.
func WithTimeout(g Generator, d time.Duration) Generator {
	if g == nil || d <= 0 {
		return g
	}
	return GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type result struct {
			text string
			err  error
		}
		done := make(chan result, 1)
		go func() {
			text, err := g.Generate(ctx, req)
			done <- result{text: text, err: err}
		}()

		select {
		case res := <-done:
			return res.text, res.err
		case <-ctx.Done():
			return "", fmt.Errorf("generation timed out after %s: %w", d, ctx.Err())
		}
	})
}
