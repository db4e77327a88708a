package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/service/ai"
	"github.com/zhouzirui/daybook/internal/service/briefing"
	"github.com/zhouzirui/daybook/internal/service/dialogue"
	"github.com/zhouzirui/daybook/internal/service/emotion"
	"github.com/zhouzirui/daybook/internal/service/insights"
	"github.com/zhouzirui/daybook/internal/service/safety"
	"github.com/zhouzirui/daybook/internal/service/session"
	"github.com/zhouzirui/daybook/internal/service/streak"
	"github.com/zhouzirui/daybook/internal/store"
)

// app holds the wired services shared by every command.
type app struct {
	store       store.Store
	coordinator *session.Coordinator
	insights    *insights.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Journal.Location()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	gen, err := ai.New(ctx, cfg.AI, logger)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		logger.Warn("AI credentials not configured, replies and narratives will show an error placeholder")
		gen = nil
	case err != nil:
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	safetyGen := gen
	if gen != nil && cfg.Safety.Model != "" && cfg.Safety.Model != cfg.AI.Model {
		safetyCfg := cfg.AI
		safetyCfg.Model = cfg.Safety.Model
		if safetyGen, err = ai.New(ctx, safetyCfg, logger.Named("safety")); err != nil {
			logger.Warn("safety model unavailable, using the dialogue model", zap.Error(err))
			safetyGen = gen
		}
	}

	ledger := streak.NewLedger(st, loc, logger)
	coord := session.New(session.Deps{
		Store:   st,
		Safety:  safety.NewGate(cfg.Safety, safetyGen, logger),
		Briefer: briefing.NewAssembler(gen, logger),
		Scorer:  emotion.NewScorer(gen, logger),
		Ledger:  ledger,
		NewEngine: func() *dialogue.Engine {
			return dialogue.NewEngine(gen, cfg.AI, logger)
		},
	}, cfg.Journal, logger)

	logger.Info("daybook ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("dataDir", cfg.Store.DataDir),
		zap.Bool("generator", gen != nil),
		zap.Bool("semanticCrisisCheck", cfg.Safety.SemanticCheck),
	)
	return &app{
		store:       st,
		coordinator: coord,
		insights:    insights.NewService(st, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
