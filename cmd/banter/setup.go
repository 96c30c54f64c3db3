package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wizenheimer/banter"
	"github.com/wizenheimer/banter/internal/config"
	"github.com/wizenheimer/banter/remote"
	"github.com/wizenheimer/banter/store"
)

// session bundles an engine with the backend it persists to.
type session struct {
	engine  *banter.Engine
	backend store.Backend
}

func (s *session) Close() error {
	return s.backend.Close()
}

// openSession wires the configured store, knowledge file and remote
// generator into an engine. Non-interactive commands pass welcome=false so
// they do not leave a greeting in the stored history.
func openSession(ctx context.Context, cfg *config.Config, welcome bool) (*session, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	if !welcome {
		engineCfg.WelcomeMessage = ""
	}

	backendCfg, err := cfg.BackendConfig()
	if err != nil {
		return nil, err
	}
	backend, err := store.Open(backendCfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", backendCfg.Driver, err)
	}

	opts := banter.Options{Store: backend}

	if cfg.KnowledgeFile != "" {
		entries, err := banter.LoadKnowledgeFile(cfg.KnowledgeFile, banter.DefaultResponders(time.Now))
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("loading knowledge: %w", err)
		}
		opts.Knowledge = entries
	}

	var generator *remote.OpenAI
	if cfg.Remote.Enabled {
		generator = remote.NewOpenAI(cfg.GeneratorConfig())
		opts.Generator = generator
		slog.Info("remote generator enabled", slog.String("model", cfg.Remote.Model))
	}

	engine, err := banter.Open(ctx, engineCfg, opts)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	if generator != nil {
		generator.UseHistory(engine.History)
	}

	return &session{engine: engine, backend: backend}, nil
}
