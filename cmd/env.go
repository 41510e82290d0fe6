package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/pipeline"
	"github.com/gulfshield/claims-engine/internal/rules"
	"github.com/gulfshield/claims-engine/internal/store"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// env bundles the wired pipeline dependencies shared by serve and process.
type env struct {
	Client     ollama.Client
	Rules      map[model.Module]*rules.ModuleConfig
	Processors map[model.Module]*pipeline.Processor
	Store      store.Store
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("failed to close store", zap.Error(err))
		}
	}
}

// initEnv loads every configured rule file and wires a processor per module.
// A module whose rule file fails to load is fatal: better to refuse to start
// than to silently serve one line.
func initEnv(ctx context.Context, withStore bool) (*env, error) {
	paths := map[model.Module]string{
		model.ModuleTP: cfg.Modules.TPRulesPath,
		model.ModuleCO: cfg.Modules.CORulesPath,
	}

	e := &env{
		Client: ollama.NewClient(
			ollama.WithBaseURL(cfg.Oracle.BaseURL),
			ollama.WithModel(cfg.Oracle.DecisionModel),
			ollama.WithTimeout(time.Duration(cfg.Oracle.TimeoutSecs)*time.Second),
		),
		Rules:      make(map[model.Module]*rules.ModuleConfig),
		Processors: make(map[model.Module]*pipeline.Processor),
	}

	if withStore {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		e.Store = st
	}

	for mod, path := range paths {
		if path == "" {
			zap.L().Warn("module has no rule file configured, skipping",
				zap.String("module", string(mod)))
			continue
		}
		rc, err := rules.Load(mod, path)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Rules[mod] = rc
		e.Processors[mod] = pipeline.NewProcessor(rc, e.Client, cfg, e.Store)
		zap.L().Info("module rules loaded",
			zap.String("module", string(mod)),
			zap.String("path", path),
		)
	}

	if len(e.Processors) == 0 {
		e.Close()
		return nil, eris.New("no module rule files configured")
	}
	return e, nil
}
