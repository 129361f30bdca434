package worker

import (
	"context"

	"go.uber.org/zap"

	"advocai/internal/agents"
	"advocai/internal/config"
	"advocai/internal/db"
	"advocai/internal/judge"
	"advocai/internal/llm"
	"advocai/internal/pubmed"
	"advocai/internal/session"
	"advocai/internal/storage"
)

// BuildSessions wires the hybrid session manager. A missing or unreachable
// database degrades to the JSON file store with a warning.
func BuildSessions(cfg *config.Config, logger *zap.Logger) *session.Manager {
	var primary session.Store
	if cfg.DatabaseURL != "" {
		dbx, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, using file store only", zap.Error(err))
		} else {
			primary = session.NewRepository(dbx)
		}
	}
	return session.NewManager(primary, session.NewFileStore(cfg.SessionsDir), logger)
}

// BuildStorage returns the object-store client, or nil when no credentials
// are configured or the endpoint rejects them.
func BuildStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) *storage.Client {
	if cfg.Storage.AccessKey == "" {
		return nil
	}
	c, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Warn("object storage unavailable", zap.Error(err))
		return nil
	}
	return c
}

// BuildPipeline wires the agent stages and the judge from configuration. The
// barrister gets the fast model; the extraction and analysis stages get the
// main one.
func BuildPipeline(ctx context.Context, cfg *config.Config, sessions *session.Manager, logger *zap.Logger) (*Pipeline, error) {
	client, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	fastCfg := cfg.LLM
	if cfg.LLM.FastModel != "" {
		fastCfg.Model = cfg.LLM.FastModel
	}
	fastClient, err := llm.NewClient(fastCfg, logger)
	if err != nil {
		return nil, err
	}

	search := pubmed.New(cfg.PubMed, logger)

	var artifacts ArtifactStore
	if s := BuildStorage(ctx, cfg, logger); s != nil {
		artifacts = s
	}

	return NewPipeline(
		agents.NewAuditor(client, logger),
		agents.NewClinician(client, search, logger),
		agents.NewRegulatory(client, cfg.StatutesPath, logger),
		agents.NewBarrister(fastClient, logger),
		judge.New(cfg.Judge, logger),
		sessions, cfg.SessionsDir, artifacts, logger), nil
}
