package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"advocai/internal/config"
	"advocai/internal/httpapi"
	"advocai/internal/logging"
	"advocai/internal/migrations"
	"advocai/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL != "" {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	sessions := worker.BuildSessions(cfg, logger)

	var store httpapi.ObjectStore
	if s := worker.BuildStorage(context.Background(), cfg, logger); s != nil {
		store = s
	}

	asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asq.Close()

	srv := httpapi.NewServer(sessions, store, asq, cfg.SessionsDir, cfg.APIToken, ":"+cfg.Port, nil, logger)
	logger.Info("api listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
