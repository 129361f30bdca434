package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"advocai/internal/config"
	"advocai/internal/logging"
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

	sessions := worker.BuildSessions(cfg, logger)
	pipeline, err := worker.BuildPipeline(context.Background(), cfg, sessions, logger)
	if err != nil {
		logger.Fatal("pipeline wiring failed", zap.Error(err))
	}

	logger.Info("worker starting", zap.String("redis", cfg.RedisAddr))
	if err := worker.Run(cfg.RedisAddr, pipeline, logger); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}
