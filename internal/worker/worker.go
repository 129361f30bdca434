package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeRunPipeline is the asynq task type for a full pipeline run.
const TypeRunPipeline = "pipeline:run"

// RunPayload is the task payload for TypeRunPipeline.
type RunPayload struct {
	SessionID  string `json:"session_id"`
	DenialPath string `json:"denial_path"`
	PolicyPath string `json:"policy_path,omitempty"`
}

// NewRunTask builds the asynq task for a session.
func NewRunTask(payload RunPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal run payload: %w", err)
	}
	return asynq.NewTask(TypeRunPipeline, b), nil
}

// Server consumes pipeline tasks from Redis.
type Server struct {
	pipeline *Pipeline
	logger   *zap.Logger
}

func NewServer(pipeline *Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: pipeline, logger: logger.Named("worker")}
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRunPipeline, s.handleRun)
	return mux
}

func (s *Server) handleRun(ctx context.Context, t *asynq.Task) error {
	var payload RunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode run payload: %w", err)
	}
	s.logger.Info("pipeline task received", zap.String("session_id", payload.SessionID))

	if _, err := s.pipeline.Run(ctx, payload.SessionID, payload.DenialPath, payload.PolicyPath); err != nil {
		// The failure is checkpointed and resumable; retrying from scratch
		// would redo completed stages, so the task is acknowledged.
		s.logger.Error("pipeline task failed",
			zap.String("session_id", payload.SessionID), zap.Error(err))
		return nil
	}
	return nil
}

// Run blocks serving tasks until the process exits.
func Run(redisAddr string, pipeline *Pipeline, logger *zap.Logger) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: 5})
	return srv.Run(NewServer(pipeline, logger).mux())
}
