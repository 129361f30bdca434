package session

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager coordinates the primary Postgres store with the JSON file store.
// Writes go to both; reads prefer Postgres and fall through to the files, so
// losing the database never strands a session.
type Manager struct {
	primary  Store // may be nil when running without a database
	fallback Store
	logger   *zap.Logger
}

// NewManager builds a hybrid manager. primary may be nil.
func NewManager(primary Store, fallback Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{primary: primary, fallback: fallback, logger: logger.Named("session")}
}

// StartSession allocates a new session ID and records it in every store.
func (m *Manager) StartSession(ctx context.Context, metadata map[string]any) (string, error) {
	sessionID := uuid.NewString()
	if m.primary != nil {
		if err := m.primary.CreateSession(ctx, sessionID, metadata); err != nil {
			m.logger.Warn("primary create failed, continuing with file store",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if err := m.fallback.CreateSession(ctx, sessionID, metadata); err != nil {
		return "", err
	}
	m.logger.Info("session started", zap.String("session_id", sessionID))
	return sessionID, nil
}

// SaveCheckpoint persists a stage output to both stores. The file store is
// authoritative for success; a primary failure is logged and tolerated.
func (m *Manager) SaveCheckpoint(ctx context.Context, sessionID, stage string, output any, rawText string) error {
	if m.primary != nil {
		if err := m.primary.SaveCheckpoint(ctx, sessionID, stage, output, rawText); err != nil {
			m.logger.Warn("primary checkpoint failed",
				zap.String("session_id", sessionID), zap.String("stage", stage), zap.Error(err))
		}
	}
	if err := m.fallback.SaveCheckpoint(ctx, sessionID, stage, output, rawText); err != nil {
		return err
	}
	m.logger.Info("checkpoint saved", zap.String("session_id", sessionID), zap.String("stage", stage))
	return nil
}

// LoadCheckpoint reads a stage output, preferring the primary store.
func (m *Manager) LoadCheckpoint(ctx context.Context, sessionID, stage string) (*Checkpoint, error) {
	if m.primary != nil {
		cp, err := m.primary.LoadCheckpoint(ctx, sessionID, stage)
		if err == nil {
			return cp, nil
		}
		if err != ErrNotFound {
			m.logger.Warn("primary load failed, trying file store",
				zap.String("session_id", sessionID), zap.String("stage", stage), zap.Error(err))
		}
	}
	return m.fallback.LoadCheckpoint(ctx, sessionID, stage)
}

// ShouldSkipStage reports whether a stage already has a checkpoint in either
// store, which lets a resumed run jump past completed work.
func (m *Manager) ShouldSkipStage(ctx context.Context, sessionID, stage string) bool {
	if m.primary != nil {
		if done, err := m.primary.StageCompleted(ctx, sessionID, stage); err == nil && done {
			return true
		}
	}
	done, err := m.fallback.StageCompleted(ctx, sessionID, stage)
	if err != nil {
		m.logger.Warn("stage check failed",
			zap.String("session_id", sessionID), zap.String("stage", stage), zap.Error(err))
		return false
	}
	return done
}

// ResumeStage returns the stage a resumed run should execute next, or "" when
// the session already ran to completion.
func (m *Manager) ResumeStage(ctx context.Context, sessionID string) (string, error) {
	last, err := m.lastCompleted(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if last == "" {
		return StageOrder[0], nil
	}
	idx := stageIndex(last)
	if idx < 0 || idx == len(StageOrder)-1 {
		return "", nil
	}
	return StageOrder[idx+1], nil
}

// MarkFailure records a stage error and flags the session resumable from the
// last safe stage.
func (m *Manager) MarkFailure(ctx context.Context, sessionID, stage string, cause error) {
	msg := "unknown error"
	errType := ""
	if cause != nil {
		msg = cause.Error()
		errType = "pipeline"
	}
	last, err := m.lastCompleted(ctx, sessionID)
	if err != nil {
		last = ""
	}

	if m.primary != nil {
		if err := m.primary.LogError(ctx, sessionID, stage, msg, errType); err != nil {
			m.logger.Warn("primary error log failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		if err := m.primary.SetResumeFlag(ctx, sessionID, true, last); err != nil {
			m.logger.Warn("primary resume flag failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if err := m.fallback.LogError(ctx, sessionID, stage, msg, errType); err != nil {
		m.logger.Warn("file error log failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	m.logger.Error("stage failed",
		zap.String("session_id", sessionID), zap.String("stage", stage),
		zap.String("last_safe_stage", last), zap.Error(cause))
}

// LastCompleted reports the furthest completed stage, preferring the primary
// store.
func (m *Manager) LastCompleted(ctx context.Context, sessionID string) (string, error) {
	return m.lastCompleted(ctx, sessionID)
}

// State reports resumability for a session, preferring the primary store.
func (m *Manager) State(ctx context.Context, sessionID string) (*ResumeState, error) {
	if m.primary != nil {
		if st, err := m.primary.ResumeState(ctx, sessionID); err == nil {
			return st, nil
		}
	}
	return m.fallback.ResumeState(ctx, sessionID)
}

func (m *Manager) lastCompleted(ctx context.Context, sessionID string) (string, error) {
	if m.primary != nil {
		last, err := m.primary.LastCompletedStage(ctx, sessionID)
		if err == nil {
			return last, nil
		}
		if err != ErrNotFound {
			m.logger.Warn("primary stage lookup failed, trying file store",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return m.fallback.LastCompletedStage(ctx, sessionID)
}
