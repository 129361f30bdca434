// Package session is the checkpoint/resume layer of the pipeline. It prefers
// Postgres and degrades to a JSON file store when the database is unavailable,
// so a workflow always makes forward progress.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Pipeline stages, in execution order.
const (
	StageAuditor    = "auditor"
	StageClinician  = "clinician"
	StageRegulatory = "regulatory"
	StageBarrister  = "barrister"
	StageJudge      = "judge"
)

// StageOrder is the single source of truth for stage sequencing.
var StageOrder = []string{StageAuditor, StageClinician, StageRegulatory, StageBarrister, StageJudge}

// ErrNotFound is returned when a session or checkpoint does not exist.
var ErrNotFound = errors.New("session: not found")

// Checkpoint is one persisted stage output.
type Checkpoint struct {
	Stage      string          `json:"stage"`
	Timestamp  time.Time       `json:"timestamp"`
	OutputJSON json.RawMessage `json:"output_json"`
	RawText    string          `json:"raw_text,omitempty"`
}

// ResumeState says whether and from where a session may resume.
type ResumeState struct {
	IsResumable   bool
	LastSafeStage string
}

// Store is the persistence contract shared by the Postgres repository and the
// JSON file store.
type Store interface {
	CreateSession(ctx context.Context, sessionID string, metadata map[string]any) error
	SaveCheckpoint(ctx context.Context, sessionID, stage string, output any, rawText string) error
	LoadCheckpoint(ctx context.Context, sessionID, stage string) (*Checkpoint, error)
	StageCompleted(ctx context.Context, sessionID, stage string) (bool, error)
	LastCompletedStage(ctx context.Context, sessionID string) (string, error)
	LogError(ctx context.Context, sessionID, stage, message, errorType string) error
	SetResumeFlag(ctx context.Context, sessionID string, resumable bool, lastSafeStage string) error
	ResumeState(ctx context.Context, sessionID string) (*ResumeState, error)
}

// stageIndex returns the position of a stage in StageOrder, or -1.
func stageIndex(stage string) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}
