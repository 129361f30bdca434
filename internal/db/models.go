package db

import (
	"database/sql"
	"time"
)

// Session is one workflow run over a single case.
type Session struct {
	SessionID          string         `db:"session_id"`
	Metadata           []byte         `db:"metadata"`
	LastCompletedStage sql.NullString `db:"last_completed_stage"`
	CreatedAt          time.Time      `db:"created_at"`
}

// AgentOutput is a stage checkpoint: the structured output plus any raw text
// the stage produced. One row per (session, stage), upserted on re-run.
type AgentOutput struct {
	SessionID  string         `db:"session_id"`
	AgentStage string         `db:"agent_stage"`
	OutputJSON []byte         `db:"output_json"`
	RawText    sql.NullString `db:"raw_text"`
	CreatedAt  time.Time      `db:"created_at"`
}

// ResumeFlag marks whether a session can be resumed and from where.
type ResumeFlag struct {
	SessionID     string         `db:"session_id"`
	IsResumable   bool           `db:"is_resumable"`
	LastSafeStage sql.NullString `db:"last_safe_stage"`
	UpdatedAt     time.Time      `db:"updated_at"`
}
