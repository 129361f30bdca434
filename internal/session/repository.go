package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"advocai/internal/db"
)

// Repository is the Postgres-backed checkpoint store.
type Repository struct {
	db *sqlx.DB
}

var _ Store = (*Repository)(nil)

// NewRepository wraps an open sqlx handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateSession(ctx context.Context, sessionID string, metadata map[string]any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if metadata == nil {
		meta = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx,
		`insert into sessions(session_id, metadata) values($1, $2)`, sessionID, meta)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repository) SaveCheckpoint(ctx context.Context, sessionID, stage string, output any, rawText string) error {
	out, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if output == nil {
		out = []byte("{}")
	}

	var raw sql.NullString
	if rawText != "" {
		raw = sql.NullString{String: rawText, Valid: true}
	}

	// The checkpoint row and the session's stage marker must move together,
	// or a crash between the two leaves resume pointing at the wrong stage.
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into agent_outputs(session_id, agent_stage, output_json, raw_text)
			values($1, $2, $3, $4)
			on conflict (session_id, agent_stage)
			do update set output_json = excluded.output_json,
			              raw_text    = excluded.raw_text,
			              created_at  = now()`,
			sessionID, stage, out, raw)
		if err != nil {
			return fmt.Errorf("upsert checkpoint: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`update sessions set last_completed_stage = $1 where session_id = $2`, stage, sessionID); err != nil {
			return fmt.Errorf("update session stage: %w", err)
		}
		return nil
	})
}

func (r *Repository) LoadCheckpoint(ctx context.Context, sessionID, stage string) (*Checkpoint, error) {
	var row db.AgentOutput
	err := r.db.GetContext(ctx, &row,
		`select session_id, agent_stage, output_json, raw_text, created_at from agent_outputs
		 where session_id = $1 and agent_stage = $2`, sessionID, stage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}

	return &Checkpoint{
		Stage:      stage,
		Timestamp:  row.CreatedAt,
		OutputJSON: row.OutputJSON,
		RawText:    row.RawText.String,
	}, nil
}

func (r *Repository) StageCompleted(ctx context.Context, sessionID, stage string) (bool, error) {
	var cnt int
	err := r.db.GetContext(ctx, &cnt,
		`select count(1) from agent_outputs where session_id = $1 and agent_stage = $2`,
		sessionID, stage)
	if err != nil {
		return false, fmt.Errorf("count checkpoint: %w", err)
	}
	return cnt > 0, nil
}

func (r *Repository) LastCompletedStage(ctx context.Context, sessionID string) (string, error) {
	var row db.Session
	err := r.db.GetContext(ctx, &row,
		`select session_id, metadata, last_completed_stage, created_at
		 from sessions where session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select session: %w", err)
	}
	return row.LastCompletedStage.String, nil
}

func (r *Repository) LogError(ctx context.Context, sessionID, stage, message, errorType string) error {
	var et sql.NullString
	if errorType != "" {
		et = sql.NullString{String: errorType, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		insert into workflow_errors(session_id, agent_stage, error_message, error_type)
		values($1, $2, $3, $4)`, sessionID, stage, message, et)
	if err != nil {
		return fmt.Errorf("insert workflow error: %w", err)
	}
	return nil
}

func (r *Repository) SetResumeFlag(ctx context.Context, sessionID string, resumable bool, lastSafeStage string) error {
	var last sql.NullString
	if lastSafeStage != "" {
		last = sql.NullString{String: lastSafeStage, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		insert into resume_flags(session_id, is_resumable, last_safe_stage)
		values($1, $2, $3)
		on conflict (session_id)
		do update set is_resumable    = excluded.is_resumable,
		              last_safe_stage = excluded.last_safe_stage,
		              updated_at      = now()`,
		sessionID, resumable, last)
	if err != nil {
		return fmt.Errorf("upsert resume flag: %w", err)
	}
	return nil
}

func (r *Repository) ResumeState(ctx context.Context, sessionID string) (*ResumeState, error) {
	var row db.ResumeFlag
	err := r.db.GetContext(ctx, &row,
		`select session_id, is_resumable, last_safe_stage, updated_at from resume_flags where session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select resume flag: %w", err)
	}
	return &ResumeState{IsResumable: row.IsResumable, LastSafeStage: row.LastSafeStage.String}, nil
}
