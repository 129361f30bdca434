package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore is the JSON persistence fallback. Layout:
//
//	<root>/<session_id>/metadata.json
//	<root>/<session_id>/checkpoints/<stage>.json
//	<root>/<session_id>/errors/<timestamp>.json
type FileStore struct {
	root string
	now  func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore roots a store at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, now: time.Now}
}

func (f *FileStore) sessionDir(sessionID string) string {
	return filepath.Join(f.root, sessionID)
}

func (f *FileStore) checkpointPath(sessionID, stage string) string {
	return filepath.Join(f.sessionDir(sessionID), "checkpoints", stage+".json")
}

func (f *FileStore) CreateSession(_ context.Context, sessionID string, metadata map[string]any) error {
	dir := f.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return writeJSONFile(filepath.Join(dir, "metadata.json"), metadata)
}

func (f *FileStore) SaveCheckpoint(_ context.Context, sessionID, stage string, output any, rawText string) error {
	dir := filepath.Join(f.sessionDir(sessionID), "checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoints dir: %w", err)
	}

	out, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if output == nil {
		out = []byte("{}")
	}

	cp := Checkpoint{
		Stage:      stage,
		Timestamp:  f.now().UTC(),
		OutputJSON: out,
		RawText:    rawText,
	}
	return writeJSONFile(f.checkpointPath(sessionID, stage), cp)
}

func (f *FileStore) LoadCheckpoint(_ context.Context, sessionID, stage string) (*Checkpoint, error) {
	b, err := os.ReadFile(f.checkpointPath(sessionID, stage))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (f *FileStore) StageCompleted(_ context.Context, sessionID, stage string) (bool, error) {
	_, err := os.Stat(f.checkpointPath(sessionID, stage))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LastCompletedStage walks StageOrder and reports the furthest stage with an
// existing checkpoint file.
func (f *FileStore) LastCompletedStage(ctx context.Context, sessionID string) (string, error) {
	if _, err := os.Stat(f.sessionDir(sessionID)); os.IsNotExist(err) {
		return "", ErrNotFound
	}
	last := ""
	for _, stage := range StageOrder {
		done, err := f.StageCompleted(ctx, sessionID, stage)
		if err != nil {
			return "", err
		}
		if done {
			last = stage
		}
	}
	return last, nil
}

func (f *FileStore) LogError(_ context.Context, sessionID, stage, message, errorType string) error {
	dir := filepath.Join(f.sessionDir(sessionID), "errors")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create errors dir: %w", err)
	}
	payload := map[string]any{
		"stage":         stage,
		"timestamp":     f.now().UTC().Format(time.RFC3339),
		"error_message": message,
		"error_type":    errorType,
	}
	name := f.now().UTC().Format("2006-01-02T15-04-05.000") + ".json"
	return writeJSONFile(filepath.Join(dir, name), payload)
}

// SetResumeFlag is a no-op for the file store: resumability is derived from
// which checkpoint files exist.
func (f *FileStore) SetResumeFlag(context.Context, string, bool, string) error {
	return nil
}

func (f *FileStore) ResumeState(ctx context.Context, sessionID string) (*ResumeState, error) {
	last, err := f.LastCompletedStage(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ResumeState{IsResumable: last != "", LastSafeStage: last}, nil
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
