// Package worker runs the appeal pipeline: the four agent stages followed by
// the judge, with a checkpoint saved after each stage so interrupted runs
// resume instead of restarting. Jobs arrive over an asynq queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"advocai/internal/agents"
	"advocai/internal/docreader"
	"advocai/internal/judge"
	"advocai/internal/schemas"
	"advocai/internal/session"
	"advocai/internal/storage"
)

// ArtifactStore is the slice of storage.Client the pipeline uses to mirror
// final artifacts to the bucket.
type ArtifactStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) (string, error)
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

// ArtifactRefsFile lists the object-store refs of mirrored artifacts,
// written next to them in the session directory.
const ArtifactRefsFile = "artifacts.json"

// Pipeline wires the stages together.
type Pipeline struct {
	Auditor    *agents.Auditor
	Clinician  *agents.Clinician
	Regulatory *agents.Regulatory
	Barrister  *agents.Barrister
	Judge      *judge.Judge

	Sessions    *session.Manager
	SessionsDir string
	Store       ArtifactStore // optional; artifacts are mirrored when set

	logger *zap.Logger
}

// NewPipeline assembles a runner. A nil logger is replaced with a no-op one.
func NewPipeline(auditor *agents.Auditor, clinician *agents.Clinician, regulatory *agents.Regulatory,
	barrister *agents.Barrister, j *judge.Judge, sessions *session.Manager, sessionsDir string,
	store ArtifactStore, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Auditor:     auditor,
		Clinician:   clinician,
		Regulatory:  regulatory,
		Barrister:   barrister,
		Judge:       j,
		Sessions:    sessions,
		SessionsDir: sessionsDir,
		Store:       store,
		logger:      logger.Named("pipeline"),
	}
}

// Run executes every stage for a session, skipping stages that already have a
// checkpoint. denialPath and policyPath point at the uploaded case documents.
func (p *Pipeline) Run(ctx context.Context, sessionID, denialPath, policyPath string) (*judge.Scorecard, error) {
	sessionDir := filepath.Join(p.SessionsDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	denial, err := p.runAuditor(ctx, sessionID, sessionDir, denialPath, policyPath)
	if err != nil {
		p.Sessions.MarkFailure(ctx, sessionID, session.StageAuditor, err)
		return nil, err
	}

	evidence, err := p.runClinician(ctx, sessionID, sessionDir, denial)
	if err != nil {
		p.Sessions.MarkFailure(ctx, sessionID, session.StageClinician, err)
		return nil, err
	}

	if err := p.runRegulatory(ctx, sessionID, sessionDir, denial); err != nil {
		p.Sessions.MarkFailure(ctx, sessionID, session.StageRegulatory, err)
		return nil, err
	}

	if err := p.runBarrister(ctx, sessionID, sessionDir, denial, evidence); err != nil {
		p.Sessions.MarkFailure(ctx, sessionID, session.StageBarrister, err)
		return nil, err
	}

	card, err := p.runJudge(ctx, sessionID, sessionDir)
	if err != nil {
		p.Sessions.MarkFailure(ctx, sessionID, session.StageJudge, err)
		return nil, err
	}

	p.logger.Info("pipeline complete",
		zap.String("session_id", sessionID),
		zap.Int("overall_score", card.OverallScore),
		zap.String("status", card.Status))
	return card, nil
}

func (p *Pipeline) runAuditor(ctx context.Context, sessionID, sessionDir, denialPath, policyPath string) (*schemas.StructuredDenial, error) {
	if p.Sessions.ShouldSkipStage(ctx, sessionID, session.StageAuditor) {
		p.logger.Info("skipping completed stage",
			zap.String("session_id", sessionID), zap.String("stage", session.StageAuditor))
		return loadCheckpoint[schemas.StructuredDenial](ctx, p.Sessions, sessionID, session.StageAuditor)
	}

	denialDoc, err := docreader.Extract(denialPath)
	if err != nil {
		return nil, fmt.Errorf("read denial letter: %w", err)
	}
	policyText := ""
	if policyPath != "" {
		policyDoc, err := docreader.Extract(policyPath)
		if err != nil {
			return nil, fmt.Errorf("read policy document: %w", err)
		}
		policyText = policyDoc.Text
	}

	denial, err := p.Auditor.Run(ctx, denialDoc.Text, policyText)
	if err != nil {
		return nil, err
	}
	if err := p.saveStage(ctx, sessionID, sessionDir, session.StageAuditor, judge.AuditorOutputFile, denial, ""); err != nil {
		return nil, err
	}
	return denial, nil
}

func (p *Pipeline) runClinician(ctx context.Context, sessionID, sessionDir string, denial *schemas.StructuredDenial) (*schemas.EvidenceList, error) {
	if p.Sessions.ShouldSkipStage(ctx, sessionID, session.StageClinician) {
		p.logger.Info("skipping completed stage",
			zap.String("session_id", sessionID), zap.String("stage", session.StageClinician))
		return loadCheckpoint[schemas.EvidenceList](ctx, p.Sessions, sessionID, session.StageClinician)
	}

	evidence, err := p.Clinician.Run(ctx, denial)
	if err != nil {
		return nil, err
	}
	if err := p.saveStage(ctx, sessionID, sessionDir, session.StageClinician, judge.ClinicianOutputFile, evidence, ""); err != nil {
		return nil, err
	}
	return evidence, nil
}

func (p *Pipeline) runRegulatory(ctx context.Context, sessionID, sessionDir string, denial *schemas.StructuredDenial) error {
	if p.Sessions.ShouldSkipStage(ctx, sessionID, session.StageRegulatory) {
		p.logger.Info("skipping completed stage",
			zap.String("session_id", sessionID), zap.String("stage", session.StageRegulatory))
		return nil
	}

	findings := p.Regulatory.Run(ctx, denial)
	return p.saveStage(ctx, sessionID, sessionDir, session.StageRegulatory, judge.RegulatoryOutputFile, findings, "")
}

func (p *Pipeline) runBarrister(ctx context.Context, sessionID, sessionDir string, denial *schemas.StructuredDenial, evidence *schemas.EvidenceList) error {
	letterPath := filepath.Join(sessionDir, judge.BarristerOutputFile)
	if p.Sessions.ShouldSkipStage(ctx, sessionID, session.StageBarrister) {
		p.logger.Info("skipping completed stage",
			zap.String("session_id", sessionID), zap.String("stage", session.StageBarrister))
		if _, err := os.Stat(letterPath); err == nil {
			return nil
		}
		// Checkpoint exists but the letter file is gone; rematerialize it.
		cp, err := p.Sessions.LoadCheckpoint(ctx, sessionID, session.StageBarrister)
		if err != nil {
			return err
		}
		return os.WriteFile(letterPath, []byte(cp.RawText), 0o644)
	}

	letter, err := p.Barrister.Run(ctx, denial, evidence)
	if err != nil {
		return err
	}
	if err := os.WriteFile(letterPath, []byte(letter), 0o644); err != nil {
		return fmt.Errorf("write appeal letter: %w", err)
	}
	return p.Sessions.SaveCheckpoint(ctx, sessionID, session.StageBarrister, nil, letter)
}

func (p *Pipeline) runJudge(ctx context.Context, sessionID, sessionDir string) (*judge.Scorecard, error) {
	card, err := p.Judge.Run(sessionDir)
	if err != nil {
		return nil, err
	}
	if err := p.Sessions.SaveCheckpoint(ctx, sessionID, session.StageJudge, card, ""); err != nil {
		return nil, err
	}
	p.mirrorArtifacts(ctx, sessionID, sessionDir, card)
	return card, nil
}

// mirrorArtifacts copies the final outputs to the object store under
// cases/<id>/artifacts/ and records the refs in the session directory.
// Mirror failures are logged, never fatal; the local files stay
// authoritative.
func (p *Pipeline) mirrorArtifacts(ctx context.Context, sessionID, sessionDir string, card *judge.Scorecard) {
	if p.Store == nil {
		return
	}

	refs := map[string]string{}
	if ref, err := p.Store.PutJSON(ctx, storage.ArtifactKey(sessionID, judge.ScorecardFile), card); err != nil {
		p.logger.Warn("scorecard mirror failed",
			zap.String("session_id", sessionID), zap.Error(err))
	} else {
		refs[judge.ScorecardFile] = ref
	}

	for name, contentType := range map[string]string{
		judge.BarristerOutputFile: "text/plain; charset=utf-8",
		judge.ReportFile:          "text/markdown; charset=utf-8",
	} {
		b, err := os.ReadFile(filepath.Join(sessionDir, name))
		if err != nil {
			continue
		}
		ref, err := p.Store.PutObject(ctx, storage.ArtifactKey(sessionID, name), b, contentType)
		if err != nil {
			p.logger.Warn("artifact mirror failed",
				zap.String("session_id", sessionID), zap.String("artifact", name), zap.Error(err))
			continue
		}
		refs[name] = ref
	}

	if len(refs) == 0 {
		return
	}
	b, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(sessionDir, ArtifactRefsFile), b, 0o644); err != nil {
		p.logger.Warn("artifact refs write failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// saveStage records both the resume checkpoint and the artifact file the judge
// reads from the session directory.
func (p *Pipeline) saveStage(ctx context.Context, sessionID, sessionDir, stage, filename string, output any, rawText string) error {
	if err := p.Sessions.SaveCheckpoint(ctx, sessionID, stage, output, rawText); err != nil {
		return err
	}
	b, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s output: %w", stage, err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, filename), b, 0o644); err != nil {
		return fmt.Errorf("write %s output: %w", stage, err)
	}
	return nil
}

func loadCheckpoint[T any](ctx context.Context, sessions *session.Manager, sessionID, stage string) (*T, error) {
	cp, err := sessions.LoadCheckpoint(ctx, sessionID, stage)
	if err != nil {
		return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
	}
	var v T
	if err := json.Unmarshal(cp.OutputJSON, &v); err != nil {
		return nil, fmt.Errorf("decode %s checkpoint: %w", stage, err)
	}
	return &v, nil
}
