// Package judge is the deterministic, non-LLM evaluator of generated appeal
// letters. It segments the letter into sentences, classifies each as a
// factual claim or not, links claims to the three upstream evidence bundles,
// scores them, and emits a scorecard with actionable issues. The whole
// evaluation is a pure in-memory transform; I/O happens only at the load and
// persist boundaries.
package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"advocai/internal/schemas"
)

// ErrNoLetter is returned when the appeal letter text is missing or empty.
// It is the only fatal condition: absent evidence bundles merely degrade
// matching.
var ErrNoLetter = errors.New("judge: no appeal letter text")

// File names within a session output directory.
const (
	AuditorOutputFile    = "auditor_output.json"
	ClinicianOutputFile  = "clinician_output.json"
	RegulatoryOutputFile = "regulatory_output.json"
	BarristerOutputFile  = "barrister_output.txt"
	ScorecardFile        = "judge_scorecard.json"
	ReportFile           = "judge_report.md"
)

// Judge evaluates appeal letters against upstream evidence. Each invocation
// operates on its own inputs and allocates a fresh scorecard, so a single
// Judge value is safe for concurrent use across cases.
type Judge struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Judge with the given scoring scheme.
func New(cfg Config, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{cfg: cfg, logger: logger.Named("judge"), now: time.Now}
}

// Inputs are the materialized upstream artifacts consumed by one evaluation.
// Only Letter is mandatory.
type Inputs struct {
	Letter     string
	Audit      *schemas.StructuredDenial
	Clinical   *schemas.EvidenceList
	Regulatory *schemas.RegulatoryFindings
}

// Result is a full evaluation: the persisted scorecard plus the per-sentence
// working records it was derived from.
type Result struct {
	Scorecard Scorecard  `json:"scorecard"`
	Sentences []Sentence `json:"sentences"`
}

// Evaluate runs the full segment → classify → link → score → aggregate →
// detect-issues chain. It never touches disk or network.
func (j *Judge) Evaluate(in Inputs) (*Result, error) {
	if strings.TrimSpace(in.Letter) == "" {
		return nil, ErrNoLetter
	}

	sentences := j.classify(SplitSentences(in.Letter))
	for i := range sentences {
		if sentences[i].Label != LabelClaim {
			continue
		}
		sentences[i].Matches = j.linkEvidence(sentences[i].Text, in.Audit, in.Clinical, in.Regulatory)
		sentences[i].Score = j.scoreClaim(sentences[i].Matches)
	}

	subs := j.computeSubScores(sentences)
	overall, status := j.overall(subs)

	card := Scorecard{
		OverallScore:       overall,
		Status:             status,
		SubScores:          subs,
		Issues:             j.detectIssues(sentences),
		ConfidenceEstimate: confidenceEstimate,
		Meta: Meta{
			GeneratedAt: j.now().UTC().Format(time.RFC3339),
			Version:     scorecardVersion,
		},
	}
	return &Result{Scorecard: card, Sentences: sentences}, nil
}

// Run loads the upstream agent outputs from sessionDir, evaluates the letter,
// and persists the scorecard and the human-readable report back into the same
// directory. Persistence failures are logged but do not invalidate the
// computed scorecard; the caller always receives it once evaluation succeeds.
func (j *Judge) Run(sessionDir string) (*Scorecard, error) {
	in := j.loadInputs(sessionDir)
	res, err := j.Evaluate(in)
	if err != nil {
		j.logger.Error("evaluation aborted", zap.String("session_dir", sessionDir), zap.Error(err))
		return nil, err
	}

	if err := j.persist(sessionDir, &res.Scorecard); err != nil {
		j.logger.Error("failed to persist scorecard", zap.String("session_dir", sessionDir), zap.Error(err))
	}
	j.logger.Info("evaluation complete",
		zap.Int("overall_score", res.Scorecard.OverallScore),
		zap.String("status", res.Scorecard.Status),
		zap.Int("issues", len(res.Scorecard.Issues)))
	return &res.Scorecard, nil
}

// loadInputs reads the four upstream artifacts. Missing or malformed
// evidence files degrade to nil bundles; only the letter matters later.
func (j *Judge) loadInputs(sessionDir string) Inputs {
	var in Inputs

	var audit schemas.StructuredDenial
	if loadJSONFile(filepath.Join(sessionDir, AuditorOutputFile), &audit, j.logger) {
		in.Audit = &audit
	}
	var clinical schemas.EvidenceList
	if loadJSONFile(filepath.Join(sessionDir, ClinicianOutputFile), &clinical, j.logger) {
		in.Clinical = &clinical
	}
	var regulatory schemas.RegulatoryFindings
	if loadJSONFile(filepath.Join(sessionDir, RegulatoryOutputFile), &regulatory, j.logger) {
		in.Regulatory = &regulatory
	}

	letter, err := os.ReadFile(filepath.Join(sessionDir, BarristerOutputFile))
	if err != nil {
		j.logger.Warn("missing appeal letter", zap.String("session_dir", sessionDir), zap.Error(err))
		return in
	}
	in.Letter = string(letter)
	return in
}

func loadJSONFile(path string, v any, logger *zap.Logger) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("evidence file unavailable", zap.String("path", path), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		logger.Warn("evidence file malformed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

func (j *Judge) persist(sessionDir string, card *Scorecard) error {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	b, err := json.MarshalIndent(card, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal scorecard: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, ScorecardFile), b, 0o644); err != nil {
		return fmt.Errorf("write scorecard: %w", err)
	}

	if err := os.WriteFile(filepath.Join(sessionDir, ReportFile), []byte(RenderReport(card)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
