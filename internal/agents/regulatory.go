package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"advocai/internal/llm"
	"advocai/internal/schemas"
)

const regulatorySystem = "You are an Indian Health Insurance Legal Expert (IRDAI + CPA + Ombudsman Rules). " +
	"Your goal is to analyze an insurance denial for compliance. " +
	"Return STRICT JSON ONLY, no extra text, no markdown, no comments."

const regulatoryFormat = `{
  "compliant": true/false,
  "violation": "<short string>",
  "argument": "<max 150 words legal reasoning>",
  "action": "<reverse denial | manual review | request info>",
  "legal_points": [
    {
      "statute": "<name>",
      "summary": "<2-3 sentence explanation>",
      "relevance_score": <0.0-1.0>
    }
  ]
}`

// unparsableArgLimit bounds how much raw model output is kept in the fallback.
const unparsableArgLimit = 250

// Regulatory checks the denial against the statute knowledge base.
type Regulatory struct {
	client       llm.Client
	statutesPath string
	logger       *zap.Logger
}

// NewRegulatory builds the stage. statutesPath points at the markdown statute
// library; a missing file degrades to an empty statute context.
func NewRegulatory(client llm.Client, statutesPath string, logger *zap.Logger) *Regulatory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Regulatory{client: client, statutesPath: statutesPath, logger: logger.Named("regulatory")}
}

// Run analyzes the structured denial for regulatory violations. It never
// returns an error for model failures; those degrade to the manual-review
// sentinel so the pipeline keeps moving.
func (r *Regulatory) Run(ctx context.Context, denial *schemas.StructuredDenial) *schemas.RegulatoryFindings {
	prompt := r.buildPrompt(denial)

	resp, err := r.client.GenerateResponse(ctx, prompt, regulatorySystem, 0)
	if err != nil {
		r.logger.Error("regulatory completion failed", zap.Error(err))
		return schemas.ManualReviewFallback("model failed to generate analysis")
	}

	findings := parseRegulatory(resp.Content)
	r.logger.Info("regulatory analysis complete",
		zap.Bool("compliant", findings.Compliant),
		zap.Int("legal_points", len(findings.LegalPoints)))
	return findings
}

func (r *Regulatory) buildPrompt(denial *schemas.StructuredDenial) string {
	statutes := r.loadStatutes()

	ctx := map[string]any{}
	if denial != nil {
		ctx = map[string]any{
			"denial_code":            denial.DenialCode,
			"insurer_reason_snippet": denial.InsurerReasonSnippet,
			"policy_clause_text":     denial.PolicyClauseText,
			"procedure_denied":       denial.ProcedureDenied,
			"confidence_score":       denial.ConfidenceScore,
		}
	}
	denialJSON, _ := json.MarshalIndent(ctx, "", "  ")

	return fmt.Sprintf(
		"Analyze this insurance denial for compliance.\n\nStatutes:\n%s\n\nStructured Denial Context:\n%s\n\nRequired JSON format:\n%s",
		statutes, denialJSON, regulatoryFormat)
}

func (r *Regulatory) loadStatutes() string {
	b, err := os.ReadFile(r.statutesPath)
	if err != nil {
		r.logger.Warn("statutes file unavailable", zap.String("path", r.statutesPath), zap.Error(err))
		return ""
	}
	return string(b)
}

// parseRegulatory normalizes a model reply into RegulatoryFindings. Unparsable
// output becomes a manual-review record carrying a slice of the raw text.
func parseRegulatory(raw string) *schemas.RegulatoryFindings {
	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		fb := schemas.ManualReviewFallback(truncate(raw, unparsableArgLimit))
		fb.Violation = "UNPARSABLE_JSON"
		return fb
	}

	var parsed struct {
		Compliant   bool   `json:"compliant"`
		Violation   string `json:"violation"`
		Argument    string `json:"argument"`
		Action      string `json:"action"`
		LegalPoints []struct {
			Statute        string  `json:"statute"`
			Reference      string  `json:"reference"`
			Summary        string  `json:"summary"`
			Explanation    string  `json:"explanation"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"legal_points"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		fb := schemas.ManualReviewFallback(truncate(raw, unparsableArgLimit))
		fb.Violation = "UNPARSABLE_JSON"
		return fb
	}

	findings := &schemas.RegulatoryFindings{
		Compliant:   parsed.Compliant,
		Violation:   parsed.Violation,
		Argument:    parsed.Argument,
		Action:      parsed.Action,
		LegalPoints: []schemas.LegalPoint{},
	}
	for _, lp := range parsed.LegalPoints {
		statute := lp.Statute
		if statute == "" {
			statute = lp.Reference
		}
		summary := lp.Summary
		if summary == "" {
			summary = lp.Explanation
		}
		findings.LegalPoints = append(findings.LegalPoints, schemas.LegalPoint{
			Statute:        statute,
			Summary:        summary,
			RelevanceScore: clampScore(lp.RelevanceScore),
		})
	}
	return findings
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncate cuts s to n runes so a multi-byte character is never split.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
