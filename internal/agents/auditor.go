// Package agents implements the pipeline stages that call a language model:
// Auditor, Clinician, Regulatory, and Barrister. Each stage takes structured
// input, prompts the model, and validates the output into the shared schemas.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"advocai/internal/llm"
	"advocai/internal/schemas"
)

const auditorSystem = "You are the Auditor Agent, specialized in parsing complex health insurance documents. " +
	"Your task is to analyze the provided denial letter and policy text and extract the " +
	"required information into a strict JSON format matching this schema: " +
	`{"denial_code": "<primary Claim Adjustment Reason Code, e.g. CO-50, PR-27>", ` +
	`"insurer_reason_snippet": "<the exact quote from the denial letter explaining the denial>", ` +
	`"policy_clause_text": "<the specific policy text used to justify the denial>", ` +
	`"procedure_denied": "<the procedure denied, e.g. 'MRI of the lumbar spine'>", ` +
	`"confidence_score": <0.0 to 1.0>}. Return ONLY the JSON object.`

// minChunkLen filters trivial excerpts out of the evidence chunks.
const minChunkLen = 30

// maxChunks caps the evidence chunks carried into downstream matching.
const maxChunks = 40

// Auditor extracts the structured denial from the raw case documents.
type Auditor struct {
	client llm.Client
	logger *zap.Logger
}

// NewAuditor builds the stage. A nil logger is replaced with a no-op one.
func NewAuditor(client llm.Client, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{client: client, logger: logger.Named("auditor")}
}

// Run analyzes the denial letter and policy text and returns the structured
// denial, including raw evidence chunks cut from the source documents.
func (a *Auditor) Run(ctx context.Context, denialText, policyText string) (*schemas.StructuredDenial, error) {
	if strings.TrimSpace(denialText) == "" {
		return nil, fmt.Errorf("denial letter text is empty")
	}

	prompt := fmt.Sprintf(
		"Extract the denial details from the following context:\n\n--- DENIAL LETTER TEXT ---\n%s\n\n--- POLICY DOCUMENT TEXT ---\n%s",
		denialText, policyText)

	resp, err := a.client.GenerateResponse(ctx, prompt, auditorSystem, 0)
	if err != nil {
		return nil, fmt.Errorf("auditor completion: %w", err)
	}

	denial, err := llm.ParseJSONResponse[schemas.StructuredDenial](resp.Content)
	if err != nil {
		return nil, fmt.Errorf("auditor output: %w", err)
	}

	denial.RawEvidenceChunks = evidenceChunks(denialText, policyText)
	a.logger.Info("structured denial extracted",
		zap.String("denial_code", denial.DenialCode),
		zap.Float64("confidence", denial.ConfidenceScore),
		zap.Int("chunks", len(denial.RawEvidenceChunks)))
	return &denial, nil
}

// evidenceChunks cuts the source documents into verbatim excerpts for the
// evidence-linking pass. Paragraphs shorter than minChunkLen are dropped.
func evidenceChunks(texts ...string) []string {
	var chunks []string
	for _, text := range texts {
		for _, para := range strings.Split(text, "\n") {
			para = strings.TrimSpace(para)
			if len(para) <= minChunkLen {
				continue
			}
			chunks = append(chunks, para)
			if len(chunks) == maxChunks {
				return chunks
			}
		}
	}
	return chunks
}
