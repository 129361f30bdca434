package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"advocai/internal/llm"
	"advocai/internal/schemas"
)

const barristerSystem = "You are the Barrister Agent, an expert legal counsel specializing in health insurance appeals. " +
	"Your task is to draft a formal, professional, and highly persuasive appeal letter. " +
	"Use the supplied policy, denial, and clinical evidence to construct a factual argument " +
	"demonstrating that the denied procedure meets all requirements for medical necessity. " +
	"The tone must be firm, respectful, and authoritative. Do not use placeholders or brackets " +
	"except in the address section."

// barristerTemperature leaves the drafting model some stylistic freedom.
const barristerTemperature = 0.7

// Barrister drafts the appeal letter from everything the earlier stages found.
type Barrister struct {
	client llm.Client
	logger *zap.Logger
}

// NewBarrister builds the stage.
func NewBarrister(client llm.Client, logger *zap.Logger) *Barrister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Barrister{client: client, logger: logger.Named("barrister")}
}

// Run drafts the formal appeal letter and returns it as plain text.
func (b *Barrister) Run(ctx context.Context, denial *schemas.StructuredDenial, evidence *schemas.EvidenceList) (string, error) {
	if denial == nil {
		return "", fmt.Errorf("structured denial is required")
	}

	prompt := fmt.Sprintf(`Draft a Formal Appeal Letter based on the following structured data:

--- 1. INSURER DENIAL DETAILS ---
Denial Code: %s
Insurer's Reason: %q
Policy Clause Cited: %q
Procedure Denied: %s

--- 2. CLINICAL EVIDENCE FOR APPEAL (MUST BE CITED) ---
%s

Format the output clearly with:
1. A formal address section (use placeholders like [Insurer Address]).
2. A clear subject line referencing the patient ID and date of service.
3. The Clinical Argument section, which integrates the evidence above.
4. A final, definitive request to overturn the denial.`,
		denial.DenialCode, denial.InsurerReasonSnippet, denial.PolicyClauseText,
		denial.ProcedureDenied, formatEvidence(evidence))

	resp, err := b.client.GenerateResponse(ctx, prompt, barristerSystem, barristerTemperature)
	if err != nil {
		return "", fmt.Errorf("barrister completion: %w", err)
	}

	letter := strings.TrimSpace(resp.Content)
	if letter == "" {
		return "", fmt.Errorf("barrister produced an empty letter")
	}

	b.logger.Info("appeal letter drafted", zap.Int("length", len(letter)))
	return letter, nil
}

func formatEvidence(evidence *schemas.EvidenceList) string {
	if evidence == nil || len(evidence.Root) == 0 {
		return "(no clinical evidence located)"
	}
	lines := make([]string, 0, len(evidence.Root))
	for _, e := range evidence.Root {
		lines = append(lines, fmt.Sprintf("- **%s:** %s (PMID: %s)", e.ArticleTitle, e.SummaryOfFinding, e.PubmedID))
	}
	return strings.Join(lines, "\n")
}
