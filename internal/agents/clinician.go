package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"advocai/internal/llm"
	"advocai/internal/pubmed"
	"advocai/internal/schemas"
)

const clinicianSystem = "You are the Clinician Agent, a specialized medical researcher. " +
	"Synthesize the supplied PubMed abstracts into evidence supporting the denied procedure. " +
	"Return ONLY a JSON object of the form " +
	`{"root": [{"article_title": "<title>", "summary_of_finding": "<2-3 sentence summary supporting the procedure>", "pubmed_id": "<PMID>"}]}. ` +
	"Only include findings genuinely supported by the abstracts; never invent articles or PMIDs."

// Searcher is the literature lookup the Clinician depends on.
type Searcher interface {
	Search(ctx context.Context, query string) []pubmed.Article
}

// Clinician finds and synthesizes clinical evidence for the denied procedure.
type Clinician struct {
	client llm.Client
	search Searcher
	logger *zap.Logger
}

// NewClinician builds the stage.
func NewClinician(client llm.Client, search Searcher, logger *zap.Logger) *Clinician {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clinician{client: client, search: search, logger: logger.Named("clinician")}
}

// Run searches PubMed using the structured denial and synthesizes the results.
// A dry search returns an empty evidence list rather than an error; downstream
// scoring degrades on its own.
func (c *Clinician) Run(ctx context.Context, denial *schemas.StructuredDenial) (*schemas.EvidenceList, error) {
	if denial == nil {
		return &schemas.EvidenceList{Root: []schemas.ClinicalFinding{}}, nil
	}

	query := fmt.Sprintf("medical necessity of %s clinical trial evidence against %s",
		denial.ProcedureDenied, denial.DenialCode)
	c.logger.Info("searching literature", zap.String("query", query))

	articles := c.search.Search(ctx, query)
	if len(articles) == 0 {
		c.logger.Warn("no articles found", zap.String("query", query))
		return &schemas.EvidenceList{Root: []schemas.ClinicalFinding{}}, nil
	}

	abstracts, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal articles: %w", err)
	}

	prompt := fmt.Sprintf(
		"The procedure %q was denied under code %s. Synthesize clinical evidence supporting it from these PubMed results:\n\n%s",
		denial.ProcedureDenied, denial.DenialCode, abstracts)

	resp, err := c.client.GenerateResponse(ctx, prompt, clinicianSystem, 0)
	if err != nil {
		return nil, fmt.Errorf("clinician completion: %w", err)
	}

	evidence, err := parseEvidenceList(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("clinician output: %w", err)
	}

	c.logger.Info("clinical evidence synthesized", zap.Int("findings", len(evidence.Root)))
	return evidence, nil
}

// parseEvidenceList accepts either the wrapped {"root": [...]} form or a bare
// array, since models drift between the two.
func parseEvidenceList(response string) (*schemas.EvidenceList, error) {
	raw, err := llm.ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var findings []schemas.ClinicalFinding
		if err := json.Unmarshal([]byte(raw), &findings); err != nil {
			return nil, fmt.Errorf("unmarshal findings: %w", err)
		}
		return &schemas.EvidenceList{Root: findings}, nil
	}

	var list schemas.EvidenceList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("unmarshal evidence list: %w", err)
	}
	if list.Root == nil {
		list.Root = []schemas.ClinicalFinding{}
	}
	return &list, nil
}
