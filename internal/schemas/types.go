package schemas

// StructuredDenial is the Auditor stage output: the machine-readable core of
// the insurer's denial letter, extracted from the denial and policy documents.
// It is the memory handed to every downstream stage.
type StructuredDenial struct {
	// DenialCode is the primary Claim Adjustment Reason Code (e.g. CO-50, PR-27).
	DenialCode string `json:"denial_code"`
	// InsurerReasonSnippet is the exact quote explaining the denial.
	InsurerReasonSnippet string `json:"insurer_reason_snippet"`
	// PolicyClauseText is the policy text the insurer invokes.
	PolicyClauseText string `json:"policy_clause_text"`
	// ProcedureDenied is a short description of the denied procedure.
	ProcedureDenied string `json:"procedure_denied"`
	// ConfidenceScore is the extraction confidence in [0,1].
	ConfidenceScore float64 `json:"confidence_score"`
	// RawEvidenceChunks are verbatim excerpts (pre-filtered, >30 chars each)
	// from the source documents, kept for downstream evidence linking.
	RawEvidenceChunks []string `json:"raw_evidence_chunks,omitempty"`
}

// ClinicalFinding is one synthesized piece of evidence from a medical abstract.
type ClinicalFinding struct {
	ArticleTitle     string `json:"article_title"`
	SummaryOfFinding string `json:"summary_of_finding"`
	PubmedID         string `json:"pubmed_id"`
}

// EvidenceList is the Clinician stage output.
type EvidenceList struct {
	Root []ClinicalFinding `json:"root"`
}

// LegalPoint is one statute-backed argument from the Regulatory stage.
type LegalPoint struct {
	Statute        string  `json:"statute"`
	Summary        string  `json:"summary"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RegulatoryFindings is the Regulatory stage output. A findings value with
// empty LegalPoints and Action "manual_review_required" is the total-failure
// sentinel; the Judge treats it as empty evidence.
type RegulatoryFindings struct {
	Compliant   bool         `json:"compliant"`
	Violation   string       `json:"violation"`
	Argument    string       `json:"argument"`
	Action      string       `json:"action"`
	LegalPoints []LegalPoint `json:"legal_points"`
}

// ManualReviewFallback is the sentinel returned when no model produced a
// usable regulatory analysis.
func ManualReviewFallback(reason string) *RegulatoryFindings {
	return &RegulatoryFindings{
		Compliant:   false,
		Violation:   "SYSTEM_ERROR",
		Argument:    reason,
		Action:      "manual_review_required",
		LegalPoints: []LegalPoint{},
	}
}

// CreateCaseResponse is returned by POST /cases.
type CreateCaseResponse struct {
	SessionID   string `json:"session_id"`
	CaseID      string `json:"case_id"`
	UploadToken string `json:"upload_token"`
	Status      string `json:"status"`
}

// StatusResponse is returned by GET /cases/{id}/status.
type StatusResponse struct {
	SessionID          string `json:"session_id"`
	LastCompletedStage string `json:"last_completed_stage,omitempty"`
	IsResumable        bool   `json:"is_resumable"`
}

// RunResponse acknowledges an enqueued pipeline run.
type RunResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}
