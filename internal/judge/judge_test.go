package judge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"advocai/internal/schemas"
)

func fixedJudge(t *testing.T) *Judge {
	t.Helper()
	j := New(DefaultConfig(), zap.NewNop())
	j.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return j
}

func TestEvaluateEmptyLetter(t *testing.T) {
	j := fixedJudge(t)
	for _, letter := range []string{"", "   ", "\n\t"} {
		_, err := j.Evaluate(Inputs{Letter: letter})
		assert.ErrorIs(t, err, ErrNoLetter)
	}
}

func TestEvaluateEmptyClaimsDefault(t *testing.T) {
	j := fixedJudge(t)

	// No sentence contains a claim keyword, so the provisional-approval
	// default applies regardless of evidence content.
	res, err := j.Evaluate(Inputs{
		Letter: "Thank you for your time. We look forward to hearing from you.",
		Audit: &schemas.StructuredDenial{
			DenialCode:        "CO-50",
			RawEvidenceChunks: []string{"the requested mri of the lumbar spine was denied"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, SubScores{
		FactualAccuracy:     95,
		CitationConsistency: 95,
		LogicalAdequacy:     95,
		ToneProfessionalism: 90,
		HallucinationRisk:   0,
	}, res.Scorecard.SubScores)
	assert.Empty(t, res.Scorecard.Issues)
	// (95+95+95+90-0)/5 = 75: provisional, still below the approve bound.
	assert.Equal(t, 75, res.Scorecard.OverallScore)
}

func TestEvaluateFullySupportedClaim(t *testing.T) {
	j := fixedJudge(t)

	res, err := j.Evaluate(Inputs{
		Letter: "The denial under code CO-50 contradicts clinical trial PMID 31415926 and the Parity Act regulation.",
		Audit:  &schemas.StructuredDenial{DenialCode: "CO-50"},
		Clinical: &schemas.EvidenceList{Root: []schemas.ClinicalFinding{
			{ArticleTitle: "MRI outcomes", SummaryOfFinding: "improved outcomes", PubmedID: "31415926"},
		}},
		Regulatory: &schemas.RegulatoryFindings{LegalPoints: []schemas.LegalPoint{
			{Statute: "Parity Act", Summary: "coverage must be on par with medical benefits"},
		}},
	})
	require.NoError(t, err)

	require.Len(t, res.Sentences, 1)
	claim := res.Sentences[0]
	assert.Equal(t, LabelClaim, claim.Label)
	assert.Equal(t, 100, claim.Score, "a claim matching all three sources scores 100")
	assert.Empty(t, res.Scorecard.Issues, "a fully supported claim generates no issue")
	assert.Equal(t, 0, res.Scorecard.SubScores.HallucinationRisk)
}

func TestEvaluateUnsupportedClaim(t *testing.T) {
	j := fixedJudge(t)

	letter := "We argue the denial is invalid. This concludes our request."
	res, err := j.Evaluate(Inputs{
		Letter: letter,
		Audit:  &schemas.StructuredDenial{DenialCode: "CO-50", RawEvidenceChunks: []string{}},
	})
	require.NoError(t, err)

	// Spec scenario: sentence 0 is a claim ("argue"), sentence 1 is not; the
	// claim matches nothing, so the letter bottoms out.
	require.Len(t, res.Sentences, 2)
	assert.Equal(t, LabelClaim, res.Sentences[0].Label)
	assert.Equal(t, LabelNonClaim, res.Sentences[1].Label)
	assert.Equal(t, 0, res.Sentences[0].Score)

	assert.Equal(t, SubScores{
		FactualAccuracy:     0,
		CitationConsistency: 0,
		LogicalAdequacy:     0,
		ToneProfessionalism: 90,
		HallucinationRisk:   100,
	}, res.Scorecard.SubScores)
	assert.Equal(t, 0, res.Scorecard.OverallScore, "negative raw score clamps to 0")
	assert.Equal(t, "needs_revision", res.Scorecard.Status)

	require.Len(t, res.Scorecard.Issues, 1)
	issue := res.Scorecard.Issues[0]
	assert.Equal(t, "ISSUE-1", issue.ID)
	assert.Equal(t, "high", issue.Severity)
	assert.Equal(t, 0, issue.LocationInLetter.SentenceIndex)
	assert.Contains(t, issue.Description, "We argue the denial is invalid.")
	assert.Empty(t, issue.EvidenceRefs)
}

func TestEvaluatePartiallySupportedClaim(t *testing.T) {
	j := fixedJudge(t)

	res, err := j.Evaluate(Inputs{
		Letter: "The code CO-50 denial is not compliant.",
		Audit:  &schemas.StructuredDenial{DenialCode: "CO-50"},
	})
	require.NoError(t, err)

	require.Len(t, res.Scorecard.Issues, 1)
	issue := res.Scorecard.Issues[0]
	assert.Equal(t, "medium", issue.Severity)
	assert.Contains(t, issue.Description, "clinical evidence")
	assert.Contains(t, issue.Description, "regulatory evidence")
	assert.Equal(t, []string{"DenialCode:co-50"}, issue.EvidenceRefs)
}

func TestIssueIDsSequentialInLetterOrder(t *testing.T) {
	j := fixedJudge(t)

	res, err := j.Evaluate(Inputs{
		Letter: "The first claim cites no evidence at all. Fine weather today. The policy denial was wrong. The coverage denial was also wrong.",
	})
	require.NoError(t, err)

	require.Len(t, res.Scorecard.Issues, 3)
	lastIndex := -1
	for i, issue := range res.Scorecard.Issues {
		assert.Equal(t, fmt.Sprintf("ISSUE-%d", i+1), issue.ID)
		assert.Greater(t, issue.LocationInLetter.SentenceIndex, lastIndex,
			"issues follow letter order")
		lastIndex = issue.LocationInLetter.SentenceIndex
	}
}

func TestOverallThresholdBoundary(t *testing.T) {
	j := fixedJudge(t)

	score, status := j.overall(SubScores{
		FactualAccuracy:     85,
		CitationConsistency: 85,
		LogicalAdequacy:     85,
		ToneProfessionalism: 85,
		HallucinationRisk:   0,
	})
	assert.Equal(t, 85, score)
	assert.Equal(t, "approve", status, "the approve bound is inclusive")

	score, status = j.overall(SubScores{
		FactualAccuracy:     84,
		CitationConsistency: 84,
		LogicalAdequacy:     84,
		ToneProfessionalism: 84,
		HallucinationRisk:   0,
	})
	assert.Equal(t, 84, score)
	assert.Equal(t, "needs_revision", status)
}

func TestEvaluateDeterministic(t *testing.T) {
	j := fixedJudge(t)
	in := Inputs{
		Letter: "The clinical study PMID 99887766 supports coverage. We argue the denial is invalid. Thank you.",
		Audit:  &schemas.StructuredDenial{DenialCode: "PR-27", InsurerReasonSnippet: "not medically necessary per policy"},
		Clinical: &schemas.EvidenceList{Root: []schemas.ClinicalFinding{
			{ArticleTitle: "Outcomes study", SummaryOfFinding: "better outcomes", PubmedID: "99887766"},
		}},
		Regulatory: &schemas.RegulatoryFindings{LegalPoints: []schemas.LegalPoint{
			{Statute: "Section 45", Summary: "claims cannot be repudiated without grounds"},
		}},
	}

	first, err := j.Evaluate(in)
	require.NoError(t, err)
	second, err := j.Evaluate(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	b1, err := json.Marshal(first.Scorecard)
	require.NoError(t, err)
	b2, err := json.Marshal(second.Scorecard)
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "repeated runs serialize byte-identically")
}

func TestRunLoadsPersistsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	j := fixedJudge(t)

	writeJSON(t, filepath.Join(dir, AuditorOutputFile), schemas.StructuredDenial{
		DenialCode:           "CO-50",
		InsurerReasonSnippet: "procedure deemed experimental",
	})
	writeJSON(t, filepath.Join(dir, ClinicianOutputFile), schemas.EvidenceList{
		Root: []schemas.ClinicalFinding{{ArticleTitle: "Trial", SummaryOfFinding: "works", PubmedID: "123456"}},
	})
	// Regulatory output intentionally absent: non-fatal.
	letter := "The CO-50 denial ignores clinical trial PMID 123456. We request reversal."
	require.NoError(t, os.WriteFile(filepath.Join(dir, BarristerOutputFile), []byte(letter), 0o644))

	card, err := j.Run(dir)
	require.NoError(t, err)
	require.NotNil(t, card)

	// Machine-readable sink.
	raw, err := os.ReadFile(filepath.Join(dir, ScorecardFile))
	require.NoError(t, err)

	var reloaded Scorecard
	require.NoError(t, json.Unmarshal(raw, &reloaded))
	assert.Equal(t, *card, reloaded)

	// Deserialize → re-serialize reproduces byte-identical output.
	again, err := json.MarshalIndent(&reloaded, "", "    ")
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again))

	// Human-readable sink.
	report, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Judge Agent Report")
	assert.Contains(t, string(report), "**Overall Score:**")
}

func TestRunMissingLetterAborts(t *testing.T) {
	dir := t.TempDir()
	j := fixedJudge(t)

	card, err := j.Run(dir)
	assert.ErrorIs(t, err, ErrNoLetter)
	assert.Nil(t, card)

	_, statErr := os.Stat(filepath.Join(dir, ScorecardFile))
	assert.True(t, os.IsNotExist(statErr), "no scorecard is persisted on abort")
}

func TestRunMalformedEvidenceDegrades(t *testing.T) {
	dir := t.TempDir()
	j := fixedJudge(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, AuditorOutputFile), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, BarristerOutputFile),
		[]byte("We argue the denial is invalid."), 0o644))

	card, err := j.Run(dir)
	require.NoError(t, err)
	assert.Equal(t, "needs_revision", card.Status, "malformed evidence degrades to no matches")
}

func TestRenderReportNoIssues(t *testing.T) {
	card := &Scorecard{
		OverallScore: 93,
		Status:       "approve",
		SubScores:    SubScores{95, 95, 95, 90, 0},
	}
	out := RenderReport(card)
	assert.Contains(t, out, "No issues found.")
	assert.Contains(t, out, "**Status:** approve")
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}
