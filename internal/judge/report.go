package judge

import (
	"fmt"
	"strings"
)

// RenderReport formats a scorecard as the human-readable markdown companion
// of the JSON record.
func RenderReport(card *Scorecard) string {
	var b strings.Builder

	b.WriteString("# Judge Agent Report\n\n")
	fmt.Fprintf(&b, "**Status:** %s\n", card.Status)
	fmt.Fprintf(&b, "**Overall Score:** %d\n\n", card.OverallScore)

	b.WriteString("## Sub Scores\n")
	fmt.Fprintf(&b, "- **Factual Accuracy:** %d\n", card.SubScores.FactualAccuracy)
	fmt.Fprintf(&b, "- **Citation Consistency:** %d\n", card.SubScores.CitationConsistency)
	fmt.Fprintf(&b, "- **Logical Adequacy:** %d\n", card.SubScores.LogicalAdequacy)
	fmt.Fprintf(&b, "- **Tone Professionalism:** %d\n", card.SubScores.ToneProfessionalism)
	fmt.Fprintf(&b, "- **Hallucination Risk:** %d\n", card.SubScores.HallucinationRisk)

	b.WriteString("\n## Issues\n")
	if len(card.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	for _, issue := range card.Issues {
		fmt.Fprintf(&b, "\n### %s — %s\n", issue.ID, strings.ToUpper(issue.Severity))
		fmt.Fprintf(&b, "**Sentence Index:** %d\n", issue.LocationInLetter.SentenceIndex)
		fmt.Fprintf(&b, "**Description:** %s\n", issue.Description)
		if len(issue.EvidenceRefs) > 0 {
			fmt.Fprintf(&b, "**Evidence Refs:** %s\n", strings.Join(issue.EvidenceRefs, ", "))
		}
	}
	return b.String()
}
