package judge

import (
	"fmt"
	"sort"
	"strings"
)

const (
	fixUnsupported = "Add supporting clinical or regulatory evidence, or remove the claim."
	fixPartial     = "Strengthen argument by adding missing evidence."
)

// detectIssues walks claim sentences in letter order and emits one issue per
// unsupported or partially-supported claim. IDs are assigned sequentially in
// traversal order, so the issue list mirrors the letter.
func (j *Judge) detectIssues(sentences []Sentence) []Issue {
	issues := []Issue{}
	counter := 1

	for _, c := range sentences {
		if c.Label != LabelClaim {
			continue
		}

		if c.Score == 0 {
			issues = append(issues, Issue{
				ID:               fmt.Sprintf("ISSUE-%d", counter),
				Severity:         "high",
				LocationInLetter: Location{SentenceIndex: c.Index},
				Description:      fmt.Sprintf("Unsupported claim: '%s'", c.Text),
				EvidenceRefs:     []string{},
				SuggestedFix:     fixUnsupported,
			})
			counter++
			continue
		}

		var missing []string
		if len(c.Matches.Clinician) == 0 {
			missing = append(missing, "clinical evidence")
		}
		if len(c.Matches.Regulatory) == 0 {
			missing = append(missing, "regulatory evidence")
		}
		if len(missing) == 0 {
			continue // fully supported
		}

		issues = append(issues, Issue{
			ID:               fmt.Sprintf("ISSUE-%d", counter),
			Severity:         "medium",
			LocationInLetter: Location{SentenceIndex: c.Index},
			Description:      fmt.Sprintf("Partially supported claim. Missing: %s", strings.Join(missing, ", ")),
			EvidenceRefs:     dedupRefs(c.Matches),
			SuggestedFix:     fixPartial,
		})
		counter++
	}

	return issues
}

// dedupRefs unions the matched labels across all sources, deduplicated and
// sorted so repeated runs emit byte-identical scorecards.
func dedupRefs(m MatchSet) []string {
	seen := make(map[string]struct{})
	for _, group := range [][]string{m.Auditor, m.Clinician, m.Regulatory} {
		for _, ref := range group {
			seen[ref] = struct{}{}
		}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
