package judge

import "math"

// scoreClaim converts match presence into a claim score: the sum of the
// weights of the sources that matched at least once. With the reference
// weights the possible values are {0, 20, 40, 60, 80, 100}.
func (j *Judge) scoreClaim(m MatchSet) int {
	score := 0
	if len(m.Auditor) > 0 {
		score += j.cfg.AuditorWeight
	}
	if len(m.Clinician) > 0 {
		score += j.cfg.ClinicianWeight
	}
	if len(m.Regulatory) > 0 {
		score += j.cfg.RegulatoryWeight
	}
	return score
}

// computeSubScores rolls per-claim scores into the five sub-scores. A letter
// with no detectable claims cannot be faulted for unsupported ones, so it
// gets the provisional-approval default rather than a zero.
func (j *Judge) computeSubScores(sentences []Sentence) SubScores {
	var claims []Sentence
	for _, s := range sentences {
		if s.Label == LabelClaim {
			claims = append(claims, s)
		}
	}
	if len(claims) == 0 {
		return SubScores{
			FactualAccuracy:     noClaimsFactual,
			CitationConsistency: noClaimsFactual,
			LogicalAdequacy:     noClaimsFactual,
			ToneProfessionalism: toneScore,
			HallucinationRisk:   0,
		}
	}

	supported := 0
	hallucinated := 0
	for _, c := range claims {
		if c.Score >= j.cfg.SupportedMin {
			supported++
		}
		if c.Score == 0 {
			hallucinated++
		}
	}

	factual := roundPct(supported, len(claims))
	return SubScores{
		FactualAccuracy:     factual,
		CitationConsistency: factual,
		LogicalAdequacy:     factual,
		ToneProfessionalism: toneScore,
		HallucinationRisk:   roundPct(hallucinated, len(claims)),
	}
}

// overall derives the overall score and verdict. Hallucination risk counts
// against the four positive dimensions; the result is clamped to [0,100].
func (j *Judge) overall(s SubScores) (int, string) {
	raw := float64(s.FactualAccuracy+s.CitationConsistency+s.LogicalAdequacy+s.ToneProfessionalism-s.HallucinationRisk) / 5.0
	score := clamp(int(math.Round(raw)), 0, 100)

	status := "needs_revision"
	if score >= j.cfg.ApproveThreshold {
		status = "approve"
	}
	return score, status
}

func roundPct(n, total int) int {
	return int(math.Round(100 * float64(n) / float64(total)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
