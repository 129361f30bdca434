package judge

import (
	"strings"

	"advocai/internal/schemas"
)

// linkEvidence computes the per-source matches for one claim sentence. Each
// source is linked independently; any bundle may be nil and simply produces
// no matches. A malformed individual item (no usable fields) is skipped, not
// an error.
func (j *Judge) linkEvidence(
	sentence string,
	audit *schemas.StructuredDenial,
	clinical *schemas.EvidenceList,
	regulatory *schemas.RegulatoryFindings,
) MatchSet {
	s := strings.ToLower(sentence)
	m := emptyMatchSet()

	if audit != nil {
		for _, chunk := range audit.RawEvidenceChunks {
			if chunk == "" {
				continue
			}
			if similarityRatio(s, strings.ToLower(chunk)) > j.cfg.AuditorThreshold {
				m.Auditor = append(m.Auditor, truncateLabel(chunk, j.cfg.ChunkLabelWidth))
			}
		}
		if dc := strings.ToLower(strings.TrimSpace(audit.DenialCode)); dc != "" && strings.Contains(s, dc) {
			m.Auditor = append(m.Auditor, "DenialCode:"+dc)
		}
		if snippet := strings.ToLower(audit.InsurerReasonSnippet); snippet != "" {
			core := strings.Fields(snippet)
			if len(core) > 4 {
				core = core[:4]
			}
			for _, w := range core {
				if strings.Contains(s, w) {
					m.Auditor = append(m.Auditor, "InsurerReasonSnippet")
					break
				}
			}
		}
	}

	if clinical != nil {
		for _, entry := range clinical.Root {
			pmid := strings.ToLower(strings.TrimSpace(entry.PubmedID))
			combined := strings.ToLower(strings.Join([]string{
				entry.ArticleTitle, entry.SummaryOfFinding, entry.PubmedID,
			}, " "))
			if strings.TrimSpace(combined) == "" {
				continue
			}

			ratio := similarityRatio(s, combined)
			// A literal PMID in the sentence is an unconditional citation match.
			if pmid != "" && strings.Contains(s, pmid) {
				ratio = 1.0
			}
			if ratio > j.cfg.ClinicianThreshold {
				label := pmid
				if label == "" {
					label = "unknown"
				}
				m.Clinician = append(m.Clinician, "PMID:"+label)
			}
		}
	}

	if regulatory != nil {
		for _, lp := range regulatory.LegalPoints {
			statute := strings.ToLower(strings.TrimSpace(lp.Statute))
			summary := strings.ToLower(strings.TrimSpace(lp.Summary))
			if statute == "" && summary == "" {
				continue
			}
			if statute != "" && strings.Contains(s, statute) {
				m.Regulatory = append(m.Regulatory, statute)
				continue
			}
			if summary != "" && similarityRatio(s, summary) > j.cfg.RegulatoryThreshold {
				label := statute
				if label == "" {
					label = "reg_point"
				}
				m.Regulatory = append(m.Regulatory, label)
			}
		}
	}

	return m
}

func truncateLabel(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width])
}
