package judge

// Label classifies a sentence of the appeal letter.
type Label string

const (
	LabelClaim    Label = "CLAIM"
	LabelNonClaim Label = "NON_CLAIM"
)

// MatchSet maps each evidence source to the labels of the items a sentence
// matched. Empty slice = no match from that source. Duplicates are allowed
// here; deduplication happens only for issue evidence refs.
type MatchSet struct {
	Auditor    []string `json:"auditor"`
	Clinician  []string `json:"clinician"`
	Regulatory []string `json:"regulatory"`
}

func emptyMatchSet() MatchSet {
	return MatchSet{Auditor: []string{}, Clinician: []string{}, Regulatory: []string{}}
}

// Sentence is one classified sentence with its derived evidence matches and
// claim score. Index is the 0-based position in the original letter.
type Sentence struct {
	Index   int      `json:"sentence_index"`
	Text    string   `json:"sentence"`
	Label   Label    `json:"label"`
	Matches MatchSet `json:"matches"`
	Score   int      `json:"score"`
}

// Location points an issue at a sentence of the letter.
type Location struct {
	SentenceIndex int `json:"sentence_index"`
}

// Issue is one actionable finding about the letter.
type Issue struct {
	ID               string   `json:"id"`
	Severity         string   `json:"severity"`
	LocationInLetter Location `json:"location_in_letter"`
	Description      string   `json:"description"`
	EvidenceRefs     []string `json:"evidence_refs"`
	SuggestedFix     string   `json:"suggested_fix"`
}

// SubScores are the five quality dimensions, each in [0,100]. Factual
// accuracy, citation consistency and logical adequacy all reuse the
// supported-claim ratio; this is a documented simplification, not three
// independent measurements.
type SubScores struct {
	FactualAccuracy     int `json:"factual_accuracy"`
	CitationConsistency int `json:"citation_consistency"`
	LogicalAdequacy     int `json:"logical_adequacy"`
	ToneProfessionalism int `json:"tone_professionalism"`
	HallucinationRisk   int `json:"hallucination_risk"`
}

// Meta records when and by which evaluator version a scorecard was produced.
type Meta struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
}

// Scorecard is the final verdict artifact for one appeal letter.
type Scorecard struct {
	OverallScore       int       `json:"overall_score"`
	Status             string    `json:"status"`
	SubScores          SubScores `json:"sub_scores"`
	Issues             []Issue   `json:"issues"`
	ConfidenceEstimate float64   `json:"confidence_estimate"`
	Meta               Meta      `json:"meta"`
}
