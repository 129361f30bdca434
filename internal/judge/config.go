package judge

// Config carries the tunable constants of the deterministic evaluator. The
// defaults are the reference scheme; deployments override them through the
// top-level configuration, never by editing call sites.
type Config struct {
	// AuditorThreshold is the similarity ratio above which a raw evidence
	// chunk counts as a match. Auditor chunks are verbatim excerpts, so the
	// bar is the strictest of the three sources.
	AuditorThreshold float64 `yaml:"auditor_threshold" env:"JUDGE_AUDITOR_THRESHOLD" env-default:"0.35"`
	// ClinicianThreshold applies to the combined title+summary+pmid string.
	ClinicianThreshold float64 `yaml:"clinician_threshold" env:"JUDGE_CLINICIAN_THRESHOLD" env-default:"0.25"`
	// RegulatoryThreshold applies to legal-point summaries, which are
	// paraphrased rather than quoted, hence the most permissive bar.
	RegulatoryThreshold float64 `yaml:"regulatory_threshold" env:"JUDGE_REGULATORY_THRESHOLD" env-default:"0.22"`

	// Per-source claim weights. Clinical and regulatory support matter more
	// for appeal strength than bare denial-detail matching.
	AuditorWeight    int `yaml:"auditor_weight" env:"JUDGE_AUDITOR_WEIGHT" env-default:"20"`
	ClinicianWeight  int `yaml:"clinician_weight" env:"JUDGE_CLINICIAN_WEIGHT" env-default:"40"`
	RegulatoryWeight int `yaml:"regulatory_weight" env:"JUDGE_REGULATORY_WEIGHT" env-default:"40"`

	// SupportedMin is the minimum claim score that counts as "supported"
	// when computing the aggregate sub-scores.
	SupportedMin int `yaml:"supported_min" env:"JUDGE_SUPPORTED_MIN" env-default:"30"`
	// ApproveThreshold is the inclusive overall-score bound for "approve".
	ApproveThreshold int `yaml:"approve_threshold" env:"JUDGE_APPROVE_THRESHOLD" env-default:"85"`

	// ChunkLabelWidth is how many characters of a matched evidence chunk are
	// recorded as its match label.
	ChunkLabelWidth int `yaml:"chunk_label_width" env:"JUDGE_CHUNK_LABEL_WIDTH" env-default:"60"`

	// ClaimKeywords overrides the default claim-detection keyword set when
	// non-empty. Matching is case-insensitive whole-substring containment.
	ClaimKeywords []string `yaml:"claim_keywords"`
}

// DefaultConfig returns the reference scoring scheme.
func DefaultConfig() Config {
	return Config{
		AuditorThreshold:    0.35,
		ClinicianThreshold:  0.25,
		RegulatoryThreshold: 0.22,
		AuditorWeight:       20,
		ClinicianWeight:     40,
		RegulatoryWeight:    40,
		SupportedMin:        30,
		ApproveThreshold:    85,
		ChunkLabelWidth:     60,
	}
}

// defaultClaimKeywords is the fixed domain-term set used when the config does
// not override it. Containment of any entry marks a sentence as a claim.
var defaultClaimKeywords = []string{
	"evidence", "clinical", "study", "trial", "research",
	"medically necessary", "medical necessity",
	"denial", "policy", "regulation", "coverage",
	"should be covered", "effective", "beneficial",
	"recommended", "indicated", "supports", "argue",
	"counter", "compliant", "unproven", "experimental",
}

func (c Config) keywords() []string {
	if len(c.ClaimKeywords) > 0 {
		return c.ClaimKeywords
	}
	return defaultClaimKeywords
}

// Fixed sub-score constants. Tone is not independently measured by this
// deterministic component; a letter with no detectable claims gets the
// provisional-approval default.
const (
	toneScore          = 90
	noClaimsFactual    = 95
	confidenceEstimate = 0.85
	scorecardVersion   = "v2.0"
)
