package model

// Severity is the shared harm scale for facts and verdicts
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of s (none=0 ... critical=4).
// Unknown values rank as none.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Valid reports whether s is on the severity scale
func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidFactSeverity reports whether s can rate a canonical fact (none excluded)
func (s Severity) ValidFactSeverity() bool {
	return s.Valid() && s != SeverityNone
}

// AtLeastHigh reports whether s is high or critical
func (s Severity) AtLeastHigh() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

// MaxSeverity returns the highest severity in the list, or none
func MaxSeverity(severities ...Severity) Severity {
	max := SeverityNone
	for _, s := range severities {
		if s.Rank() > max.Rank() {
			max = s
		}
	}
	return max
}

// VerdictLabel is the outcome of judging one claim
type VerdictLabel string

const (
	LabelSupported        VerdictLabel = "SUPPORTED"         // Explicitly supported by the answer key
	LabelContradicted     VerdictLabel = "CONTRADICTED"      // Contradicts the answer key
	LabelNotInKey         VerdictLabel = "NOT_IN_KEY"        // Not covered by the answer key
	LabelPartiallyCorrect VerdictLabel = "PARTIALLY_CORRECT" // Missing important nuance
)

// VerdictLabels lists every label in caution order, most cautious first
var VerdictLabels = []VerdictLabel{
	LabelContradicted,
	LabelPartiallyCorrect,
	LabelNotInKey,
	LabelSupported,
}

// Valid reports whether l is a known label
func (l VerdictLabel) Valid() bool {
	switch l {
	case LabelSupported, LabelContradicted, LabelNotInKey, LabelPartiallyCorrect:
		return true
	}
	return false
}

// CautionRank orders labels for tie-breaking; higher is more cautious
func (l VerdictLabel) CautionRank() int {
	switch l {
	case LabelContradicted:
		return 3
	case LabelPartiallyCorrect:
		return 2
	case LabelNotInKey:
		return 1
	}
	return 0
}

// Verdict is one verifier's judgment of a single claim
type Verdict struct {
	ClaimID  string       `json:"claim_id"`
	Label    VerdictLabel `json:"label"`
	Evidence []string     `json:"evidence"`
	Severity Severity     `json:"severity"` // Meaningful only for CONTRADICTED
	Notes    string       `json:"notes"`
}

// VerificationResult is the full verdict set produced by one verifier
type VerificationResult struct {
	VerifierID string                 `json:"verifier_id"`
	Verdicts   []Verdict              `json:"verdicts"`
	Metadata   map[string]interface{} `json:"verification_metadata,omitempty"`
}

// VerdictIndex returns verdicts keyed by claim id
func VerdictIndex(verdicts []Verdict) map[string]Verdict {
	index := make(map[string]Verdict, len(verdicts))
	for _, v := range verdicts {
		index[v.ClaimID] = v
	}
	return index
}
