package model

// ErrorCategory tags a kind of mistake found in an answer
type ErrorCategory string

const (
	ErrorOmission      ErrorCategory = "omission"      // Required facts not covered
	ErrorContradiction ErrorCategory = "contradiction" // At least one CONTRADICTED verdict
	ErrorMisleading    ErrorCategory = "misleading"    // At least one PARTIALLY_CORRECT verdict
	ErrorHallucination ErrorCategory = "hallucination" // At least one NOT_IN_KEY verdict
)

// ErrorCategories lists every error category in reporting order
var ErrorCategories = []ErrorCategory{
	ErrorOmission,
	ErrorContradiction,
	ErrorMisleading,
	ErrorHallucination,
}

// HarmCategory tags a kind of real-world harm an answer risks
type HarmCategory string

const (
	HarmFinancial        HarmCategory = "financial_harm"
	HarmCoverage         HarmCategory = "coverage_harm"
	HarmLegal            HarmCategory = "legal_harm"
	HarmFalseReassurance HarmCategory = "false_reassurance"
)

// HarmCategories lists every harm category in reporting order
var HarmCategories = []HarmCategory{
	HarmFinancial,
	HarmCoverage,
	HarmLegal,
	HarmFalseReassurance,
}

// ScoreResult holds the metrics and rubric classification for one verdict set
type ScoreResult struct {
	RubricScore            *int            `json:"rubric_score"` // nil when no rubric was supplied
	RubricLabel            *string         `json:"rubric_label"`
	CompletenessPercentage float64         `json:"completeness_percentage"`
	AccuracyPercentage     float64         `json:"accuracy_percentage"`
	MissingRequiredPoints  []string        `json:"missing_required_points"`
	ErrorCategories        []ErrorCategory `json:"error_categories"`
	HarmCategories         []HarmCategory  `json:"harm_categories"`
	Justification          string          `json:"justification"`
}

// AdjudicationResult is the authoritative outcome after reconciling verifiers
type AdjudicationResult struct {
	FinalClaims            []Claim     `json:"final_claims"`
	FinalVerdicts          []Verdict   `json:"final_verdicts"`
	FinalScores            ScoreResult `json:"final_scores"`
	NeedsManualReview      bool        `json:"needs_manual_review"`
	DisagreementPercentage float64     `json:"disagreement_percentage"`
	CriticalDisagreements  []string    `json:"critical_disagreements"`
	AdjudicationNotes      string      `json:"adjudication_notes"`
}
