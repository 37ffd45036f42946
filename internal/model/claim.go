package model

// Claim represents an atomic statement extracted from a model answer
type Claim struct {
	ClaimID          string      `json:"claim_id" yaml:"claim_id"`
	Text             string      `json:"text" yaml:"text"`
	ClaimType        ClaimType   `json:"claim_type" yaml:"claim_type"`
	Confidence       Confidence  `json:"confidence" yaml:"confidence"`             // Extraction quality signal, not used in scoring
	Verifiable       bool        `json:"verifiable" yaml:"verifiable"`             // Only verifiable claims count toward accuracy
	QuoteSpans       []QuoteSpan `json:"quote_spans,omitempty" yaml:"quote_spans"` // Character spans in the original answer
	IsHedged         bool        `json:"is_hedged" yaml:"is_hedged"`
	ContextDependent bool        `json:"context_dependent" yaml:"context_dependent"`
}

// QuoteSpan is a half-open character range in the answer text
type QuoteSpan struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeFactual     ClaimType = "factual"
	ClaimTypeProcedural  ClaimType = "procedural"  // How to do something
	ClaimTypeTemporal    ClaimType = "temporal"    // Time-bound information
	ClaimTypeConditional ClaimType = "conditional" // If-then statements
	ClaimTypeReferral    ClaimType = "referral"    // Directing to another resource
)

// Valid reports whether t is a known claim type
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimTypeFactual, ClaimTypeProcedural, ClaimTypeTemporal, ClaimTypeConditional, ClaimTypeReferral:
		return true
	}
	return false
}

// Confidence is the extractor's confidence that a claim is distinct
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is a known confidence level
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// ClaimIDs returns the claim ids in order
func ClaimIDs(claims []Claim) []string {
	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.ClaimID
	}
	return ids
}
