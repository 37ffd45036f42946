package model

// CanonicalFact is one atomic ground-truth statement in an answer key
type CanonicalFact struct {
	FactID          string   `json:"fact_id" yaml:"fact_id"`
	Statement       string   `json:"statement" yaml:"statement"`
	Rationale       string   `json:"rationale" yaml:"rationale"`
	Source          string   `json:"source" yaml:"source"`
	SeverityIfWrong Severity `json:"severity_if_wrong" yaml:"severity_if_wrong"`
}

// AnswerKey is the ground truth a scenario is graded against.
// It is read-only once loaded.
type AnswerKey struct {
	CanonicalFacts      []CanonicalFact `json:"canonical_facts" yaml:"canonical_facts"`
	RequiredPoints      []string        `json:"required_points" yaml:"required_points"`
	OptionalEnrichments []string        `json:"optional_enrichments" yaml:"optional_enrichments"`
	DisallowedClaims    []string        `json:"disallowed_claims" yaml:"disallowed_claims"`
	AcceptableReferrals []string        `json:"acceptable_referrals" yaml:"acceptable_referrals"`
}

// Fact looks up a canonical fact by id
func (k *AnswerKey) Fact(id string) (CanonicalFact, bool) {
	for _, f := range k.CanonicalFacts {
		if f.FactID == id {
			return f, true
		}
	}
	return CanonicalFact{}, false
}

// FactIndex returns canonical facts keyed by fact id
func (k *AnswerKey) FactIndex() map[string]CanonicalFact {
	index := make(map[string]CanonicalFact, len(k.CanonicalFacts))
	for _, f := range k.CanonicalFacts {
		index[f.FactID] = f
	}
	return index
}
