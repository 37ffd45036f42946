package verify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ppiankov/medeval/internal/model"
)

const (
	defaultSupportAt = 0.5
	defaultPartialAt = 0.3
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"be": true, "it": true, "its": true, "that": true, "this": true, "with": true,
	"as": true, "by": true, "at": true, "you": true, "your": true, "can": true,
	"may": true, "will": true, "if": true, "from": true, "have": true, "has": true,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true, "can't": true,
	"don't": true, "doesn't": true, "isn't": true, "aren't": true, "won't": true,
	"without": true,
}

// LexicalVerifier labels claims by word overlap with the answer key.
// It needs no model and is used for offline grading.
type LexicalVerifier struct {
	id        string
	supportAt float64
	partialAt float64
}

// NewLexicalVerifier creates an overlap verifier. Zero thresholds use 0.5 and 0.3.
func NewLexicalVerifier(id string, supportAt, partialAt float64) *LexicalVerifier {
	if supportAt <= 0 {
		supportAt = defaultSupportAt
	}
	if partialAt <= 0 || partialAt > supportAt {
		partialAt = defaultPartialAt
	}
	return &LexicalVerifier{id: id, supportAt: supportAt, partialAt: partialAt}
}

// LexicalPanel returns n lexical verifiers with slightly different thresholds
// so that borderline claims split the panel.
func LexicalPanel(n int) []Verifier {
	offsets := []float64{0, -0.05, 0.05}
	panel := make([]Verifier, n)
	for i := range panel {
		d := offsets[i%len(offsets)]
		panel[i] = NewLexicalVerifier(fmt.Sprintf("L%d", i+1), defaultSupportAt+d, defaultPartialAt+d)
	}
	return panel
}

// ID implements Verifier
func (v *LexicalVerifier) ID() string { return v.id }

// Verify implements Verifier
func (v *LexicalVerifier) Verify(ctx context.Context, claims []model.Claim, key *model.AnswerKey) (*model.VerificationResult, error) {
	if key == nil {
		return nil, fmt.Errorf("answer key is required")
	}

	verdicts := make([]model.Verdict, 0, len(claims))
	for _, c := range claims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v.judge(c, key))
	}

	return &model.VerificationResult{
		VerifierID: v.id,
		Verdicts:   verdicts,
		Metadata: map[string]interface{}{
			"method":       "lexical",
			"support_at":   v.supportAt,
			"partial_at":   v.partialAt,
			"num_verdicts": len(verdicts),
			"num_facts":    len(key.CanonicalFacts),
		},
	}, nil
}

func (v *LexicalVerifier) judge(c model.Claim, key *model.AnswerKey) model.Verdict {
	words := tokens(c.Text)

	for _, d := range key.DisallowedClaims {
		if overlap(words, tokens(d)) >= v.supportAt {
			return model.Verdict{
				ClaimID:  c.ClaimID,
				Label:    model.LabelContradicted,
				Evidence: []string{},
				Severity: model.SeverityHigh,
				Notes:    "matches disallowed claim: " + d,
			}
		}
	}

	if c.ClaimType == model.ClaimTypeReferral {
		for _, r := range key.AcceptableReferrals {
			if overlap(words, tokens(r)) >= v.partialAt {
				return model.Verdict{
					ClaimID:  c.ClaimID,
					Label:    model.LabelSupported,
					Evidence: []string{},
					Severity: model.SeverityNone,
					Notes:    "acceptable referral: " + r,
				}
			}
		}
	}

	var best model.CanonicalFact
	bestScore := 0.0
	for _, f := range key.CanonicalFacts {
		if s := overlap(words, tokens(f.Statement)); s > bestScore {
			best, bestScore = f, s
		}
	}

	verdict := model.Verdict{ClaimID: c.ClaimID, Evidence: []string{}, Severity: model.SeverityNone}
	switch {
	case bestScore >= v.supportAt && negated(c.Text) != negated(best.Statement):
		verdict.Label = model.LabelContradicted
		verdict.Evidence = []string{best.FactID}
		verdict.Severity = best.SeverityIfWrong
		verdict.Notes = fmt.Sprintf("negates %s (overlap %.2f)", best.FactID, bestScore)
	case bestScore >= v.supportAt:
		verdict.Label = model.LabelSupported
		verdict.Evidence = []string{best.FactID}
		verdict.Notes = fmt.Sprintf("overlap %.2f with %s", bestScore, best.FactID)
	case bestScore >= v.partialAt:
		verdict.Label = model.LabelPartiallyCorrect
		verdict.Evidence = []string{best.FactID}
		verdict.Notes = fmt.Sprintf("partial overlap %.2f with %s", bestScore, best.FactID)
	default:
		verdict.Label = model.LabelNotInKey
	}
	return verdict
}

// tokens returns the distinct content words of s
func tokens(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" || stopwords[f] || negations[f] {
			continue
		}
		set[f] = true
	}
	return set
}

// overlap is the Dice coefficient of two word sets
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if b[w] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

func negated(s string) bool {
	for _, f := range strings.Fields(strings.ToLower(s)) {
		if negations[strings.Trim(f, ".,;:!?\"()")] {
			return true
		}
	}
	return false
}
