package adjudicate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/score"
)

// DefaultDisagreementThreshold is the disagreement rate above which a trial is flagged
const DefaultDisagreementThreshold = 0.20

// strongConsensus is the upper bound of the "strong consensus" bucket
const strongConsensus = 0.10

// Adjudicator reduces N verdict sets over one claim list into a single
// authoritative verdict set. Ties on the top label count go to the most
// cautious label: CONTRADICTED, PARTIALLY_CORRECT, NOT_IN_KEY, SUPPORTED.
type Adjudicator struct {
	threshold float64
	scorer    *score.Scorer
}

// NewAdjudicator creates an adjudicator. A negative or NaN threshold selects the
// default; zero is kept and flags any disagreement for review.
func NewAdjudicator(threshold float64, scorer *score.Scorer) *Adjudicator {
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = DefaultDisagreementThreshold
	}
	if scorer == nil {
		scorer = score.NewScorer()
	}
	return &Adjudicator{threshold: threshold, scorer: scorer}
}

// Threshold returns the configured disagreement threshold
func (a *Adjudicator) Threshold() float64 {
	return a.threshold
}

// Adjudicate reconciles verifications and scores the final verdict set
func (a *Adjudicator) Adjudicate(claims []model.Claim, verifications []model.VerificationResult, key *model.AnswerKey, rubric *model.ScoringRubric) (*model.AdjudicationResult, error) {
	if len(verifications) == 0 {
		return nil, model.ErrNoVerifications
	}

	grouped := groupVerdicts(claims, verifications)

	var missing []string
	for _, c := range claims {
		if len(grouped[c.ClaimID]) == 0 {
			missing = append(missing, c.ClaimID)
		}
	}
	if len(missing) > 0 {
		return nil, &model.MissingVerdictsError{ClaimIDs: missing}
	}

	if len(verifications) == 1 {
		return a.single(claims, verifications[0], key, rubric)
	}

	finalVerdicts := make([]model.Verdict, 0, len(claims))
	var disagreements, critical []string

	for _, c := range claims {
		outcome := reduceClaim(c.ClaimID, grouped[c.ClaimID])
		finalVerdicts = append(finalVerdicts, outcome.verdict)
		if outcome.disagreement {
			disagreements = append(disagreements, c.ClaimID)
		}
		if outcome.critical {
			critical = append(critical, c.ClaimID)
		}
	}

	pct := 0.0
	if len(claims) > 0 {
		pct = float64(len(disagreements)) / float64(len(claims))
	}

	scores, err := a.scorer.Score(claims, finalVerdicts, key, rubric)
	if err != nil {
		return nil, fmt.Errorf("score adjudicated verdicts: %w", err)
	}

	if critical == nil {
		critical = []string{}
	}

	return &model.AdjudicationResult{
		FinalClaims:            claims,
		FinalVerdicts:          finalVerdicts,
		FinalScores:            scores,
		NeedsManualReview:      pct > a.threshold || len(critical) > 0,
		DisagreementPercentage: pct,
		CriticalDisagreements:  critical,
		AdjudicationNotes:      a.notes(len(verifications), pct, critical, len(disagreements)),
	}, nil
}

// single passes one verifier's verdicts through unchanged
func (a *Adjudicator) single(claims []model.Claim, v model.VerificationResult, key *model.AnswerKey, rubric *model.ScoringRubric) (*model.AdjudicationResult, error) {
	scores, err := a.scorer.Score(claims, v.Verdicts, key, rubric)
	if err != nil {
		return nil, fmt.Errorf("score verdicts: %w", err)
	}

	return &model.AdjudicationResult{
		FinalClaims:            claims,
		FinalVerdicts:          v.Verdicts,
		FinalScores:            scores,
		NeedsManualReview:      false,
		DisagreementPercentage: 0,
		CriticalDisagreements:  []string{},
		AdjudicationNotes:      "Single verifier - no adjudication required.",
	}, nil
}

// groupVerdicts collects each claim's verdicts in verifier order
func groupVerdicts(claims []model.Claim, verifications []model.VerificationResult) map[string][]model.Verdict {
	grouped := make(map[string][]model.Verdict, len(claims))
	for _, v := range verifications {
		for _, verdict := range v.Verdicts {
			grouped[verdict.ClaimID] = append(grouped[verdict.ClaimID], verdict)
		}
	}
	return grouped
}

type claimOutcome struct {
	verdict      model.Verdict
	disagreement bool
	critical     bool
}

// reduceClaim applies majority vote to one claim's verdicts
func reduceClaim(claimID string, verdicts []model.Verdict) claimOutcome {
	counts := make(map[model.VerdictLabel]int)
	for _, v := range verdicts {
		counts[v.Label]++
	}

	majority := majorityLabel(counts)
	unanimous := counts[majority] == len(verdicts)

	var evidence []string
	var notes []string
	var contradictedSeverities []model.Severity
	seen := make(map[string]bool)

	for _, v := range verdicts {
		if v.Label == model.LabelContradicted {
			contradictedSeverities = append(contradictedSeverities, v.Severity)
		}
		if v.Label != majority {
			continue
		}
		for _, factID := range v.Evidence {
			if !seen[factID] {
				seen[factID] = true
				evidence = append(evidence, factID)
			}
		}
		if v.Notes != "" {
			notes = append(notes, v.Notes)
		}
	}

	severity := model.SeverityNone
	if majority == model.LabelContradicted {
		severity = model.MaxSeverity(contradictedSeverities...)
	}

	note := strings.Join(notes, " | ")
	if !unanimous {
		prefix := "[Disagreement: " + breakdown(counts) + "]"
		if note == "" {
			note = prefix
		} else {
			note = prefix + " " + note
		}
	}

	if evidence == nil {
		evidence = []string{}
	}

	return claimOutcome{
		verdict: model.Verdict{
			ClaimID:  claimID,
			Label:    majority,
			Evidence: evidence,
			Severity: severity,
			Notes:    note,
		},
		disagreement: !unanimous,
		critical:     counts[model.LabelSupported] > 0 && counts[model.LabelContradicted] > 0,
	}
}

// majorityLabel picks the highest count, breaking ties toward caution
func majorityLabel(counts map[model.VerdictLabel]int) model.VerdictLabel {
	best := model.VerdictLabel("")
	bestCount := -1
	for _, label := range model.VerdictLabels {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}

// breakdown renders label counts, most votes first then most cautious first
func breakdown(counts map[model.VerdictLabel]int) string {
	labels := make([]model.VerdictLabel, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i].CautionRank() > labels[j].CautionRank()
	})

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s:%d", label, counts[label])
	}
	return strings.Join(parts, ", ")
}

func (a *Adjudicator) notes(verifiers int, pct float64, critical []string, disagreements int) string {
	parts := []string{
		fmt.Sprintf("Adjudicated across %d verifiers.", verifiers),
		fmt.Sprintf("Disagreement rate: %.1f%%.", pct*100),
	}

	switch {
	case pct <= strongConsensus:
		parts = append(parts, "Strong consensus across verifiers.")
	case pct <= a.threshold:
		parts = append(parts, "Moderate consensus - majority vote applied.")
	default:
		parts = append(parts, "High disagreement - flagged for manual review.")
	}

	if len(critical) > 0 {
		parts = append(parts, fmt.Sprintf("CRITICAL: SUPPORTED/CONTRADICTED split on claims %s.", strings.Join(critical, ", ")))
	}
	if disagreements > 0 {
		parts = append(parts, fmt.Sprintf("%d claim(s) had verifier disagreement.", disagreements))
	}

	return strings.Join(parts, " ")
}
