package score

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/medeval/internal/model"
)

// Scorer derives completeness, accuracy, error and harm tags, and a rubric
// tier from one finalized verdict set. It holds no per-call state.
type Scorer struct {
	rubrics *Registry
}

// NewScorer creates a scorer with the built-in rubric types
func NewScorer() *Scorer {
	return &Scorer{rubrics: DefaultRegistry()}
}

// NewScorerWithRegistry creates a scorer that resolves rubric types from r
func NewScorerWithRegistry(r *Registry) *Scorer {
	if r == nil {
		r = DefaultRegistry()
	}
	return &Scorer{rubrics: r}
}

// Score computes the ScoreResult for claims judged by verdicts
func (s *Scorer) Score(claims []model.Claim, verdicts []model.Verdict, key *model.AnswerKey, rubric *model.ScoringRubric) (model.ScoreResult, error) {
	if key == nil {
		key = &model.AnswerKey{}
	}
	facts := key.FactIndex()

	// 1. Covered facts come from SUPPORTED evidence only
	covered := make(map[string]bool)
	for _, v := range verdicts {
		if v.Label != model.LabelSupported {
			continue
		}
		for _, factID := range v.Evidence {
			covered[factID] = true
		}
	}

	// 2-3. Missing required points and completeness
	required := dedupe(key.RequiredPoints)
	var missing []string
	for _, id := range required {
		if !covered[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	completeness := 1.0
	if len(required) > 0 {
		completeness = float64(len(required)-len(missing)) / float64(len(required))
	}

	// 4. Accuracy over verifiable claims; a claim without a verdict counts against it
	byClaim := model.VerdictIndex(verdicts)
	verifiable, correct := 0, 0
	for _, c := range claims {
		if !c.Verifiable {
			continue
		}
		verifiable++
		if v, ok := byClaim[c.ClaimID]; ok && (v.Label == model.LabelSupported || v.Label == model.LabelNotInKey) {
			correct++
		}
	}

	accuracy := 1.0
	if verifiable > 0 {
		accuracy = float64(correct) / float64(verifiable)
	}

	// 5. Error categories
	errorCategories := errorCategories(verdicts, len(missing) > 0)

	// 6. Harm categories
	harms := identifyHarm(verdicts, missing, facts)

	// 7. Rubric
	rubricScore, rubricLabel, err := s.applyRubric(rubric, key, covered, verdicts)
	if err != nil {
		return model.ScoreResult{}, err
	}

	// 8. Justification
	justification := buildJustification(rubricScore, rubricLabel, completeness, len(covered), missing, verdicts)

	if missing == nil {
		missing = []string{}
	}

	return model.ScoreResult{
		RubricScore:            rubricScore,
		RubricLabel:            rubricLabel,
		CompletenessPercentage: completeness,
		AccuracyPercentage:     accuracy,
		MissingRequiredPoints:  missing,
		ErrorCategories:        errorCategories,
		HarmCategories:         harms,
		Justification:          justification,
	}, nil
}

func errorCategories(verdicts []model.Verdict, hasOmission bool) []model.ErrorCategory {
	present := map[model.ErrorCategory]bool{
		model.ErrorOmission: hasOmission,
	}
	for _, v := range verdicts {
		switch v.Label {
		case model.LabelContradicted:
			present[model.ErrorContradiction] = true
		case model.LabelPartiallyCorrect:
			present[model.ErrorMisleading] = true
		case model.LabelNotInKey:
			present[model.ErrorHallucination] = true
		}
	}

	categories := make([]model.ErrorCategory, 0, len(present))
	for _, c := range model.ErrorCategories {
		if present[c] {
			categories = append(categories, c)
		}
	}
	return categories
}

func buildJustification(rubricScore *int, rubricLabel *string, completeness float64, coveredCount int, missing []string, verdicts []model.Verdict) string {
	var parts []string

	if rubricLabel != nil && rubricScore != nil {
		parts = append(parts, fmt.Sprintf("Classified as %s (Score %d).", *rubricLabel, *rubricScore))
	} else {
		parts = append(parts, "No rubric classification available.")
	}

	if coveredCount > 0 {
		parts = append(parts, fmt.Sprintf("Response covered %d facts (%.0f%% of required points).", coveredCount, completeness*100))
	}

	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("Missing required facts: %s.", strings.Join(missing, ", ")))
	}

	var contradicted, severe []string
	for _, v := range verdicts {
		if v.Label != model.LabelContradicted {
			continue
		}
		contradicted = append(contradicted, v.ClaimID)
		if v.Severity.AtLeastHigh() {
			severe = append(severe, v.ClaimID)
		}
	}
	if len(severe) > 0 {
		parts = append(parts, fmt.Sprintf("Contains %d high-severity error(s) in claims %s.", len(severe), strings.Join(severe, ", ")))
	} else if len(contradicted) > 0 {
		parts = append(parts, fmt.Sprintf("Contains %d minor error(s).", len(contradicted)))
	}

	return strings.Join(parts, " ")
}

// dedupe keeps the first occurrence of each id
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
