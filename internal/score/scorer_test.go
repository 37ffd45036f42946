package score

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/medeval/internal/model"
)

func testKey() *model.AnswerKey {
	return &model.AnswerKey{
		CanonicalFacts: []model.CanonicalFact{
			{FactID: "F1", Statement: "You must enroll during the initial enrollment period", SeverityIfWrong: model.SeverityHigh},
			{FactID: "F2", Statement: "The out-of-pocket maximum is $8,850", SeverityIfWrong: model.SeverityCritical},
			{FactID: "F3", Statement: "The plan network includes your doctor", SeverityIfWrong: model.SeverityHigh},
		},
		RequiredPoints: []string{"F1", "F2", "F3"},
	}
}

func TestScorer_Score_Metrics(t *testing.T) {
	scorer := NewScorer()

	claims := []model.Claim{
		{ClaimID: "C1", Verifiable: true},
		{ClaimID: "C2", Verifiable: true},
		{ClaimID: "C3", Verifiable: false},
	}
	verdicts := []model.Verdict{
		{ClaimID: "C1", Label: model.LabelSupported, Evidence: []string{"F1"}, Severity: model.SeverityNone},
		{ClaimID: "C2", Label: model.LabelContradicted, Evidence: []string{"F2"}, Severity: model.SeverityHigh},
		{ClaimID: "C3", Label: model.LabelNotInKey, Severity: model.SeverityNone},
	}

	result, err := scorer.Score(claims, verdicts, testKey(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RubricScore != nil || result.RubricLabel != nil {
		t.Errorf("expected no rubric classification, got %v / %v", result.RubricScore, result.RubricLabel)
	}

	if diff := result.CompletenessPercentage - 1.0/3.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected completeness 1/3, got %f", result.CompletenessPercentage)
	}

	if result.AccuracyPercentage != 0.5 {
		t.Errorf("expected accuracy 0.5, got %f", result.AccuracyPercentage)
	}

	if !reflect.DeepEqual(result.MissingRequiredPoints, []string{"F2", "F3"}) {
		t.Errorf("expected missing [F2 F3], got %v", result.MissingRequiredPoints)
	}

	expectedErrors := []model.ErrorCategory{model.ErrorOmission, model.ErrorContradiction, model.ErrorHallucination}
	if !reflect.DeepEqual(result.ErrorCategories, expectedErrors) {
		t.Errorf("expected errors %v, got %v", expectedErrors, result.ErrorCategories)
	}

	expectedHarm := []model.HarmCategory{model.HarmFinancial, model.HarmCoverage}
	if !reflect.DeepEqual(result.HarmCategories, expectedHarm) {
		t.Errorf("expected harms %v, got %v", expectedHarm, result.HarmCategories)
	}

	for _, want := range []string{
		"No rubric classification available.",
		"Response covered 1 facts (33% of required points).",
		"Missing required facts: F2, F3.",
		"Contains 1 high-severity error(s) in claims C2.",
	} {
		if !strings.Contains(result.Justification, want) {
			t.Errorf("expected justification to contain %q, got %q", want, result.Justification)
		}
	}
}

func TestScorer_Score_EmptyDefaults(t *testing.T) {
	scorer := NewScorer()

	claims := []model.Claim{{ClaimID: "C1", Verifiable: false}}
	verdicts := []model.Verdict{{ClaimID: "C1", Label: model.LabelContradicted, Severity: model.SeverityLow}}

	result, err := scorer.Score(claims, verdicts, &model.AnswerKey{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CompletenessPercentage != 1.0 {
		t.Errorf("expected completeness 1.0 with no required points, got %f", result.CompletenessPercentage)
	}
	if result.AccuracyPercentage != 1.0 {
		t.Errorf("expected accuracy 1.0 with no verifiable claims, got %f", result.AccuracyPercentage)
	}
	if len(result.MissingRequiredPoints) != 0 {
		t.Errorf("expected no missing points, got %v", result.MissingRequiredPoints)
	}
	if !strings.Contains(result.Justification, "Contains 1 minor error(s).") {
		t.Errorf("expected minor error note, got %q", result.Justification)
	}
}

func TestScorer_Score_OnlySupportedEvidenceCovers(t *testing.T) {
	scorer := NewScorer()

	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}}
	verdicts := []model.Verdict{{ClaimID: "C1", Label: model.LabelPartiallyCorrect, Evidence: []string{"F1"}}}
	key := &model.AnswerKey{RequiredPoints: []string{"F1"}}

	result, err := scorer.Score(claims, verdicts, key, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CompletenessPercentage != 0 {
		t.Errorf("expected completeness 0, got %f", result.CompletenessPercentage)
	}
	if result.AccuracyPercentage != 0 {
		t.Errorf("expected accuracy 0 for PARTIALLY_CORRECT, got %f", result.AccuracyPercentage)
	}
	if !reflect.DeepEqual(result.ErrorCategories, []model.ErrorCategory{model.ErrorOmission, model.ErrorMisleading}) {
		t.Errorf("unexpected error categories: %v", result.ErrorCategories)
	}
}

func TestScorer_Score_ClaimWithoutVerdictIsIncorrect(t *testing.T) {
	scorer := NewScorer()

	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}, {ClaimID: "C2", Verifiable: true}}
	verdicts := []model.Verdict{{ClaimID: "C1", Label: model.LabelSupported}}

	result, err := scorer.Score(claims, verdicts, &model.AnswerKey{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccuracyPercentage != 0.5 {
		t.Errorf("expected accuracy 0.5, got %f", result.AccuracyPercentage)
	}
}

func rubricKey() *model.AnswerKey {
	return &model.AnswerKey{RequiredPoints: []string{"F1_A", "F2_A", "F1_B"}}
}

func supported(facts ...string) []model.Verdict {
	if len(facts) == 0 {
		return []model.Verdict{{ClaimID: "C1", Label: model.LabelNotInKey}}
	}
	return []model.Verdict{{ClaimID: "C1", Label: model.LabelSupported, Evidence: facts}}
}

func TestScorer_Rubric_CoverageSubsets(t *testing.T) {
	explicit := &model.ScoringRubric{
		Type: RubricCoverageSubsets,
		Subsets: []model.FactSubset{
			{Name: "A", Facts: []string{"F1_A", "F2_A"}},
			{Name: "B", Facts: []string{"F1_B"}},
		},
	}
	suffix := &model.ScoringRubric{
		Subsets: []model.FactSubset{
			{Name: "A", MatchSuffix: "_A"},
			{Name: "B", MatchSuffix: "_B"},
		},
	}

	tests := []struct {
		desc          string
		covered       []string
		expectedScore int
		expectedLabel string
	}{
		{"all subsets covered", []string{"F1_A", "F2_A", "F1_B"}, 1, "Accurate and Complete"},
		{"nothing covered", nil, 3, "Not Substantive"},
		{"one fact covered", []string{"F1_A"}, 2, "Substantive but Incomplete"},
		{"one subset complete", []string{"F1_B"}, 2, "Substantive but Incomplete"},
	}

	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}}

	for _, rubric := range []*model.ScoringRubric{explicit, suffix} {
		for _, tt := range tests {
			t.Run(tt.desc, func(t *testing.T) {
				result, err := NewScorer().Score(claims, supported(tt.covered...), rubricKey(), rubric)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.RubricScore == nil || *result.RubricScore != tt.expectedScore {
					t.Errorf("expected score %d, got %v", tt.expectedScore, result.RubricScore)
				}
				if result.RubricLabel == nil || *result.RubricLabel != tt.expectedLabel {
					t.Errorf("expected label %q, got %v", tt.expectedLabel, result.RubricLabel)
				}
			})
		}
	}
}

func TestScorer_Rubric_SevereContradictionWins(t *testing.T) {
	rubric := &model.ScoringRubric{Subsets: []model.FactSubset{{Name: "A", MatchSuffix: "_A"}, {Name: "B", MatchSuffix: "_B"}}}
	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}, {ClaimID: "C2", Verifiable: true}}
	verdicts := []model.Verdict{
		{ClaimID: "C1", Label: model.LabelSupported, Evidence: []string{"F1_A", "F2_A", "F1_B"}},
		{ClaimID: "C2", Label: model.LabelContradicted, Severity: model.SeverityCritical},
	}

	result, err := NewScorer().Score(claims, verdicts, rubricKey(), rubric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RubricScore == nil || *result.RubricScore != 4 {
		t.Errorf("expected score 4, got %v", result.RubricScore)
	}
	if !strings.HasPrefix(result.Justification, "Classified as Incorrect (Score 4).") {
		t.Errorf("unexpected justification: %q", result.Justification)
	}
}

func TestScorer_Rubric_MediumContradictionDoesNotForceIncorrect(t *testing.T) {
	rubric := &model.ScoringRubric{Type: RubricRequiredCoverage}
	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}, {ClaimID: "C2", Verifiable: true}}
	verdicts := []model.Verdict{
		{ClaimID: "C1", Label: model.LabelSupported, Evidence: []string{"F1_A", "F2_A", "F1_B"}},
		{ClaimID: "C2", Label: model.LabelContradicted, Severity: model.SeverityMedium},
	}

	result, err := NewScorer().Score(claims, verdicts, rubricKey(), rubric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RubricScore == nil || *result.RubricScore != 1 {
		t.Errorf("expected score 1, got %v", result.RubricScore)
	}
}

func TestScorer_Rubric_TierOverrides(t *testing.T) {
	rubric := &model.ScoringRubric{
		Type: RubricRequiredCoverage,
		Tiers: map[model.RubricTierName]model.RubricTier{
			model.TierNotSubstantive: {Score: 30, Label: "No answer"},
		},
	}

	result, err := NewScorer().Score([]model.Claim{{ClaimID: "C1"}}, supported(), rubricKey(), rubric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *result.RubricScore != 30 || *result.RubricLabel != "No answer" {
		t.Errorf("expected overridden tier, got %d %q", *result.RubricScore, *result.RubricLabel)
	}
}

func TestScorer_Rubric_UnknownType(t *testing.T) {
	rubric := &model.ScoringRubric{Type: "essay_grading"}
	_, err := NewScorer().Score(nil, nil, rubricKey(), rubric)
	if err == nil {
		t.Fatal("expected error for unknown rubric type")
	}
}

func TestScorer_Rubric_CustomRegistry(t *testing.T) {
	registry := DefaultRegistry()
	registry.Register("always_best", func(_ *model.ScoringRubric, _ *model.AnswerKey, _ map[string]bool) (model.RubricTierName, error) {
		return model.TierAccurateComplete, nil
	})

	scorer := NewScorerWithRegistry(registry)
	result, err := scorer.Score(nil, nil, rubricKey(), &model.ScoringRubric{Type: "always_best"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *result.RubricScore != 1 {
		t.Errorf("expected score 1, got %d", *result.RubricScore)
	}
}

func TestScorer_Score_Deterministic(t *testing.T) {
	claims := []model.Claim{{ClaimID: "C1", Verifiable: true}, {ClaimID: "C2", Verifiable: true}}
	verdicts := []model.Verdict{
		{ClaimID: "C1", Label: model.LabelContradicted, Evidence: []string{"F3", "F2"}, Severity: model.SeverityCritical},
		{ClaimID: "C2", Label: model.LabelNotInKey},
	}

	first, err := NewScorer().Score(claims, verdicts, testKey(), &model.ScoringRubric{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := NewScorer().Score(claims, verdicts, testKey(), &model.ScoringRubric{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("expected identical results, got %+v and %+v", first, again)
		}
	}
}

func TestClassifyHarm(t *testing.T) {
	tests := []struct {
		statement string
		expected  []model.HarmCategory
	}{
		{"Your doctor must be in network", []model.HarmCategory{model.HarmCoverage, model.HarmLegal}},
		{"The Part B PREMIUM is deducted", []model.HarmCategory{model.HarmFinancial}},
		{"The deadline is December 7", []model.HarmCategory{model.HarmLegal}},
		{"Medicare has four parts", nil},
	}

	for _, tt := range tests {
		got := ClassifyHarm(tt.statement)
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("ClassifyHarm(%q): expected %v, got %v", tt.statement, tt.expected, got)
		}
	}
}

func TestResolveSubsets_DefaultsToRequiredPoints(t *testing.T) {
	subsets := ResolveSubsets(nil, rubricKey())
	if len(subsets) != 1 || len(subsets[0].Facts) != 3 {
		t.Errorf("expected one subset of 3 required points, got %+v", subsets)
	}
}
