package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ppiankov/medeval/internal/model"
)

func TestLoad_Valid(t *testing.T) {
	sc, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.ScenarioID != "medicare_only_ma_vs_tm_001" {
		t.Errorf("unexpected scenario id %q", sc.ScenarioID)
	}
	if len(sc.AnswerKey.CanonicalFacts) != 5 {
		t.Errorf("expected 5 facts, got %d", len(sc.AnswerKey.CanonicalFacts))
	}
	if sc.AnswerKey.CanonicalFacts[3].SeverityIfWrong != model.SeverityCritical {
		t.Errorf("expected F4_TM critical, got %q", sc.AnswerKey.CanonicalFacts[3].SeverityIfWrong)
	}
	if sc.ScoringRubric == nil || len(sc.ScoringRubric.Subsets) != 2 {
		t.Fatalf("expected two rubric subsets, got %+v", sc.ScoringRubric)
	}
	if sc.TargetParameters.Seed == nil || *sc.TargetParameters.Seed != 42 {
		t.Errorf("expected seed 42, got %v", sc.TargetParameters.Seed)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("scenario_id: x\nanswer_keys: {}\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	yamlDoc := `
scenario_id: ""
effective_date: "01/02/2025"
scripted_turns:
  - turn_id: T1
  - turn_id: T1
answer_key:
  canonical_facts:
    - fact_id: F1
      statement: one
      severity_if_wrong: none
    - fact_id: F1
      statement: dup
      severity_if_wrong: high
  required_points: [F1, F9]
scoring_rubric:
  type: vibes
  subsets:
    - name: empty
`
	_, err := Parse([]byte(yamlDoc))
	if err == nil {
		t.Fatal("expected validation errors")
	}

	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("expected *multierror.Error, got %T", err)
	}

	want := []string{
		"scenario_id is required",
		"effective_date",
		"duplicate turn_id",
		"invalid severity_if_wrong",
		"duplicate fact_id",
		`required point "F9"`,
		`unknown type "vibes"`,
		"needs facts or match_suffix",
	}
	msg := merr.Error()
	for _, w := range want {
		if !strings.Contains(msg, w) {
			t.Errorf("expected error mentioning %q in:\n%s", w, msg)
		}
	}
}

func TestValidate_NoAnswerKey(t *testing.T) {
	err := Validate(&model.Scenario{ScenarioID: "s"})
	if err == nil || !strings.Contains(err.Error(), "answer_key is required") {
		t.Fatalf("expected answer_key error, got %v", err)
	}
}

func TestValidateAnswerKey_Clean(t *testing.T) {
	key := &model.AnswerKey{
		CanonicalFacts: []model.CanonicalFact{
			{FactID: "F1", Statement: "s", SeverityIfWrong: model.SeverityLow},
		},
		RequiredPoints: []string{"F1"},
	}
	if err := ValidateAnswerKey(key); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestLoadTranscript(t *testing.T) {
	tr, err := LoadTranscript("testdata/transcript.json")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if tr.Target.ModelName != "gpt-4o" {
		t.Errorf("unexpected model %q", tr.Target.ModelName)
	}
	if len(tr.Conversation) != 2 || tr.Conversation[1].Role != model.RoleAssistant {
		t.Errorf("unexpected conversation %+v", tr.Conversation)
	}
}

func TestLoadTranscript_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":     `{"conversation": []}`,
		"no answer": `{"conversation": [{"turn_id": "T1", "role": "user", "content": "hi"}]}`,
		"bad role":  `{"conversation": [{"turn_id": "T1", "role": "system", "content": "hi"}]}`,
		"not json":  `conversation: []`,
		"duplicate turn id": `{"conversation": [
			{"turn_id": "T1", "role": "user", "content": "hi"},
			{"turn_id": "T2", "role": "assistant", "content": "Part B has a premium."},
			{"turn_id": "T2", "role": "assistant", "content": "Part A covers hospital stays."}
		]}`,
	}
	dir := t.TempDir()
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadTranscript(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsCurrent(t *testing.T) {
	sc := &model.Scenario{TemporalValidity: &model.TemporalValidity{ValidFrom: "2025-01-01", ValidUntil: "2025-12-31"}}

	tests := []struct {
		at   string
		want bool
	}{
		{"2024-12-31", false},
		{"2025-01-01", true},
		{"2025-06-15", true},
		{"2025-12-31", true},
		{"2026-01-01", false},
	}
	for _, tt := range tests {
		at, _ := time.Parse(dateLayout, tt.at)
		if got := IsCurrent(sc, at); got != tt.want {
			t.Errorf("IsCurrent(%s) = %v, want %v", tt.at, got, tt.want)
		}
	}

	if !IsCurrent(&model.Scenario{}, time.Now()) {
		t.Error("expected scenario without window to be current")
	}
}
