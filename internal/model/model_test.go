package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSeverity_Rank(t *testing.T) {
	order := []Severity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("expected %s to rank above %s", order[i], order[i-1])
		}
	}

	if Severity("bogus").Rank() != 0 {
		t.Errorf("expected unknown severity to rank as none")
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		in       []Severity
		expected Severity
	}{
		{nil, SeverityNone},
		{[]Severity{SeverityLow, SeverityCritical}, SeverityCritical},
		{[]Severity{SeverityCritical, SeverityLow}, SeverityCritical},
		{[]Severity{SeverityMedium, SeverityNone, SeverityHigh}, SeverityHigh},
	}

	for _, tt := range tests {
		if got := MaxSeverity(tt.in...); got != tt.expected {
			t.Errorf("MaxSeverity(%v): expected %s, got %s", tt.in, tt.expected, got)
		}
	}
}

func TestSeverity_ValidFactSeverity(t *testing.T) {
	if SeverityNone.ValidFactSeverity() {
		t.Error("expected none to be rejected as a fact severity")
	}
	if !SeverityCritical.ValidFactSeverity() {
		t.Error("expected critical to be a valid fact severity")
	}
}

func TestVerdictLabel_CautionOrder(t *testing.T) {
	for i := 1; i < len(VerdictLabels); i++ {
		if VerdictLabels[i].CautionRank() >= VerdictLabels[i-1].CautionRank() {
			t.Errorf("expected %s to be less cautious than %s", VerdictLabels[i], VerdictLabels[i-1])
		}
	}
	if VerdictLabel("MAYBE").Valid() {
		t.Error("expected unknown label to be invalid")
	}
}

func TestClaimType_Valid(t *testing.T) {
	for _, ct := range []ClaimType{ClaimTypeFactual, ClaimTypeProcedural, ClaimTypeTemporal, ClaimTypeConditional, ClaimTypeReferral} {
		if !ct.Valid() {
			t.Errorf("expected %s to be valid", ct)
		}
	}
	if ClaimType("opinion").Valid() {
		t.Error("expected opinion to be invalid")
	}
}

func TestScoringRubric_TierFallback(t *testing.T) {
	var nilRubric *ScoringRubric
	if got := nilRubric.Tier(TierIncorrect); got.Score != 4 || got.Label != "Incorrect" {
		t.Errorf("expected default incorrect tier, got %+v", got)
	}

	r := &ScoringRubric{Tiers: map[RubricTierName]RubricTier{
		TierAccurateComplete: {Score: 10, Label: "Perfect"},
	}}
	if got := r.Tier(TierAccurateComplete); got.Score != 10 || got.Label != "Perfect" {
		t.Errorf("expected override, got %+v", got)
	}
	if got := r.Tier(TierNotSubstantive); got.Score != 3 {
		t.Errorf("expected default not_substantive score 3, got %d", got.Score)
	}
}

func TestCoverageMismatchError_Message(t *testing.T) {
	err := error(&CoverageMismatchError{VerifierID: "V2", Missing: []string{"C2"}, Extra: []string{"C9"}})

	msg := err.Error()
	if !strings.Contains(msg, "V2") || !strings.Contains(msg, "C2") || !strings.Contains(msg, "C9") {
		t.Errorf("unexpected message: %s", msg)
	}

	var cm *CoverageMismatchError
	if !errors.As(err, &cm) {
		t.Fatal("expected errors.As to match CoverageMismatchError")
	}
}

func TestExtractionFormatError_Unwrap(t *testing.T) {
	inner := errors.New("bad json")
	err := &ExtractionFormatError{Reason: "parse", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to be reachable")
	}
}

func TestScoreResult_JSONNullRubric(t *testing.T) {
	data, err := json.Marshal(ScoreResult{CompletenessPercentage: 1, AccuracyPercentage: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"rubric_score":null`) {
		t.Errorf("expected null rubric_score, got %s", data)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		desc     string
		in       string
		n        int
		expected string
	}{
		{"short", "Part B", 10, "Part B"},
		{"exact", "Part B", 6, "Part B"},
		{"ascii cut", "Part B premium", 6, "Part B..."},
		{"inside two-byte rune", "éééé", 3, "é..."},
		{"inside three-byte rune", "€€", 4, "€..."},
		{"first rune too long", "€uro", 2, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := Truncate(tt.in, tt.n)
			if got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.n, got)
			}
		})
	}
}
