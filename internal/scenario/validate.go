package scenario

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ppiankov/medeval/internal/model"
	"github.com/ppiankov/medeval/internal/score"
)

// Validate checks a scenario for structural and answer-key consistency.
// Every problem is reported, not just the first.
func Validate(sc *model.Scenario) error {
	var errs *multierror.Error

	if sc.ScenarioID == "" {
		errs = multierror.Append(errs, fmt.Errorf("scenario_id is required"))
	}
	if sc.EffectiveDate != "" {
		if _, err := time.Parse(dateLayout, sc.EffectiveDate); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("effective_date %q is not YYYY-MM-DD", sc.EffectiveDate))
		}
	}
	if tv := sc.TemporalValidity; tv != nil {
		for _, field := range [][2]string{{"valid_from", tv.ValidFrom}, {"valid_until", tv.ValidUntil}} {
			if field[1] == "" {
				continue
			}
			if _, err := time.Parse(dateLayout, field[1]); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("temporal_validity.%s %q is not YYYY-MM-DD", field[0], field[1]))
			}
		}
		if tv.ValidFrom != "" && tv.ValidUntil != "" && tv.ValidFrom > tv.ValidUntil {
			errs = multierror.Append(errs, fmt.Errorf("temporal_validity window is empty (%s > %s)", tv.ValidFrom, tv.ValidUntil))
		}
	}

	seenTurns := make(map[string]bool)
	for i, turn := range sc.ScriptedTurns {
		if turn.TurnID == "" {
			errs = multierror.Append(errs, fmt.Errorf("scripted_turns[%d]: turn_id is required", i))
		} else if seenTurns[turn.TurnID] {
			errs = multierror.Append(errs, fmt.Errorf("scripted_turns[%d]: duplicate turn_id %q", i, turn.TurnID))
		}
		seenTurns[turn.TurnID] = true
	}

	if sc.AnswerKey == nil {
		errs = multierror.Append(errs, fmt.Errorf("answer_key is required"))
	} else {
		errs = multierror.Append(errs, ValidateAnswerKey(sc.AnswerKey))
	}

	if sc.ScoringRubric != nil {
		errs = multierror.Append(errs, validateRubric(sc.ScoringRubric, sc.AnswerKey))
	}

	return errs.ErrorOrNil()
}

// ValidateAnswerKey checks fact ids, severities and point references
func ValidateAnswerKey(key *model.AnswerKey) error {
	var errs *multierror.Error

	facts := make(map[string]bool, len(key.CanonicalFacts))
	for i, f := range key.CanonicalFacts {
		if f.FactID == "" {
			errs = multierror.Append(errs, fmt.Errorf("canonical_facts[%d]: fact_id is required", i))
			continue
		}
		if facts[f.FactID] {
			errs = multierror.Append(errs, fmt.Errorf("canonical_facts[%d]: duplicate fact_id %q", i, f.FactID))
		}
		facts[f.FactID] = true

		if f.Statement == "" {
			errs = multierror.Append(errs, fmt.Errorf("fact %s: statement is required", f.FactID))
		}
		if !f.SeverityIfWrong.ValidFactSeverity() {
			errs = multierror.Append(errs, fmt.Errorf("fact %s: invalid severity_if_wrong %q", f.FactID, f.SeverityIfWrong))
		}
	}

	for _, id := range key.RequiredPoints {
		if !facts[id] {
			errs = multierror.Append(errs, fmt.Errorf("required point %q is not a canonical fact", id))
		}
	}
	for _, id := range key.OptionalEnrichments {
		if !facts[id] {
			errs = multierror.Append(errs, fmt.Errorf("optional enrichment %q is not a canonical fact", id))
		}
	}

	return errs.ErrorOrNil()
}

func validateRubric(rubric *model.ScoringRubric, key *model.AnswerKey) error {
	var errs *multierror.Error

	if _, ok := score.DefaultRegistry().Lookup(rubric.Type); !ok {
		errs = multierror.Append(errs, fmt.Errorf("scoring_rubric: unknown type %q (known: %v)", rubric.Type, score.DefaultRegistry().Types()))
	}

	for name := range rubric.Tiers {
		if _, ok := model.DefaultRubricTiers[name]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("scoring_rubric.tiers: unknown tier %q", name))
		}
	}

	if key == nil {
		return errs.ErrorOrNil()
	}
	facts := key.FactIndex()
	for _, subset := range rubric.Subsets {
		if len(subset.Facts) == 0 && subset.MatchSuffix == "" {
			errs = multierror.Append(errs, fmt.Errorf("subset %q: needs facts or match_suffix", subset.Name))
		}
		for _, id := range subset.Facts {
			if _, ok := facts[id]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("subset %q: unknown fact %q", subset.Name, id))
			}
		}
	}

	return errs.ErrorOrNil()
}
