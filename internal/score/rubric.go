package score

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/medeval/internal/model"
)

const (
	// RubricCoverageSubsets grades coverage of each named fact subset
	RubricCoverageSubsets = "coverage_subsets"

	// RubricRequiredCoverage treats all required points as one subset
	RubricRequiredCoverage = "required_coverage"
)

// RubricFunc maps the covered fact set to a rubric tier.
// It is only consulted after the high-severity contradiction check.
type RubricFunc func(rubric *model.ScoringRubric, key *model.AnswerKey, covered map[string]bool) (model.RubricTierName, error)

// Registry holds rubric functions keyed by rubric type
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]RubricFunc
}

// NewRegistry creates an empty rubric registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]RubricFunc)}
}

// DefaultRegistry returns a registry with the built-in rubric types
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RubricCoverageSubsets, coverageSubsets)
	r.Register(RubricRequiredCoverage, requiredCoverage)
	return r
}

// Register adds or replaces a rubric function
func (r *Registry) Register(rubricType string, fn RubricFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[rubricType] = fn
}

// Lookup returns the rubric function for a type; empty type means coverage_subsets
func (r *Registry) Lookup(rubricType string) (RubricFunc, bool) {
	if rubricType == "" {
		rubricType = RubricCoverageSubsets
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[rubricType]
	return fn, ok
}

// Types returns the registered rubric type names
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// ResolvedSubset is a named fact subset with its membership expanded
type ResolvedSubset struct {
	Name  string
	Facts []string
}

// ResolveSubsets expands each rubric subset into concrete fact ids.
// A subset with MatchSuffix takes every required point containing the suffix.
// Without any subsets, all required points form one subset.
func ResolveSubsets(rubric *model.ScoringRubric, key *model.AnswerKey) []ResolvedSubset {
	if rubric == nil || len(rubric.Subsets) == 0 {
		return []ResolvedSubset{{Name: "required", Facts: requiredPoints(key)}}
	}

	resolved := make([]ResolvedSubset, 0, len(rubric.Subsets))
	for _, s := range rubric.Subsets {
		rs := ResolvedSubset{Name: s.Name}
		if len(s.Facts) > 0 {
			rs.Facts = append(rs.Facts, s.Facts...)
		} else if s.MatchSuffix != "" {
			for _, id := range requiredPoints(key) {
				if strings.Contains(id, s.MatchSuffix) {
					rs.Facts = append(rs.Facts, id)
				}
			}
		}
		resolved = append(resolved, rs)
	}
	return resolved
}

func requiredPoints(key *model.AnswerKey) []string {
	if key == nil {
		return nil
	}
	return key.RequiredPoints
}

// coverageSubsets: every subset fully covered is best, no subset touched is
// not substantive, anything in between is substantive but incomplete.
func coverageSubsets(rubric *model.ScoringRubric, key *model.AnswerKey, covered map[string]bool) (model.RubricTierName, error) {
	return tierForSubsets(ResolveSubsets(rubric, key), covered), nil
}

func requiredCoverage(_ *model.ScoringRubric, key *model.AnswerKey, covered map[string]bool) (model.RubricTierName, error) {
	subsets := []ResolvedSubset{{Name: "required", Facts: requiredPoints(key)}}
	return tierForSubsets(subsets, covered), nil
}

func tierForSubsets(subsets []ResolvedSubset, covered map[string]bool) model.RubricTierName {
	allComplete := true
	anyTouched := false
	for _, s := range subsets {
		for _, id := range s.Facts {
			if covered[id] {
				anyTouched = true
			} else {
				allComplete = false
			}
		}
	}

	switch {
	case allComplete:
		return model.TierAccurateComplete
	case !anyTouched:
		return model.TierNotSubstantive
	default:
		return model.TierSubstantiveIncomplete
	}
}

// applyRubric classifies one verdict set; nil rubric yields no classification
func (s *Scorer) applyRubric(rubric *model.ScoringRubric, key *model.AnswerKey, covered map[string]bool, verdicts []model.Verdict) (*int, *string, error) {
	if rubric == nil {
		return nil, nil, nil
	}

	var tierName model.RubricTierName
	if hasSevereContradiction(verdicts) {
		tierName = model.TierIncorrect
	} else {
		fn, ok := s.rubrics.Lookup(rubric.Type)
		if !ok {
			return nil, nil, fmt.Errorf("unknown rubric type: %s", rubric.Type)
		}
		name, err := fn(rubric, key, covered)
		if err != nil {
			return nil, nil, fmt.Errorf("apply rubric %s: %w", rubric.Type, err)
		}
		tierName = name
	}

	tier := rubric.Tier(tierName)
	score := tier.Score
	label := tier.Label
	return &score, &label, nil
}

func hasSevereContradiction(verdicts []model.Verdict) bool {
	for _, v := range verdicts {
		if v.Label == model.LabelContradicted && v.Severity.AtLeastHigh() {
			return true
		}
	}
	return false
}
