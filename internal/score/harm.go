package score

import (
	"strings"

	"github.com/ppiankov/medeval/internal/model"
)

// harmKeywords maps harm categories to trigger terms in a fact statement.
// This is an approximate heuristic: a statement mentioning "pay" is assumed to
// carry financial risk whether or not it actually does.
var harmKeywords = []struct {
	category model.HarmCategory
	words    []string
}{
	{model.HarmCoverage, []string{"network", "provider", "doctor", "hospital", "coverage"}},
	{model.HarmFinancial, []string{"cost", "premium", "out-of-pocket", "maximum", "pay"}},
	{model.HarmLegal, []string{"enroll", "deadline", "period", "must"}},
}

// ClassifyHarm returns the harm categories whose keywords appear in statement.
// false_reassurance is never produced by keyword matching.
func ClassifyHarm(statement string) []model.HarmCategory {
	lower := strings.ToLower(statement)

	var harms []model.HarmCategory
	for _, hk := range harmKeywords {
		for _, word := range hk.words {
			if strings.Contains(lower, word) {
				harms = append(harms, hk.category)
				break
			}
		}
	}
	return harms
}

// identifyHarm collects harm categories from severe contradictions and severe omissions
func identifyHarm(verdicts []model.Verdict, missing []string, facts map[string]model.CanonicalFact) []model.HarmCategory {
	found := make(map[model.HarmCategory]bool)

	mark := func(factID string) {
		fact, ok := facts[factID]
		if !ok {
			return
		}
		for _, h := range ClassifyHarm(fact.Statement) {
			found[h] = true
		}
	}

	for _, v := range verdicts {
		if v.Label == model.LabelContradicted && v.Severity.AtLeastHigh() {
			for _, factID := range v.Evidence {
				mark(factID)
			}
		}
	}

	for _, factID := range missing {
		if fact, ok := facts[factID]; ok && fact.SeverityIfWrong.AtLeastHigh() {
			mark(factID)
		}
	}

	harms := make([]model.HarmCategory, 0, len(found))
	for _, h := range model.HarmCategories {
		if found[h] {
			harms = append(harms, h)
		}
	}
	return harms
}
